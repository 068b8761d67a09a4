package db2store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/udisondev/wowauth/internal/db2"
)

// localeDirs maps a locale bit to the subdirectory its additional
// (non-primary) file lives under.
var localeDirs = map[db2.Locale]string{
	db2.LocaleEnUS: "enUS",
	db2.LocaleKoKR: "koKR",
	db2.LocaleFrFR: "frFR",
	db2.LocaleDeDE: "deDE",
	db2.LocaleZhCN: "zhCN",
	db2.LocaleZhTW: "zhTW",
	db2.LocaleEsES: "esES",
	db2.LocaleEsMX: "esMX",
	db2.LocaleRuRU: "ruRU",
	db2.LocalePtBR: "ptBR",
	db2.LocaleItIT: "itIT",
	db2.LocalePtPT: "ptPT",
}

// wellKnownIDs are sanity-checked after load: records the rest of the
// process relies on existing unconditionally.
var wellKnownIDs = []struct {
	table string
	id    int64
}{
	{"ChrClasses", 1},  // Warrior
	{"ChrClasses", 2},  // Paladin
	{"LiquidType", 1},  // basic water
}

// Manager owns every loaded DB2 table and the indices derived from them.
// Built once at startup and never mutated afterward.
type Manager struct {
	tables map[string]*db2.Table

	areaGroupMembers     map[int64][]int64            // area group id -> member area ids
	classPowerTypeIndex  map[int64]map[int64]int      // class id -> power type -> ordinal
	classSpecIndex       map[int64]map[int64]int64    // class id -> spec order index -> specialization id
	currencyItems        map[int64][]int64            // currency id -> item ids
	taxiMaskAll          []byte
	taxiMaskAlliance     []byte
	taxiMaskHorde        []byte
	taxiMaskOldContinent []byte
}

// Load reads every table named in tableSchemas from dataDir for the
// primary locale, then merges in any additional locale files found under
// dataDir's per-locale subdirectories, and finally builds every derived
// index.
func Load(dataDir string, primary db2.Locale, additional []db2.Locale) (*Manager, error) {
	tables := make(map[string]*db2.Table, len(tableSchemas))

	names := make([]string, 0, len(tableSchemas))
	for name := range tableSchemas {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic load order for reproducible logs

	for _, name := range names {
		schema := tableSchemas[name]
		path := filepath.Join(dataDir, name+".db2")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("db2store: loading %s: %w", name, err)
		}
		tbl, err := db2.Decode(data, schema, primary)
		if err != nil {
			return nil, fmt.Errorf("db2store: decoding %s: %w", name, err)
		}

		for _, loc := range additional {
			dir, ok := localeDirs[loc]
			if !ok {
				continue
			}
			locPath := filepath.Join(dataDir, dir, name+".db2")
			locData, err := os.ReadFile(locPath)
			if err != nil {
				if os.IsNotExist(err) {
					continue // not every table ships every locale
				}
				return nil, fmt.Errorf("db2store: loading %s/%s: %w", dir, name, err)
			}
			if err := db2.MergeLocale(tbl, locData, schema, loc); err != nil {
				return nil, fmt.Errorf("db2store: merging %s/%s: %w", dir, name, err)
			}
		}

		tables[name] = tbl
	}

	m := &Manager{tables: tables}
	m.buildIndices()
	if err := m.sanityCheck(); err != nil {
		return nil, err
	}
	return m, nil
}

// Tables returns the number of loaded tables.
func (m *Manager) Tables() int { return len(m.tables) }

func (m *Manager) table(name string) *db2.Table {
	t, ok := m.tables[name]
	if !ok {
		panic(fmt.Sprintf("db2store: table %q not loaded", name))
	}
	return t
}

func (m *Manager) sanityCheck() error {
	for _, w := range wellKnownIDs {
		t, ok := m.tables[w.table]
		if !ok {
			return fmt.Errorf("db2store: sanity check: table %q not loaded", w.table)
		}
		if _, ok := t.GetByID(w.id); !ok {
			return fmt.Errorf("db2store: sanity check: %s record %d missing", w.table, w.id)
		}
	}
	return nil
}

// AreaTable, ChrClasses, etc. expose typed by-id lookup on each loaded
// table.

func (m *Manager) AreaTable(id int64) (*db2.Record, bool) { return m.table("AreaTable").GetByID(id) }

func (m *Manager) ChrClasses(id int64) (*db2.Record, bool) {
	return m.table("ChrClasses").GetByID(id)
}

func (m *Manager) ChrSpecialization(id int64) (*db2.Record, bool) {
	return m.table("ChrSpecialization").GetByID(id)
}

func (m *Manager) TaxiNodes(id int64) (*db2.Record, bool) {
	return m.table("TaxiNodes").GetByID(id)
}

func (m *Manager) LiquidType(id int64) (*db2.Record, bool) {
	return m.table("LiquidType").GetByID(id)
}

func (m *Manager) WorldMapTransforms() *db2.Table { return m.table("WorldMapTransforms") }
