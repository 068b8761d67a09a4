package db2store

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/udisondev/wowauth/internal/db2"
)

// buildDB2 assembles a minimal regular-layout WDC1 file for a schema whose
// fields are: an inline int32 id, zero or more raw-uint32 "middle" fields
// (already bit-pattern-encoded, so float columns pass math.Float32bits),
// and an optional trailing LocString field.
func buildDB2(t *testing.T, schema db2.Schema, ids []int32, cols [][]uint32, names []string) []byte {
	t.Helper()
	fieldCount := len(schema.Fields)
	hasName := schema.Fields[fieldCount-1].Type == db2.FieldLocString
	recordSize := 4 * fieldCount

	var stringPool []byte
	stringPool = append(stringPool, 0)
	nameOffsets := make([]int32, len(ids))
	if hasName {
		require.Equal(t, len(ids), len(names))
		for i, n := range names {
			nameOffsets[i] = int32(len(stringPool))
			stringPool = append(stringPool, []byte(n)...)
			stringPool = append(stringPool, 0)
		}
	}

	var recordRegion []byte
	for i := range ids {
		rec := make([]byte, recordSize)
		binary.LittleEndian.PutUint32(rec[0:4], uint32(ids[i]))
		for c, v := range cols[i] {
			binary.LittleEndian.PutUint32(rec[4+4*c:8+4*c], v)
		}
		if hasName {
			binary.LittleEndian.PutUint32(rec[recordSize-4:recordSize], uint32(nameOffsets[i]))
		}
		recordRegion = append(recordRegion, rec...)
	}

	minID, maxID := int32(0), int32(0)
	if len(ids) > 0 {
		minID, maxID = ids[0], ids[0]
		for _, id := range ids {
			if id < minID {
				minID = id
			}
			if id > maxID {
				maxID = id
			}
		}
	}

	header := make([]byte, 84)
	copy(header[0:4], []byte("WDC1"))
	le := binary.LittleEndian
	le.PutUint32(header[4:8], uint32(len(ids)))
	le.PutUint32(header[8:12], uint32(fieldCount))
	le.PutUint32(header[12:16], uint32(recordSize))
	le.PutUint32(header[16:20], uint32(len(stringPool)))
	le.PutUint32(header[24:28], schema.LayoutHash)
	le.PutUint32(header[28:32], uint32(minID))
	le.PutUint32(header[32:36], uint32(maxID))
	le.PutUint32(header[36:40], uint32(db2.LocaleEnUS))
	le.PutUint32(header[48:52], uint32(fieldCount))

	var out []byte
	out = append(out, header...)
	out = append(out, make([]byte, fieldCount*4)...) // field structure array
	out = append(out, recordRegion...)
	out = append(out, stringPool...)
	return out
}

func f32(v float32) uint32 { return math.Float32bits(v) }

// writeTable writes name.db2 for the given synthetic bytes into dir.
func writeTable(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".db2"), data, 0o644))
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	dir := t.TempDir()

	writeTable(t, dir, "AreaTable", buildDB2(t, areaTableSchema,
		[]int32{10, 11, 20}, [][]uint32{{100}, {100}, {0}}, []string{"Elwynn", "Westfall", "Stormwind"}))

	writeTable(t, dir, "ChrClasses", buildDB2(t, chrClassesSchema,
		[]int32{1, 2}, [][]uint32{{0}, {1}}, []string{"Warrior", "Paladin"}))

	writeTable(t, dir, "ChrSpecialization", buildDB2(t, chrSpecializationSchema,
		[]int32{71, 72}, [][]uint32{{1, 0}, {1, 1}}, []string{"Arms", "Fury"}))

	writeTable(t, dir, "CurrencyContainer", buildDB2(t, currencyContainerSchema,
		[]int32{1, 2}, [][]uint32{{396, 50000}, {396, 50001}}, nil))

	writeTable(t, dir, "TaxiNodes", buildDB2(t, taxiNodesSchema,
		[]int32{2, 9}, [][]uint32{{TaxiNodeFlagAlliance | TaxiNodeFlagOldContinent}, {TaxiNodeFlagHorde}},
		[]string{"Stormwind", "Orgrimmar"}))

	writeTable(t, dir, "WorldMapTransforms", buildDB2(t, worldMapTransformsSchema,
		[]int32{1}, [][]uint32{{1, f32(0), f32(0), f32(100), f32(100), 2, f32(500), f32(500), 1}}, nil))

	writeTable(t, dir, "LiquidType", buildDB2(t, liquidTypeSchema,
		[]int32{1, 2}, [][]uint32{{0}, {2}}, []string{"Water", "Lava"}))

	m, err := Load(dir, db2.LocaleEnUS, nil)
	require.NoError(t, err)
	return m
}

func TestAreaGroupMembers(t *testing.T) {
	m := newTestManager(t)
	require.ElementsMatch(t, []int64{10, 11}, m.AreaGroupMembers(100))
	require.Empty(t, m.AreaGroupMembers(999))
}

func TestClassPowerTypeIndex(t *testing.T) {
	m := newTestManager(t)
	idx, ok := m.ClassPowerTypeIndex(1, 0)
	require.True(t, ok)
	require.Equal(t, 0, idx)
	_, ok = m.ClassPowerTypeIndex(1, 99)
	require.False(t, ok)
}

func TestClassSpecialization(t *testing.T) {
	m := newTestManager(t)
	id, ok := m.ClassSpecialization(1, 1)
	require.True(t, ok)
	require.Equal(t, int64(72), id)
}

func TestCurrencyItems(t *testing.T) {
	m := newTestManager(t)
	require.ElementsMatch(t, []int64{50000, 50001}, m.CurrencyItems(396))
}

func TestTaxiMasks(t *testing.T) {
	m := newTestManager(t)
	require.True(t, TaxiNodeReachable(m.TaxiMaskAll(), 2))
	require.True(t, TaxiNodeReachable(m.TaxiMaskAll(), 9))
	require.True(t, TaxiNodeReachable(m.TaxiMaskAlliance(), 2))
	require.False(t, TaxiNodeReachable(m.TaxiMaskHorde(), 2))
	require.True(t, TaxiNodeReachable(m.TaxiMaskHorde(), 9))
	require.False(t, TaxiNodeReachable(m.TaxiMaskAll(), 3))
}

func TestDetermineAlternateMapPosition(t *testing.T) {
	m := newTestManager(t)
	pos, ok := m.DetermineAlternateMapPosition(1, 10, 10, 0)
	require.True(t, ok)
	require.Equal(t, int64(2), pos.MapID)
	require.InDelta(t, 510, pos.X, 0.001)
	require.InDelta(t, 510, pos.Y, 0.001)

	_, ok = m.DetermineAlternateMapPosition(1, 1000, 1000, 0)
	require.False(t, ok)

	_, ok = m.DetermineAlternateMapPosition(99, 10, 10, 0)
	require.False(t, ok)
}

func TestLiquidTypeFlags(t *testing.T) {
	m := newTestManager(t)
	require.Equal(t, LiquidTypeFlagWater, m.LiquidTypeFlags(1))
	require.Equal(t, LiquidTypeFlagMagma, m.LiquidTypeFlags(2))
	require.Equal(t, LiquidTypeFlag(0), m.LiquidTypeFlags(999))
}

func TestLoadFailsSanityCheck(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "AreaTable", buildDB2(t, areaTableSchema, nil, nil, nil))
	writeTable(t, dir, "ChrClasses", buildDB2(t, chrClassesSchema, []int32{5}, [][]uint32{{0}}, []string{"Unknown"}))
	writeTable(t, dir, "ChrSpecialization", buildDB2(t, chrSpecializationSchema, nil, nil, nil))
	writeTable(t, dir, "CurrencyContainer", buildDB2(t, currencyContainerSchema, nil, nil, nil))
	writeTable(t, dir, "TaxiNodes", buildDB2(t, taxiNodesSchema, nil, nil, nil))
	writeTable(t, dir, "WorldMapTransforms", buildDB2(t, worldMapTransformsSchema, nil, nil, nil))
	writeTable(t, dir, "LiquidType", buildDB2(t, liquidTypeSchema, nil, nil, nil))

	_, err := Load(dir, db2.LocaleEnUS, nil)
	require.Error(t, err, "missing well-known ChrClasses id 1 must fail startup")
}
