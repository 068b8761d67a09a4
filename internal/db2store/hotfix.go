package db2store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/udisondev/wowauth/internal/db2"
)

// StringHotfix overwrites one localized string on a loaded record.
type StringHotfix struct {
	TableName string
	RecordID  int64
	Field     string
	Locale    string
	Value     string
}

// RecordHotfix materializes a new record as a clone of an existing one.
type RecordHotfix struct {
	TableName string
	NewID     int64
	SourceID  int64
}

// HotfixStore is the query surface the database-driven patch pass reads
// from.
type HotfixStore interface {
	ListStringHotfixes(ctx context.Context) ([]StringHotfix, error)
	ListRecordHotfixes(ctx context.Context) ([]RecordHotfix, error)
}

// PostgresHotfixStore implements HotfixStore over the login database.
type PostgresHotfixStore struct {
	pool *pgxpool.Pool
}

// NewPostgresHotfixStore creates a HotfixStore backed by pool.
func NewPostgresHotfixStore(pool *pgxpool.Pool) *PostgresHotfixStore {
	return &PostgresHotfixStore{pool: pool}
}

// ListStringHotfixes loads every string override row.
func (s *PostgresHotfixStore) ListStringHotfixes(ctx context.Context) ([]StringHotfix, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT table_name, record_id, field, locale, value
		 FROM db2_string_hotfixes ORDER BY table_name, record_id`)
	if err != nil {
		return nil, fmt.Errorf("querying string hotfixes: %w", err)
	}
	defer rows.Close()

	result := make([]StringHotfix, 0, 8)
	for rows.Next() {
		var hf StringHotfix
		if err := rows.Scan(&hf.TableName, &hf.RecordID, &hf.Field, &hf.Locale, &hf.Value); err != nil {
			return nil, fmt.Errorf("scanning string hotfix row: %w", err)
		}
		result = append(result, hf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating string hotfix rows: %w", err)
	}
	return result, nil
}

// ListRecordHotfixes loads every record-insertion row.
func (s *PostgresHotfixStore) ListRecordHotfixes(ctx context.Context) ([]RecordHotfix, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT table_name, new_id, source_id
		 FROM db2_record_hotfixes ORDER BY table_name, new_id`)
	if err != nil {
		return nil, fmt.Errorf("querying record hotfixes: %w", err)
	}
	defer rows.Close()

	result := make([]RecordHotfix, 0, 4)
	for rows.Next() {
		var hf RecordHotfix
		if err := rows.Scan(&hf.TableName, &hf.NewID, &hf.SourceID); err != nil {
			return nil, fmt.Errorf("scanning record hotfix row: %w", err)
		}
		result = append(result, hf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record hotfix rows: %w", err)
	}
	return result, nil
}

// ApplyHotfixes patches the loaded tables from store: record clones
// first, then string overwrites, so an override targeting a hotfix-
// introduced record resolves. Must run before the derived indices are
// consumed; a hotfix naming an unknown table or record is an error, not
// a skip, because serving silently unpatched data is worse than failing
// startup.
func (m *Manager) ApplyHotfixes(ctx context.Context, store HotfixStore) error {
	recordHotfixes, err := store.ListRecordHotfixes(ctx)
	if err != nil {
		return fmt.Errorf("db2store: %w", err)
	}
	for _, hf := range recordHotfixes {
		tbl, ok := m.tables[hf.TableName]
		if !ok {
			return fmt.Errorf("db2store: record hotfix targets unknown table %q", hf.TableName)
		}
		if err := tbl.Clone(hf.NewID, hf.SourceID); err != nil {
			return fmt.Errorf("db2store: %s: %w", hf.TableName, err)
		}
	}

	stringHotfixes, err := store.ListStringHotfixes(ctx)
	if err != nil {
		return fmt.Errorf("db2store: %w", err)
	}
	for _, hf := range stringHotfixes {
		tbl, ok := m.tables[hf.TableName]
		if !ok {
			return fmt.Errorf("db2store: string hotfix targets unknown table %q", hf.TableName)
		}
		fieldIdx, ok := tbl.FieldIndex(hf.Field)
		if !ok {
			return fmt.Errorf("db2store: string hotfix targets unknown field %s.%s", hf.TableName, hf.Field)
		}
		locale, err := db2.ParseLocale(hf.Locale)
		if err != nil {
			return fmt.Errorf("db2store: string hotfix: %w", err)
		}
		if err := tbl.SetString(hf.RecordID, fieldIdx, locale, hf.Value); err != nil {
			return fmt.Errorf("db2store: %s: %w", hf.TableName, err)
		}
	}

	if len(recordHotfixes) > 0 || len(stringHotfixes) > 0 {
		// Indices derive from table contents; rebuild so hotfix-introduced
		// records appear in them.
		m.buildIndices()
		slog.Info("db2 hotfixes applied",
			"records", len(recordHotfixes), "strings", len(stringHotfixes))
	}
	return nil
}
