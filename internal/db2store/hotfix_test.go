package db2store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/udisondev/wowauth/internal/db2"
)

type mockHotfixStore struct {
	strings []StringHotfix
	records []RecordHotfix
}

func (m *mockHotfixStore) ListStringHotfixes(context.Context) ([]StringHotfix, error) {
	return m.strings, nil
}

func (m *mockHotfixStore) ListRecordHotfixes(context.Context) ([]RecordHotfix, error) {
	return m.records, nil
}

func TestApplyHotfixes(t *testing.T) {
	m := newTestManager(t)

	store := &mockHotfixStore{
		records: []RecordHotfix{
			{TableName: "ChrClasses", NewID: 3, SourceID: 2},
		},
		strings: []StringHotfix{
			{TableName: "ChrClasses", RecordID: 3, Field: "Name", Locale: "enUS", Value: "Hunter"},
		},
	}
	require.NoError(t, m.ApplyHotfixes(context.Background(), store))

	// The cloned record exists with the overridden name; the source keeps
	// its original one.
	hunter, ok := m.ChrClasses(3)
	require.True(t, ok)
	nameIdx, ok := m.table("ChrClasses").FieldIndex("Name")
	require.True(t, ok)
	require.Equal(t, "Hunter", hunter.Fields[nameIdx].Strings[0].Get(db2.LocaleEnUS))

	paladin, ok := m.ChrClasses(2)
	require.True(t, ok)
	require.Equal(t, "Paladin", paladin.Fields[nameIdx].Strings[0].Get(db2.LocaleEnUS))

	// Indices were rebuilt: the clone shares its source's power type, so
	// the class power-type index now covers class 3.
	_, ok = m.ClassPowerTypeIndex(3, 1)
	require.True(t, ok)
}

func TestApplyHotfixesRejectsUnknownTargets(t *testing.T) {
	m := newTestManager(t)

	err := m.ApplyHotfixes(context.Background(), &mockHotfixStore{
		strings: []StringHotfix{{TableName: "NoSuchTable", RecordID: 1, Field: "Name", Locale: "enUS", Value: "x"}},
	})
	require.Error(t, err)

	err = m.ApplyHotfixes(context.Background(), &mockHotfixStore{
		records: []RecordHotfix{{TableName: "ChrClasses", NewID: 4, SourceID: 999}},
	})
	require.Error(t, err)
}
