package db2

import "fmt"

// SetString overwrites one localized-string field element on an existing
// record, used by the database-driven hotfix pass after file load.
func (t *Table) SetString(id int64, fieldIndex int, locale Locale, value string) error {
	rec, ok := t.records[id]
	if !ok {
		return fmt.Errorf("db2: hotfix: record %d not found", id)
	}
	if fieldIndex < 0 || fieldIndex >= len(t.Schema.Fields) {
		return fmt.Errorf("db2: hotfix: field index %d out of range", fieldIndex)
	}
	fs := t.Schema.Fields[fieldIndex]
	if fs.Type != FieldLocString {
		return fmt.Errorf("db2: hotfix: field %q is not a string field", fs.Name)
	}
	if len(rec.Fields[fieldIndex].Strings) == 0 {
		return fmt.Errorf("db2: hotfix: record %d field %q holds no strings", id, fs.Name)
	}
	return rec.Fields[fieldIndex].Strings[0].set(locale, value)
}

// Clone inserts a full copy of the record at srcID under newID, the same
// expansion the on-disk copy table performs, used by hotfixes that
// introduce records the shipped file never declared.
func (t *Table) Clone(newID, srcID int64) error {
	src, ok := t.records[srcID]
	if !ok {
		return fmt.Errorf("db2: hotfix: source record %d not found", srcID)
	}
	if _, exists := t.records[newID]; exists {
		return fmt.Errorf("db2: hotfix: record %d already exists", newID)
	}
	t.records[newID] = cloneRecord(src, newID)
	return nil
}

// cloneRecord deep-copies a record under a new id. Field value slices are
// copied rather than aliased so a later string overwrite on the clone
// cannot leak into its source.
func cloneRecord(src *Record, newID int64) *Record {
	clone := &Record{ID: newID, Fields: make([]Value, len(src.Fields))}
	for i, v := range src.Fields {
		var cv Value
		if v.Numeric != nil {
			cv.Numeric = append([]int64(nil), v.Numeric...)
		}
		if v.Strings != nil {
			cv.Strings = append([]LocString(nil), v.Strings...)
		}
		clone.Fields[i] = cv
	}
	if src.Parent != nil {
		v := *src.Parent
		clone.Parent = &v
	}
	return clone
}

// FieldIndex resolves a schema field name to its index.
func (t *Table) FieldIndex(name string) (int, bool) {
	for i, f := range t.Schema.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}
