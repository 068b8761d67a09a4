package db2

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Table is a decoded DB2 table: an id-keyed map of records sharing one
// schema and layout hash.
type Table struct {
	Schema     Schema
	LayoutHash uint32
	records    map[int64]*Record
}

// GetByID looks up a record by its id; for every record r loaded from a
// table T, T.GetByID(r.ID) == r.
func (t *Table) GetByID(id int64) (*Record, bool) {
	r, ok := t.records[id]
	return r, ok
}

// Len returns the number of records, after copy expansion.
func (t *Table) Len() int { return len(t.records) }

// IDs returns every record id in ascending order.
func (t *Table) IDs() []int64 {
	ids := make([]int64, 0, len(t.records))
	for id := range t.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Each calls fn for every record in ascending id order.
func (t *Table) Each(fn func(*Record)) {
	for _, id := range t.IDs() {
		fn(t.records[id])
	}
}

const fieldStructureEntrySize = 4 // int16 size + int16 position
const offsetMapEntrySize = 6      // uint32 offset + uint16 size
const copyTableEntrySize = 8      // uint32 new_id + uint32 source_id
const idListEntrySize = 4
const relationshipEntrySize = 8 // uint32 foreign_id + uint32 record_index

// Decode parses data as a complete WDC1 file for the given locale against
// schema.
func Decode(data []byte, schema Schema, locale Locale) (*Table, error) {
	d, err := decodeFile(data, schema, locale)
	if err != nil {
		return nil, err
	}
	return &Table{Schema: schema, LayoutHash: d.header.LayoutHash, records: d.records}, nil
}

// MergeLocale decodes data (a per-locale file sharing the same schema and
// record ids as t) and merges only its localized-string fields into t's
// existing records at locale's slot, leaving every other field untouched.
func MergeLocale(t *Table, data []byte, schema Schema, locale Locale) error {
	d, err := decodeFile(data, schema, locale)
	if err != nil {
		return fmt.Errorf("db2: locale merge: %w", err)
	}
	if d.header.LayoutHash != t.LayoutHash {
		return fmt.Errorf("db2: locale merge: layout hash mismatch: %#x != %#x", d.header.LayoutHash, t.LayoutHash)
	}
	for id, src := range d.records {
		dst, ok := t.records[id]
		if !ok {
			// A hotfix/locale file may introduce records the primary
			// file never declared; adopt it wholesale.
			t.records[id] = src
			continue
		}
		for fi, fs := range schema.Fields {
			if fs.Type != FieldLocString {
				continue
			}
			for ai, ls := range src.Fields[fi].Strings {
				if err := dst.Fields[fi].Strings[ai].set(locale, ls.Get(locale)); err != nil {
					return fmt.Errorf("db2: locale merge: record %d field %q: %w", id, fs.Name, err)
				}
			}
		}
	}
	return nil
}

type decoded struct {
	header  Header
	records map[int64]*Record
}

func decodeFile(data []byte, schema Schema, locale Locale) (*decoded, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if h.LayoutHash != schema.LayoutHash {
		return nil, fmt.Errorf("db2: layout hash mismatch: file %#x, schema %#x", h.LayoutHash, schema.LayoutHash)
	}
	if len(schema.Fields) != int(h.FieldCount) {
		return nil, fmt.Errorf("db2: schema declares %d fields, file header has %d", len(schema.Fields), h.FieldCount)
	}
	if h.LocaleMask&locale == 0 {
		return nil, fmt.Errorf("db2: file locale mask %#x does not include requested locale %#x", uint32(h.LocaleMask), uint32(locale))
	}

	cursor := headerSize
	// Field-structure array: present but unused beyond validating length,
	// since FieldStorageInfo (below) is authoritative for bit layout.
	fsArrayLen := int(h.FieldCount) * fieldStructureEntrySize
	if cursor+fsArrayLen > len(data) {
		return nil, fmt.Errorf("db2: truncated field structure array")
	}
	cursor += fsArrayLen

	recordRegionStart := cursor
	var recordOffsets []int // byte offset of each record's data, by record index
	var recordSizes []int   // byte length of each record, by record index (offset-map only)
	var recordIDHints []int64 // precomputed id for non-inline-id schemas, parallel to recordOffsets
	var stringPool []byte

	if h.hasOffsetMap() {
		// Offset-map layout: variable-stride records, immediately followed
		// by a catalog of (offset, size) pairs covering [MinID, MaxID].
		numIDs := int(h.MaxID) - int(h.MinID) + 1
		if numIDs < 0 {
			return nil, fmt.Errorf("db2: invalid id range [%d,%d]", h.MinID, h.MaxID)
		}
		catalogStart := int(h.OffsetMapOffset)
		catalogLen := numIDs * offsetMapEntrySize
		if catalogStart < recordRegionStart || catalogStart+catalogLen > len(data) {
			return nil, fmt.Errorf("db2: offset map catalog out of range")
		}
		le := binary.LittleEndian
		for i := 0; i < numIDs; i++ {
			e := data[catalogStart+i*offsetMapEntrySize:]
			off := le.Uint32(e[0:4])
			size := le.Uint16(e[4:6])
			if off == 0 && size == 0 {
				continue // deleted row
			}
			if int(off)+int(size) > len(data) {
				return nil, fmt.Errorf("db2: offset map entry for id %d out of range", int(h.MinID)+i)
			}
			recordOffsets = append(recordOffsets, int(off))
			recordSizes = append(recordSizes, int(size))
			recordIDHints = append(recordIDHints, int64(h.MinID)+int64(i))
		}
		cursor = catalogStart + catalogLen
	} else {
		recordBytes := int(h.RecordCount) * int(h.RecordSize)
		if recordRegionStart+recordBytes+int(h.StringTableSize) > len(data) {
			return nil, fmt.Errorf("db2: truncated record region/string pool")
		}
		for i := 0; i < int(h.RecordCount); i++ {
			recordOffsets = append(recordOffsets, recordRegionStart+i*int(h.RecordSize))
			recordSizes = append(recordSizes, int(h.RecordSize))
			recordIDHints = append(recordIDHints, 0) // filled from idList below, if needed
		}
		cursor = recordRegionStart + recordBytes
		stringPool = data[cursor : cursor+int(h.StringTableSize)]
		cursor += int(h.StringTableSize)
	}

	// Inline ID list: absent when the schema has an inline id field.
	var idList []uint32
	if schema.IDFieldIndex < 0 && !h.hasOffsetMap() {
		n := int(h.RecordCount)
		need := n * idListEntrySize
		if cursor+need > len(data) {
			return nil, fmt.Errorf("db2: truncated id list")
		}
		le := binary.LittleEndian
		idList = make([]uint32, n)
		for i := 0; i < n; i++ {
			idList[i] = le.Uint32(data[cursor+i*idListEntrySize:])
			recordIDHints[i] = int64(idList[i])
		}
		cursor += need
	}

	// Copy table.
	if int(h.CopyTableSize)%copyTableEntrySize != 0 {
		return nil, fmt.Errorf("db2: copy table size %d not a multiple of %d", h.CopyTableSize, copyTableEntrySize)
	}
	numCopies := int(h.CopyTableSize) / copyTableEntrySize
	if cursor+int(h.CopyTableSize) > len(data) {
		return nil, fmt.Errorf("db2: truncated copy table")
	}
	type copyEntry struct{ newID, srcID uint32 }
	copies := make([]copyEntry, numCopies)
	{
		le := binary.LittleEndian
		for i := 0; i < numCopies; i++ {
			e := data[cursor+i*copyTableEntrySize:]
			copies[i] = copyEntry{newID: le.Uint32(e[0:4]), srcID: le.Uint32(e[4:8])}
		}
		cursor += int(h.CopyTableSize)
	}

	// Field storage info (optional: absent means every field is None
	// compression, at a fixed-stride layout computed from schema field
	// order).
	var storage []FieldStorageInfo
	if h.FieldStorageInfoSize > 0 {
		count := int(h.FieldStorageInfoSize) / fieldStorageInfoEntrySize
		if count != int(h.FieldCount) {
			return nil, fmt.Errorf("db2: field storage info has %d entries, want %d", count, h.FieldCount)
		}
		s, err := parseFieldStorageInfo(data[cursor:cursor+int(h.FieldStorageInfoSize)], count)
		if err != nil {
			return nil, err
		}
		storage = s
		cursor += int(h.FieldStorageInfoSize)
	} else {
		storage = defaultFieldStorage(schema)
	}

	if h.hasOffsetMap() {
		if err := checkNoBitpackingForOffsetMap(storage); err != nil {
			return nil, err
		}
	}

	// Pallet and common data blocks, split per field by AdditionalDataSize
	// in field order.
	palletBlocks, commonBlocks, err := splitAuxBlocks(data, cursor, storage, h)
	if err != nil {
		return nil, err
	}
	cursor += int(h.PalletDataSize) + int(h.CommonDataSize)

	// Relationship (foreign key) block.
	var relationships map[int]int64 // record index -> foreign id (sign-extended)
	if h.hasRelationshipData() {
		if !schema.HasParent {
			return nil, fmt.Errorf("db2: file declares relationship data but schema has no parent field")
		}
		rel, err := parseRelationships(data[cursor:cursor+int(h.RelationshipDataSize)], schema.ParentType)
		if err != nil {
			return nil, err
		}
		relationships = rel
		cursor += int(h.RelationshipDataSize)
	} else if schema.HasParent {
		return nil, fmt.Errorf("db2: schema declares a parent field but file has no relationship data")
	}

	// Applies to both layouts: the size-sum accounting above is specific
	// to the regular layout, but a file is malformed in either layout if
	// bytes trail the last declared section.
	if cursor != len(data) {
		return nil, fmt.Errorf("db2: %d bytes remain unconsumed after all declared sections", len(data)-cursor)
	}

	records := make(map[int64]*Record, len(recordOffsets)+numCopies)
	for idx, off := range recordOffsets {
		rec, err := decodeRecord(data, off, recordSizes[idx], schema, storage, stringPool, palletBlocks, commonBlocks, recordIDHints[idx], locale)
		if err != nil {
			return nil, fmt.Errorf("record index %d: %w", idx, err)
		}

		if fk, ok := relationships[idx]; ok {
			v := fk
			rec.Parent = &v
		}

		records[rec.ID] = rec
	}

	for _, c := range copies {
		src, ok := records[int64(c.srcID)]
		if !ok {
			return nil, fmt.Errorf("db2: copy table references unknown source id %d", c.srcID)
		}
		records[int64(c.newID)] = cloneRecord(src, int64(c.newID))
	}

	return &decoded{header: h, records: records}, nil
}

// decodeRecord decodes one record's fields starting at byte offset off
// within data. idHint is the id to assign when the schema has no inline
// id field (regular-layout id-list lookup or min_id+index for offset-map).
// The id is resolved before the field loop because CommonData exception
// lookups are keyed by record id regardless of field order.
func decodeRecord(data []byte, off, size int, schema Schema, storage []FieldStorageInfo, stringPool []byte, pallet, common [][]byte, idHint int64, locale Locale) (*Record, error) {
	rec := &Record{ID: idHint, Fields: make([]Value, len(schema.Fields))}
	recBuf := data[off : off+size]

	if i := schema.IDFieldIndex; i >= 0 {
		fs := schema.Fields[i]
		val, err := decodeField(data, recBuf, fs, storage[i], stringPool, pallet[i], common[i], idHint, locale)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fs.Name, err)
		}
		if len(val.Numeric) == 0 {
			return nil, fmt.Errorf("field %q: inline id field decoded no value", fs.Name)
		}
		rec.ID = val.Numeric[0]
	}

	for i, fs := range schema.Fields {
		st := storage[i]
		val, err := decodeField(data, recBuf, fs, st, stringPool, pallet[i], common[i], rec.ID, locale)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fs.Name, err)
		}
		rec.Fields[i] = val
	}
	return rec, nil
}

func decodeField(data, recBuf []byte, fs FieldSchema, st FieldStorageInfo, stringPool []byte, pallet, common []byte, recordID int64, locale Locale) (Value, error) {
	if fs.Type == FieldLocString {
		return decodeLocStringField(data, recBuf, fs, st, stringPool, locale)
	}

	width := st.FieldSizeBits
	if width <= 0 {
		width = fs.Type.BitWidth()
	}

	numeric := make([]int64, fs.Arity)
	for a := 0; a < fs.Arity; a++ {
		switch st.Compression {
		case CompressionNone, CompressionBitpackedInlined:
			bitOff := st.FieldOffsetBits + a*width
			raw, err := readBits(recBuf, bitOff, width)
			if err != nil {
				return Value{}, err
			}
			numeric[a] = applySign(raw, width, fs.Type)
		case CompressionCommonData:
			numeric[a] = decodeCommonData(common, recordID, int64(int32(st.CompressionData[0])), fs.Type)
		case CompressionBitpackedIndexed:
			idx, err := readBits(recBuf, st.FieldOffsetBits, width)
			if err != nil {
				return Value{}, err
			}
			v, err := palletUint32(pallet, int(idx))
			if err != nil {
				return Value{}, err
			}
			numeric[a] = applySign(uint64(v), 32, fs.Type)
		case CompressionBitpackedIndexedArray:
			idx, err := readBits(recBuf, st.FieldOffsetBits, width)
			if err != nil {
				return Value{}, err
			}
			v, err := palletUint32Array(pallet, int(idx), fs.Arity, a)
			if err != nil {
				return Value{}, err
			}
			numeric[a] = applySign(uint64(v), 32, fs.Type)
		default:
			return Value{}, fmt.Errorf("unknown compression %d", st.Compression)
		}
	}
	return Value{Numeric: numeric}, nil
}

func applySign(raw uint64, width int, t FieldType) int64 {
	if t.signed() {
		return signExtend(raw, width)
	}
	return int64(raw)
}

// decodeCommonData returns the field's value for recordID: the exception
// table entry if present, else the field's declared default.
func decodeCommonData(common []byte, recordID, defaultValue int64, t FieldType) int64 {
	const entrySize = 8 // uint32 record_id + uint32 value
	le := binary.LittleEndian
	for off := 0; off+entrySize <= len(common); off += entrySize {
		id := le.Uint32(common[off : off+4])
		if int64(id) == recordID {
			v := le.Uint32(common[off+4 : off+8])
			return applySign(uint64(v), 32, t)
		}
	}
	return defaultValue
}

func palletUint32(pallet []byte, index int) (uint32, error) {
	off := index * 4
	if off < 0 || off+4 > len(pallet) {
		return 0, fmt.Errorf("pallet index %d out of range (pallet has %d bytes)", index, len(pallet))
	}
	return binary.LittleEndian.Uint32(pallet[off : off+4]), nil
}

func palletUint32Array(pallet []byte, index, arity, element int) (uint32, error) {
	stride := arity * 4
	off := index*stride + element*4
	if off < 0 || off+4 > len(pallet) {
		return 0, fmt.Errorf("pallet array index %d element %d out of range", index, element)
	}
	return binary.LittleEndian.Uint32(pallet[off : off+4]), nil
}

// decodeLocStringField reads one localized-string field. Regular layout
// stores an int32 byte offset into the trailing string pool, pointing at
// a NUL-terminated string; offset-map layout (no string pool) stores the
// string inline in the variable-stride record, which is why db2 enforces no
// bit-packed compression for offset-map schemas.
func decodeLocStringField(data, recBuf []byte, fs FieldSchema, st FieldStorageInfo, stringPool []byte, locale Locale) (Value, error) {
	strs := make([]LocString, fs.Arity)
	byteOff := st.FieldOffsetBits / 8
	usingStringPool := stringPool != nil

	for a := 0; a < fs.Arity; a++ {
		elemOff := byteOff + a*4
		if usingStringPool {
			if elemOff+4 > len(recBuf) {
				return Value{}, fmt.Errorf("string field %q out of range", fs.Name)
			}
			rel := int32(binary.LittleEndian.Uint32(recBuf[elemOff : elemOff+4]))
			s, err := readCString(stringPool, int(rel))
			if err != nil {
				return Value{}, fmt.Errorf("string field %q: %w", fs.Name, err)
			}
			if err := strs[a].set(locale, s); err != nil {
				return Value{}, err
			}
		} else {
			s, err := readCString(recBuf, elemOff)
			if err != nil {
				return Value{}, fmt.Errorf("inline string field %q: %w", fs.Name, err)
			}
			if err := strs[a].set(locale, s); err != nil {
				return Value{}, err
			}
		}
	}
	return Value{Strings: strs}, nil
}

func readCString(buf []byte, off int) (string, error) {
	if off < 0 || off > len(buf) {
		return "", fmt.Errorf("string offset %d out of range (%d bytes available)", off, len(buf))
	}
	end := off
	for end < len(buf) && buf[end] != 0 {
		end++
	}
	if end >= len(buf) {
		return "", fmt.Errorf("unterminated string at offset %d", off)
	}
	return string(buf[off:end]), nil
}

// defaultFieldStorage builds a fixed-stride None-compression layout from
// schema field order, used when the file carries no explicit
// FieldStorageInfo array.
func defaultFieldStorage(schema Schema) []FieldStorageInfo {
	out := make([]FieldStorageInfo, len(schema.Fields))
	bitOffset := 0
	for i, f := range schema.Fields {
		if f.Type == FieldLocString {
			out[i] = FieldStorageInfo{FieldOffsetBits: bitOffset, Compression: CompressionNone}
			bitOffset += 32 * f.Arity // relative string-pool offset, one int32 per element
			continue
		}
		width := f.Type.BitWidth() * f.Arity
		out[i] = FieldStorageInfo{FieldOffsetBits: bitOffset, FieldSizeBits: f.Type.BitWidth(), Compression: CompressionNone}
		bitOffset += width
	}
	return out
}

func checkNoBitpackingForOffsetMap(storage []FieldStorageInfo) error {
	for i, s := range storage {
		if s.Compression == CompressionBitpackedInlined || s.Compression == CompressionBitpackedIndexed || s.Compression == CompressionBitpackedIndexedArray {
			return fmt.Errorf("db2: offset-map layout field %d uses bit-packed compression %d, unsupported", i, s.Compression)
		}
	}
	return nil
}

func splitAuxBlocks(data []byte, start int, storage []FieldStorageInfo, h Header) (pallet, common [][]byte, err error) {
	pallet = make([][]byte, len(storage))
	common = make([][]byte, len(storage))
	cursor := start
	var palletSum, commonSum uint32
	for i, s := range storage {
		switch s.Compression {
		case CompressionBitpackedIndexed, CompressionBitpackedIndexedArray:
			if cursor+int(s.AdditionalDataSize) > len(data) {
				return nil, nil, fmt.Errorf("db2: truncated pallet data for field %d", i)
			}
			pallet[i] = data[cursor : cursor+int(s.AdditionalDataSize)]
			cursor += int(s.AdditionalDataSize)
			palletSum += s.AdditionalDataSize
		case CompressionCommonData:
			if cursor+int(s.AdditionalDataSize) > len(data) {
				return nil, nil, fmt.Errorf("db2: truncated common data for field %d", i)
			}
			common[i] = data[cursor : cursor+int(s.AdditionalDataSize)]
			cursor += int(s.AdditionalDataSize)
			commonSum += s.AdditionalDataSize
		}
	}
	if palletSum != h.PalletDataSize {
		return nil, nil, fmt.Errorf("db2: pallet data sizes sum to %d, header declares %d", palletSum, h.PalletDataSize)
	}
	if commonSum != h.CommonDataSize {
		return nil, nil, fmt.Errorf("db2: common data sizes sum to %d, header declares %d", commonSum, h.CommonDataSize)
	}
	return pallet, common, nil
}

func parseRelationships(buf []byte, parentType FieldType) (map[int]int64, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("db2: truncated relationship block")
	}
	le := binary.LittleEndian
	n := int(le.Uint32(buf[0:4]))
	need := 4 + n*relationshipEntrySize
	if len(buf) != need {
		return nil, fmt.Errorf("db2: relationship block declares %d entries but has %d bytes, want %d", n, len(buf), need)
	}
	out := make(map[int]int64, n)
	width := parentType.BitWidth()
	for i := 0; i < n; i++ {
		e := buf[4+i*relationshipEntrySize:]
		foreignRaw := le.Uint32(e[0:4])
		recordIndex := int(le.Uint32(e[4:8]))
		var fk int64
		if parentType.signed() {
			fk = signExtend(uint64(foreignRaw), width)
		} else {
			fk = int64(foreignRaw)
		}
		out[recordIndex] = fk
	}
	return out, nil
}
