package db2

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildWDC1 assembles a minimal regular-layout WDC1 file: inline int32 id,
// a single-locale string field, and a trailing int32 value field. No
// FieldStorageInfo, pallet, common, or relationship sections.
func buildWDC1(t *testing.T, layoutHash uint32, ids []int32, names []string, values []int32, copies map[int32]int32) []byte {
	t.Helper()
	require.Equal(t, len(ids), len(names))
	require.Equal(t, len(ids), len(values))

	const recordSize = 12 // id(4) + name-offset(4) + value(4)
	fieldCount := 3

	var stringPool []byte
	stringPool = append(stringPool, 0) // offset 0 is reserved for the empty string
	nameOffsets := make([]int32, len(names))
	for i, n := range names {
		nameOffsets[i] = int32(len(stringPool))
		stringPool = append(stringPool, []byte(n)...)
		stringPool = append(stringPool, 0)
	}

	var recordRegion []byte
	for i := range ids {
		rec := make([]byte, recordSize)
		binary.LittleEndian.PutUint32(rec[0:4], uint32(ids[i]))
		// string offset: the name's position within the string pool.
		// decodeLocStringField reads the stored int32 as a pool-absolute offset for
		// this synthetic fixture (rel==absolute keeps the test construction simple).
		binary.LittleEndian.PutUint32(rec[4:8], uint32(nameOffsets[i]))
		binary.LittleEndian.PutUint32(rec[8:12], uint32(values[i]))
		recordRegion = append(recordRegion, rec...)
	}

	var copyTable []byte
	for newID, srcID := range copies {
		e := make([]byte, 8)
		binary.LittleEndian.PutUint32(e[0:4], uint32(newID))
		binary.LittleEndian.PutUint32(e[4:8], uint32(srcID))
		copyTable = append(copyTable, e...)
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

	header := make([]byte, headerSize)
	copy(header[0:4], magic[:])
	le := binary.LittleEndian
	le.PutUint32(header[4:8], uint32(len(ids)))
	le.PutUint32(header[8:12], uint32(fieldCount))
	le.PutUint32(header[12:16], uint32(recordSize))
	le.PutUint32(header[16:20], uint32(len(stringPool)))
	le.PutUint32(header[20:24], 0) // table hash, unused by the decoder
	le.PutUint32(header[24:28], layoutHash)
	le.PutUint32(header[28:32], uint32(minID))
	le.PutUint32(header[32:36], uint32(maxID))
	le.PutUint32(header[36:40], uint32(LocaleEnUS))
	le.PutUint32(header[40:44], uint32(len(copyTable)))
	le.PutUint16(header[44:46], 0) // flags: regular layout, inline ids
	le.PutUint16(header[46:48], 0)
	le.PutUint32(header[48:52], uint32(fieldCount))

	var out []byte
	out = append(out, header...)
	out = append(out, make([]byte, fieldCount*fieldStructureEntrySize)...)
	out = append(out, recordRegion...)
	out = append(out, stringPool...)
	out = append(out, copyTable...)
	return out
}

func testSchema(layoutHash uint32) Schema {
	return Schema{
		LayoutHash: layoutHash,
		Fields: []FieldSchema{
			{Name: "ID", Type: FieldI32, Arity: 1},
			{Name: "Name", Type: FieldLocString, Arity: 1},
			{Name: "Value", Type: FieldI32, Arity: 1},
		},
		IDFieldIndex: 0,
	}
}

func TestDecodeRegularLayout(t *testing.T) {
	schema := testSchema(0xCAFEBABE)
	data := buildWDC1(t, schema.LayoutHash, []int32{5, 7}, []string{"Alpha", "Beta"}, []int32{100, 200}, nil)

	tbl, err := Decode(data, schema, LocaleEnUS)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	r, ok := tbl.GetByID(5)
	require.True(t, ok)
	require.Equal(t, int64(5), r.ID)
	require.Equal(t, int64(100), r.Fields[2].Numeric[0])
	require.Equal(t, "Alpha", r.Fields[1].Strings[0].Get(LocaleEnUS))

	r2, ok := tbl.GetByID(7)
	require.True(t, ok)
	require.Equal(t, "Beta", r2.Fields[1].Strings[0].Get(LocaleEnUS))
}

func TestDecodeCopyExpansion(t *testing.T) {
	schema := testSchema(0x1)
	data := buildWDC1(t, schema.LayoutHash, []int32{1}, []string{"Original"}, []int32{42}, map[int32]int32{9: 1})

	tbl, err := Decode(data, schema, LocaleEnUS)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	src, _ := tbl.GetByID(1)
	cp, ok := tbl.GetByID(9)
	require.True(t, ok)
	require.Equal(t, int64(9), cp.ID)
	require.Equal(t, src.Fields[2].Numeric, cp.Fields[2].Numeric)
	require.Equal(t, src.Fields[1].Strings, cp.Fields[1].Strings)
}

func TestDecodeRejectsLayoutHashMismatch(t *testing.T) {
	schema := testSchema(0x1)
	data := buildWDC1(t, 0x2, []int32{1}, []string{"x"}, []int32{1}, nil)

	_, err := Decode(data, schema, LocaleEnUS)
	require.Error(t, err)
}

func TestDecodeRejectsMissingLocale(t *testing.T) {
	schema := testSchema(0x1)
	data := buildWDC1(t, schema.LayoutHash, []int32{1}, []string{"x"}, []int32{1}, nil)

	_, err := Decode(data, schema, LocaleDeDE)
	require.Error(t, err)
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	schema := testSchema(0x1)
	data := buildWDC1(t, schema.LayoutHash, []int32{1}, []string{"x"}, []int32{1}, nil)
	data = append(data, 0xFF)

	_, err := Decode(data, schema, LocaleEnUS)
	require.Error(t, err)
}

func TestMergeLocaleOverwritesOnlyStrings(t *testing.T) {
	schema := testSchema(0x1)
	primary := buildWDC1(t, schema.LayoutHash, []int32{1, 2}, []string{"One", "Two"}, []int32{10, 20}, nil)
	tbl, err := Decode(primary, schema, LocaleEnUS)
	require.NoError(t, err)

	frFile := buildWDC1(t, schema.LayoutHash, []int32{1, 2}, []string{"Un", "Deux"}, []int32{999, 999}, nil)
	binary.LittleEndian.PutUint32(frFile[36:40], uint32(LocaleFrFR)) // the frFR file's locale mask
	require.NoError(t, MergeLocale(tbl, frFile, schema, LocaleFrFR))

	r1, _ := tbl.GetByID(1)
	require.Equal(t, "One", r1.Fields[1].Strings[0].Get(LocaleEnUS))
	require.Equal(t, "Un", r1.Fields[1].Strings[0].Get(LocaleFrFR))
	require.Equal(t, int64(10), r1.Fields[2].Numeric[0], "non-string fields must be untouched by locale merge")
}

// rawHeader assembles a WDC1 header directly; fields the decoder ignores
// stay zero.
type rawHeader struct {
	recordCount          uint32
	fieldCount           uint32
	recordSize           uint32
	stringTableSize      uint32
	layoutHash           uint32
	minID, maxID         uint32
	copyTableSize        uint32
	flags                WDCFlags
	offsetMapOffset      uint32
	fieldStorageInfoSize uint32
	commonDataSize       uint32
	palletDataSize       uint32
	relationshipDataSize uint32
}

func (h rawHeader) bytes() []byte {
	buf := make([]byte, headerSize)
	copy(buf[0:4], magic[:])
	le := binary.LittleEndian
	le.PutUint32(buf[4:8], h.recordCount)
	le.PutUint32(buf[8:12], h.fieldCount)
	le.PutUint32(buf[12:16], h.recordSize)
	le.PutUint32(buf[16:20], h.stringTableSize)
	le.PutUint32(buf[24:28], h.layoutHash)
	le.PutUint32(buf[28:32], h.minID)
	le.PutUint32(buf[32:36], h.maxID)
	le.PutUint32(buf[36:40], uint32(LocaleEnUS))
	le.PutUint32(buf[40:44], h.copyTableSize)
	le.PutUint16(buf[44:46], uint16(h.flags))
	le.PutUint32(buf[48:52], h.fieldCount)
	le.PutUint32(buf[60:64], h.offsetMapOffset)
	le.PutUint32(buf[68:72], h.fieldStorageInfoSize)
	le.PutUint32(buf[72:76], h.commonDataSize)
	le.PutUint32(buf[76:80], h.palletDataSize)
	le.PutUint32(buf[80:84], h.relationshipDataSize)
	return buf
}

func storageEntry(offsetBits, sizeBits int, additional uint32, c FieldCompression, params [3]uint32) []byte {
	e := make([]byte, fieldStorageInfoEntrySize)
	le := binary.LittleEndian
	le.PutUint32(e[0:4], uint32(offsetBits))
	le.PutUint32(e[4:8], uint32(sizeBits))
	le.PutUint32(e[8:12], additional)
	le.PutUint32(e[12:16], uint32(c))
	le.PutUint32(e[16:20], params[0])
	le.PutUint32(e[20:24], params[1])
	le.PutUint32(e[24:28], params[2])
	return e
}

func TestDecodeOffsetMapLayout(t *testing.T) {
	schema := Schema{
		LayoutHash: 0x0FF5E701,
		Fields: []FieldSchema{
			{Name: "Value", Type: FieldU32, Arity: 1},
			{Name: "Name", Type: FieldLocString, Arity: 1},
		},
		IDFieldIndex: -1, // ids come from min_id + record index
	}

	le := binary.LittleEndian
	recordRegionStart := headerSize + len(schema.Fields)*fieldStructureEntrySize

	recA := make([]byte, 4)
	le.PutUint32(recA, 100)
	recA = append(recA, []byte("Foo\x00")...)

	recB := make([]byte, 4)
	le.PutUint32(recB, 200)
	recB = append(recB, []byte("Grom\x00")...)

	catalogStart := recordRegionStart + len(recA) + len(recB)

	// Three catalog slots for ids 4..6; id 5 stays (0, 0) = deleted.
	catalog := make([]byte, 3*offsetMapEntrySize)
	le.PutUint32(catalog[0:4], uint32(recordRegionStart))
	le.PutUint16(catalog[4:6], uint16(len(recA)))
	le.PutUint32(catalog[12:16], uint32(recordRegionStart+len(recA)))
	le.PutUint16(catalog[16:18], uint16(len(recB)))

	h := rawHeader{
		recordCount:     2,
		fieldCount:      uint32(len(schema.Fields)),
		layoutHash:      schema.LayoutHash,
		minID:           4,
		maxID:           6,
		flags:           FlagHasOffsetMap,
		offsetMapOffset: uint32(catalogStart),
	}

	var data []byte
	data = append(data, h.bytes()...)
	data = append(data, make([]byte, len(schema.Fields)*fieldStructureEntrySize)...)
	data = append(data, recA...)
	data = append(data, recB...)
	data = append(data, catalog...)

	tbl, err := Decode(data, schema, LocaleEnUS)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	a, ok := tbl.GetByID(4)
	require.True(t, ok)
	require.Equal(t, int64(100), a.Fields[0].Numeric[0])
	require.Equal(t, "Foo", a.Fields[1].Strings[0].Get(LocaleEnUS), "offset-map strings are inline in the record")

	_, ok = tbl.GetByID(5)
	require.False(t, ok, "a (0,0) catalog entry is a deleted row")

	b, ok := tbl.GetByID(6)
	require.True(t, ok)
	require.Equal(t, int64(200), b.Fields[0].Numeric[0])
	require.Equal(t, "Grom", b.Fields[1].Strings[0].Get(LocaleEnUS))
}

func TestDecodeOffsetMapRejectsTrailingBytes(t *testing.T) {
	schema := Schema{
		LayoutHash:   0x0FF5E702,
		Fields:       []FieldSchema{{Name: "Value", Type: FieldU32, Arity: 1}},
		IDFieldIndex: -1,
	}

	le := binary.LittleEndian
	recordRegionStart := headerSize + fieldStructureEntrySize

	rec := make([]byte, 4)
	le.PutUint32(rec, 9)

	catalog := make([]byte, offsetMapEntrySize)
	le.PutUint32(catalog[0:4], uint32(recordRegionStart))
	le.PutUint16(catalog[4:6], uint16(len(rec)))

	h := rawHeader{
		recordCount:     1,
		fieldCount:      1,
		layoutHash:      schema.LayoutHash,
		minID:           1,
		maxID:           1,
		flags:           FlagHasOffsetMap,
		offsetMapOffset: uint32(recordRegionStart + len(rec)),
	}

	var data []byte
	data = append(data, h.bytes()...)
	data = append(data, make([]byte, fieldStructureEntrySize)...)
	data = append(data, rec...)
	data = append(data, catalog...)

	_, err := Decode(data, schema, LocaleEnUS)
	require.NoError(t, err, "well-formed offset-map file must decode")

	_, err = Decode(append(data, 0xAB), schema, LocaleEnUS)
	require.Error(t, err, "trailing bytes after the last declared section are malformed in any layout")
}

// bitpackedTestSchema is the shared two-field shape used by the
// compression-variant tests: an inline 32-bit id and one packed field.
func bitpackedTestSchema(layoutHash uint32, valueType FieldType, arity int) Schema {
	return Schema{
		LayoutHash: layoutHash,
		Fields: []FieldSchema{
			{Name: "ID", Type: FieldI32, Arity: 1},
			{Name: "Value", Type: valueType, Arity: arity},
		},
		IDFieldIndex: 0,
	}
}

func TestDecodeBitpackedInlined(t *testing.T) {
	schema := bitpackedTestSchema(0xB170001, FieldI32, 1)

	const recordSize = 5 // 32-bit id + 7 packed bits, byte-padded
	le := binary.LittleEndian
	records := make([]byte, 2*recordSize)
	le.PutUint32(records[0:4], 1)
	records[4] = 5 // +5
	le.PutUint32(records[5:9], 2)
	records[9] = 0x7D // -3 in 7-bit two's complement

	storage := storageEntry(0, 32, 0, CompressionNone, [3]uint32{})
	storage = append(storage, storageEntry(32, 7, 0, CompressionBitpackedInlined, [3]uint32{})...)

	h := rawHeader{
		recordCount:          2,
		fieldCount:           2,
		recordSize:           recordSize,
		layoutHash:           schema.LayoutHash,
		minID:                1,
		maxID:                2,
		fieldStorageInfoSize: uint32(len(storage)),
	}

	var data []byte
	data = append(data, h.bytes()...)
	data = append(data, make([]byte, 2*fieldStructureEntrySize)...)
	data = append(data, records...)
	data = append(data, storage...)

	tbl, err := Decode(data, schema, LocaleEnUS)
	require.NoError(t, err)

	r1, ok := tbl.GetByID(1)
	require.True(t, ok)
	require.Equal(t, int64(5), r1.Fields[1].Numeric[0])

	r2, ok := tbl.GetByID(2)
	require.True(t, ok)
	require.Equal(t, int64(-3), r2.Fields[1].Numeric[0], "packed values are sign-extended at their packed width for signed fields")
}

func TestDecodeCommonData(t *testing.T) {
	schema := bitpackedTestSchema(0xB170002, FieldI32, 1)

	const recordSize = 4 // only the id lives in the record body
	le := binary.LittleEndian
	records := make([]byte, 2*recordSize)
	le.PutUint32(records[0:4], 1)
	le.PutUint32(records[4:8], 2)

	// One exception entry: record 2 overrides the default.
	common := make([]byte, 8)
	le.PutUint32(common[0:4], 2)
	le.PutUint32(common[4:8], 0xFFFFFFF6) // -10

	storage := storageEntry(0, 32, 0, CompressionNone, [3]uint32{})
	storage = append(storage, storageEntry(0, 0, uint32(len(common)), CompressionCommonData, [3]uint32{7, 0, 0})...)

	h := rawHeader{
		recordCount:          2,
		fieldCount:           2,
		recordSize:           recordSize,
		layoutHash:           schema.LayoutHash,
		minID:                1,
		maxID:                2,
		fieldStorageInfoSize: uint32(len(storage)),
		commonDataSize:       uint32(len(common)),
	}

	var data []byte
	data = append(data, h.bytes()...)
	data = append(data, make([]byte, 2*fieldStructureEntrySize)...)
	data = append(data, records...)
	data = append(data, storage...)
	data = append(data, common...)

	tbl, err := Decode(data, schema, LocaleEnUS)
	require.NoError(t, err)

	r1, ok := tbl.GetByID(1)
	require.True(t, ok)
	require.Equal(t, int64(7), r1.Fields[1].Numeric[0], "records without an exception entry get the field default")

	r2, ok := tbl.GetByID(2)
	require.True(t, ok)
	require.Equal(t, int64(-10), r2.Fields[1].Numeric[0], "the exception table is keyed by record id")
}

func TestDecodeBitpackedIndexed(t *testing.T) {
	schema := bitpackedTestSchema(0xB170003, FieldU32, 1)

	const recordSize = 5 // 32-bit id + 2-bit palette index
	le := binary.LittleEndian
	records := make([]byte, 2*recordSize)
	le.PutUint32(records[0:4], 1)
	records[4] = 0 // palette index 0
	le.PutUint32(records[5:9], 2)
	records[9] = 1 // palette index 1

	pallet := make([]byte, 8)
	le.PutUint32(pallet[0:4], 100)
	le.PutUint32(pallet[4:8], 200)

	storage := storageEntry(0, 32, 0, CompressionNone, [3]uint32{})
	storage = append(storage, storageEntry(32, 2, uint32(len(pallet)), CompressionBitpackedIndexed, [3]uint32{})...)

	h := rawHeader{
		recordCount:          2,
		fieldCount:           2,
		recordSize:           recordSize,
		layoutHash:           schema.LayoutHash,
		minID:                1,
		maxID:                2,
		fieldStorageInfoSize: uint32(len(storage)),
		palletDataSize:       uint32(len(pallet)),
	}

	var data []byte
	data = append(data, h.bytes()...)
	data = append(data, make([]byte, 2*fieldStructureEntrySize)...)
	data = append(data, records...)
	data = append(data, storage...)
	data = append(data, pallet...)

	tbl, err := Decode(data, schema, LocaleEnUS)
	require.NoError(t, err)

	r1, _ := tbl.GetByID(1)
	require.Equal(t, int64(100), r1.Fields[1].Numeric[0])
	r2, _ := tbl.GetByID(2)
	require.Equal(t, int64(200), r2.Fields[1].Numeric[0])
}

func TestDecodeBitpackedIndexedArray(t *testing.T) {
	schema := bitpackedTestSchema(0xB170004, FieldU32, 2)

	const recordSize = 5 // 32-bit id + 2-bit palette index shared by both elements
	le := binary.LittleEndian
	records := make([]byte, 2*recordSize)
	le.PutUint32(records[0:4], 1)
	records[4] = 0
	le.PutUint32(records[5:9], 2)
	records[9] = 1

	// Two palette arrays of two uint32 elements each.
	pallet := make([]byte, 16)
	le.PutUint32(pallet[0:4], 10)
	le.PutUint32(pallet[4:8], 20)
	le.PutUint32(pallet[8:12], 30)
	le.PutUint32(pallet[12:16], 40)

	storage := storageEntry(0, 32, 0, CompressionNone, [3]uint32{})
	storage = append(storage, storageEntry(32, 2, uint32(len(pallet)), CompressionBitpackedIndexedArray, [3]uint32{})...)

	h := rawHeader{
		recordCount:          2,
		fieldCount:           2,
		recordSize:           recordSize,
		layoutHash:           schema.LayoutHash,
		minID:                1,
		maxID:                2,
		fieldStorageInfoSize: uint32(len(storage)),
		palletDataSize:       uint32(len(pallet)),
	}

	var data []byte
	data = append(data, h.bytes()...)
	data = append(data, make([]byte, 2*fieldStructureEntrySize)...)
	data = append(data, records...)
	data = append(data, storage...)
	data = append(data, pallet...)

	tbl, err := Decode(data, schema, LocaleEnUS)
	require.NoError(t, err)

	r1, _ := tbl.GetByID(1)
	require.Equal(t, []int64{10, 20}, r1.Fields[1].Numeric)
	r2, _ := tbl.GetByID(2)
	require.Equal(t, []int64{30, 40}, r2.Fields[1].Numeric)
}

func TestDecodeRelationshipParent(t *testing.T) {
	schema := bitpackedTestSchema(0xB170005, FieldI32, 1)
	schema.HasParent = true
	schema.ParentType = FieldI32

	const recordSize = 8
	le := binary.LittleEndian
	records := make([]byte, 2*recordSize)
	le.PutUint32(records[0:4], 1)
	le.PutUint32(records[4:8], 11)
	le.PutUint32(records[8:12], 2)
	le.PutUint32(records[12:16], 22)

	rel := make([]byte, 4+2*relationshipEntrySize)
	le.PutUint32(rel[0:4], 2) // entry count
	le.PutUint32(rel[4:8], 100)
	le.PutUint32(rel[8:12], 0) // record index 0
	le.PutUint32(rel[12:16], 0xFFFFFFFF)
	le.PutUint32(rel[16:20], 1) // record index 1

	h := rawHeader{
		recordCount:          2,
		fieldCount:           2,
		recordSize:           recordSize,
		layoutHash:           schema.LayoutHash,
		minID:                1,
		maxID:                2,
		flags:                FlagHasRelationshipData,
		relationshipDataSize: uint32(len(rel)),
	}

	var data []byte
	data = append(data, h.bytes()...)
	data = append(data, make([]byte, 2*fieldStructureEntrySize)...)
	data = append(data, records...)
	data = append(data, rel...)

	tbl, err := Decode(data, schema, LocaleEnUS)
	require.NoError(t, err)

	r1, ok := tbl.GetByID(1)
	require.True(t, ok)
	require.NotNil(t, r1.Parent)
	require.Equal(t, int64(100), *r1.Parent)

	r2, ok := tbl.GetByID(2)
	require.True(t, ok)
	require.NotNil(t, r2.Parent)
	require.Equal(t, int64(-1), *r2.Parent, "foreign keys are sign-extended per the declared parent type")

	// The same file against a schema with no parent slot is a mismatch.
	noParent := bitpackedTestSchema(0xB170005, FieldI32, 1)
	_, err = Decode(data, noParent, LocaleEnUS)
	require.Error(t, err)
}
