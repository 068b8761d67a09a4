package db2

import (
	"encoding/binary"
	"fmt"
)

// FieldCompression names how one field's values are stored on disk.
type FieldCompression uint32

const (
	CompressionNone FieldCompression = iota
	CompressionBitpackedInlined
	CompressionCommonData
	CompressionBitpackedIndexed
	CompressionBitpackedIndexedArray
)

func parseFieldCompression(v uint32) (FieldCompression, error) {
	switch FieldCompression(v) {
	case CompressionNone, CompressionBitpackedInlined, CompressionCommonData,
		CompressionBitpackedIndexed, CompressionBitpackedIndexedArray:
		return FieldCompression(v), nil
	default:
		return 0, fmt.Errorf("db2: unknown field compression %d", v)
	}
}

// fieldStorageInfoEntrySize is the fixed on-disk size of one
// FieldStorageInfo record: offset_bits, size_bits, additional_data_size,
// compression_type, then 3 compression-specific u32 parameters.
const fieldStorageInfoEntrySize = 4*4 + 4*3

// FieldStorageInfo describes one field's bit position and compression.
type FieldStorageInfo struct {
	FieldOffsetBits    int
	FieldSizeBits      int
	AdditionalDataSize uint32
	Compression        FieldCompression
	// CompressionData holds the compression-specific parameters:
	// CommonData default value in [0]; pallet array index base unused
	// for BitpackedIndexed/IndexedArray (the palette is addressed by the
	// decoded index directly).
	CompressionData [3]uint32
}

func parseFieldStorageInfo(buf []byte, count int) ([]FieldStorageInfo, error) {
	need := count * fieldStorageInfoEntrySize
	if len(buf) < need {
		return nil, fmt.Errorf("db2: field storage info: need %d bytes for %d fields, got %d", need, count, len(buf))
	}
	le := binary.LittleEndian
	out := make([]FieldStorageInfo, count)
	for i := 0; i < count; i++ {
		b := buf[i*fieldStorageInfoEntrySize:]
		compression, err := parseFieldCompression(le.Uint32(b[12:16]))
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		out[i] = FieldStorageInfo{
			FieldOffsetBits:    int(le.Uint32(b[0:4])),
			FieldSizeBits:      int(le.Uint32(b[4:8])),
			AdditionalDataSize: le.Uint32(b[8:12]),
			Compression:        compression,
			CompressionData: [3]uint32{
				le.Uint32(b[16:20]),
				le.Uint32(b[20:24]),
				le.Uint32(b[24:28]),
			},
		}
	}
	return out, nil
}
