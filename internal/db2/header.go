package db2

import (
	"encoding/binary"
	"fmt"
)

// magic identifies the WDC1 on-disk format.
var magic = [4]byte{'W', 'D', 'C', '1'}

// WDCFlags are the header's structural flag bits.
type WDCFlags uint16

const (
	FlagHasOffsetMap        WDCFlags = 0x01
	FlagHasRelationshipData WDCFlags = 0x02
	FlagHasNonInlinedIDs    WDCFlags = 0x04
	FlagIsBitpacked         WDCFlags = 0x10
)

func (f WDCFlags) has(bit WDCFlags) bool { return f&bit != 0 }

// headerSize is the fixed byte length of the WDC1 header.
const headerSize = 84

// Header is the fixed-size preamble of a WDC1 file.
type Header struct {
	Magic                 [4]byte
	RecordCount           uint32
	FieldCount            uint32
	RecordSize            uint32
	StringTableSize       uint32
	TableHash             uint32
	LayoutHash            uint32
	MinID                 uint32
	MaxID                 uint32
	LocaleMask            Locale
	CopyTableSize         uint32
	Flags                 WDCFlags
	IDIndex               uint16
	TotalFieldCount       uint32
	BitpackedDataOffset   uint32
	LookupColumnCount     uint32
	OffsetMapOffset       uint32
	IDListSize            uint32
	FieldStorageInfoSize  uint32
	CommonDataSize        uint32
	PalletDataSize        uint32
	RelationshipDataSize  uint32
}

func parseHeader(buf []byte) (Header, error) {
	if len(buf) < headerSize {
		return Header{}, fmt.Errorf("db2: short file: need %d header bytes, got %d", headerSize, len(buf))
	}
	var h Header
	copy(h.Magic[:], buf[0:4])
	if h.Magic != magic {
		return Header{}, fmt.Errorf("db2: bad magic %q, want %q", h.Magic, magic)
	}
	le := binary.LittleEndian
	h.RecordCount = le.Uint32(buf[4:8])
	h.FieldCount = le.Uint32(buf[8:12])
	h.RecordSize = le.Uint32(buf[12:16])
	h.StringTableSize = le.Uint32(buf[16:20])
	h.TableHash = le.Uint32(buf[20:24])
	h.LayoutHash = le.Uint32(buf[24:28])
	h.MinID = le.Uint32(buf[28:32])
	h.MaxID = le.Uint32(buf[32:36])
	h.LocaleMask = Locale(le.Uint32(buf[36:40]))
	h.CopyTableSize = le.Uint32(buf[40:44])
	h.Flags = WDCFlags(le.Uint16(buf[44:46]))
	h.IDIndex = le.Uint16(buf[46:48])
	h.TotalFieldCount = le.Uint32(buf[48:52])
	h.BitpackedDataOffset = le.Uint32(buf[52:56])
	h.LookupColumnCount = le.Uint32(buf[56:60])
	h.OffsetMapOffset = le.Uint32(buf[60:64])
	h.IDListSize = le.Uint32(buf[64:68])
	h.FieldStorageInfoSize = le.Uint32(buf[68:72])
	h.CommonDataSize = le.Uint32(buf[72:76])
	h.PalletDataSize = le.Uint32(buf[76:80])
	h.RelationshipDataSize = le.Uint32(buf[80:84])
	return h, nil
}

func (h Header) hasOffsetMap() bool        { return h.Flags.has(FlagHasOffsetMap) }
func (h Header) hasRelationshipData() bool { return h.Flags.has(FlagHasRelationshipData) }
func (h Header) hasNonInlinedIDs() bool    { return h.Flags.has(FlagHasNonInlinedIDs) }
