package wire

import "fmt"

// ServiceIDResponse is the sentinel service_id value marking a frame as a
// response rather than a request.
const ServiceIDResponse = 0xFE

// Header is the fixed envelope that precedes every frame payload.
type Header struct {
	ServiceHash *uint32 // field 1, optional: absent on response frames
	MethodID    uint32  // field 2
	Token       uint32  // field 3
	Status      *uint32 // field 4, optional: set iff the handler returned an error
	ServiceID   uint8   // field 5
	Size        *uint32 // field 6, optional: absent when there is no payload
}

// Marshal encodes h using the protobuf wire format.
func (h Header) Marshal() []byte {
	var buf []byte
	if h.ServiceHash != nil {
		buf = appendUint32Field(buf, 1, *h.ServiceHash)
	}
	buf = appendUint32Field(buf, 2, h.MethodID)
	buf = appendUint32Field(buf, 3, h.Token)
	if h.Status != nil {
		buf = appendUint32Field(buf, 4, *h.Status)
	}
	buf = appendUint32Field(buf, 5, uint32(h.ServiceID))
	if h.Size != nil {
		buf = appendUint32Field(buf, 6, *h.Size)
	}
	return buf
}

// Unmarshal decodes a Header from its protobuf wire representation.
func (h *Header) Unmarshal(buf []byte) error {
	fields, err := decodeFields(buf)
	if err != nil {
		return fmt.Errorf("decoding header: %w", err)
	}
	*h = Header{}
	for _, f := range fields {
		switch f.num {
		case 1:
			v := uint32(f.varintVal)
			h.ServiceHash = &v
		case 2:
			h.MethodID = uint32(f.varintVal)
		case 3:
			h.Token = uint32(f.varintVal)
		case 4:
			v := uint32(f.varintVal)
			h.Status = &v
		case 5:
			h.ServiceID = uint8(f.varintVal)
		case 6:
			v := uint32(f.varintVal)
			h.Size = &v
		}
	}
	return nil
}

// IsResponse reports whether this header identifies a response frame.
func (h Header) IsResponse() bool {
	return h.ServiceID == ServiceIDResponse
}
