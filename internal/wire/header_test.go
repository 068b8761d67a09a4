package wire

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	hash := uint32(0xdeadbeef)
	status := uint32(7)
	size := uint32(128)

	h := Header{
		ServiceHash: &hash,
		MethodID:    3,
		Token:       42,
		Status:      &status,
		ServiceID:   1,
		Size:        &size,
	}

	encoded := h.Marshal()
	var decoded Header
	if err := decoded.Unmarshal(encoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.MethodID != h.MethodID || decoded.Token != h.Token || decoded.ServiceID != h.ServiceID {
		t.Fatalf("scalar fields mismatch: got %+v", decoded)
	}
	if decoded.ServiceHash == nil || *decoded.ServiceHash != hash {
		t.Fatalf("ServiceHash mismatch: got %v", decoded.ServiceHash)
	}
	if decoded.Status == nil || *decoded.Status != status {
		t.Fatalf("Status mismatch: got %v", decoded.Status)
	}
	if decoded.Size == nil || *decoded.Size != size {
		t.Fatalf("Size mismatch: got %v", decoded.Size)
	}
}

func TestHeaderOptionalFieldsAbsent(t *testing.T) {
	h := Header{MethodID: 1, Token: 2, ServiceID: 0}
	var decoded Header
	if err := decoded.Unmarshal(h.Marshal()); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ServiceHash != nil {
		t.Fatalf("expected nil ServiceHash, got %v", decoded.ServiceHash)
	}
	if decoded.Status != nil {
		t.Fatalf("expected nil Status, got %v", decoded.Status)
	}
	if decoded.Size != nil {
		t.Fatalf("expected nil Size, got %v", decoded.Size)
	}
}

func TestHeaderIsResponse(t *testing.T) {
	req := Header{ServiceID: 0}
	resp := Header{ServiceID: ServiceIDResponse}
	if req.IsResponse() {
		t.Fatal("request header reported as response")
	}
	if !resp.IsResponse() {
		t.Fatal("response header not detected")
	}
}
