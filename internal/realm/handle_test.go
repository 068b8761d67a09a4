package realm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleAddressRoundTrip(t *testing.T) {
	for _, h := range []Handle{
		{Region: 1, Site: 1, Realm: 1},
		{Region: 0, Site: 0, Realm: 0},
		{Region: 255, Site: 128, Realm: 7},
	} {
		require.Equal(t, h, HandleFromAddress(h.Address()))
	}
}

func TestHandleAddress(t *testing.T) {
	h := Handle{Region: 1, Site: 1, Realm: 1}
	require.Equal(t, uint32(0x01010001), h.Address())
	require.Equal(t, uint32(0x00010001), h.SubregionAddress())
}
