package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEntityIdRoundTrip(t *testing.T) {
	e := EntityId{Low: 7, High: 0x0100_0000_0000_0000}
	var got EntityId
	require.NoError(t, got.Unmarshal(e.Marshal()))
	require.Equal(t, e, got)
}

func TestVariantRoundTrip(t *testing.T) {
	s := "hello"
	f := 3.25
	i := int64(-9)

	cases := []Variant{
		{StringValue: &s},
		{FloatValue: &f},
		{IntValue: &i},
		{BlobValue: []byte{1, 2, 3}},
	}
	for _, v := range cases {
		var got Variant
		require.NoError(t, got.Unmarshal(v.Marshal()))
		require.Equal(t, v, got)
	}
}

func TestClientRequestCommandLookup(t *testing.T) {
	req := ClientRequest{Attribute: []Attribute{
		{Name: "Param_Identity", Value: BlobVariant([]byte("x"))},
		{Name: "Command_RealmListTicketRequest_v1_b9", Value: StringVariant("")},
	}}

	encoded := req.Marshal()
	var decoded ClientRequest
	require.NoError(t, decoded.Unmarshal(encoded))
	require.Len(t, decoded.Attribute, 2)

	cmd, ok := decoded.Command()
	require.True(t, ok)
	require.Equal(t, "Command_RealmListTicketRequest_v1_b9", cmd.Name)

	_, ok = decoded.ByName("Param_Identity")
	require.True(t, ok)

	_, ok = decoded.ByName("Param_Missing")
	require.False(t, ok)
}

func TestClientResponseWithAttribute(t *testing.T) {
	resp := ClientResponse{}.
		WithAttribute("Param_RealmListTicket", BlobVariant([]byte("AuthRealmListTicket")))

	var decoded ClientResponse
	require.NoError(t, decoded.Unmarshal(resp.Marshal()))
	require.Len(t, decoded.Attribute, 1)
	require.Equal(t, "Param_RealmListTicket", decoded.Attribute[0].Name)
	require.Equal(t, []byte("AuthRealmListTicket"), decoded.Attribute[0].Value.BlobValue)
}

func TestLogonResultRoundTrip(t *testing.T) {
	acct := EntityId{Low: 55, High: 0x0100_0000_0000_0000}
	game := EntityId{Low: 99, High: 0x0200_0002_0057_6F57}
	lr := LogonResult{
		ErrorCode:     0,
		AccountId:     &acct,
		GameAccountId: []EntityId{game},
		GeoipCountry:  "US",
		SessionKey:    make([]byte, 64),
	}

	var decoded LogonResult
	require.NoError(t, decoded.Unmarshal(lr.Marshal()))
	require.Equal(t, lr.ErrorCode, decoded.ErrorCode)
	require.Equal(t, *lr.AccountId, *decoded.AccountId)
	require.Equal(t, lr.GameAccountId, decoded.GameAccountId)
	require.Equal(t, lr.GeoipCountry, decoded.GeoipCountry)
	require.Equal(t, lr.SessionKey, decoded.SessionKey)
}

func TestGetAccountStateResponseTaggedField(t *testing.T) {
	privacy := PrivacyInfo{IsHiddenFromFriendFinder: true}
	resp := GetAccountStateResponse{Fields: []Field{
		{Tag: TagPrivacyInfo, Message: privacy.Marshal()},
	}}

	var decoded GetAccountStateResponse
	require.NoError(t, decoded.Unmarshal(resp.Marshal()))
	require.Len(t, decoded.Fields, 1)
	require.Equal(t, TagPrivacyInfo, decoded.Fields[0].Tag)

	var gotPrivacy PrivacyInfo
	require.NoError(t, gotPrivacy.Unmarshal(decoded.Fields[0].Message))
	require.True(t, gotPrivacy.IsHiddenFromFriendFinder)
	require.False(t, gotPrivacy.IsUsingRid)
}

func TestGameStatusOptionalSuspensionExpires(t *testing.T) {
	gs := GameStatus{IsBanned: true}
	var decoded GameStatus
	require.NoError(t, decoded.Unmarshal(gs.Marshal()))
	require.Nil(t, decoded.SuspensionExpires)

	expires := int64(1_700_000_000_000_000)
	gs.SuspensionExpires = &expires
	require.NoError(t, decoded.Unmarshal(gs.Marshal()))
	require.NotNil(t, decoded.SuspensionExpires)
	require.Equal(t, expires, *decoded.SuspensionExpires)
}
