package realm

import (
	"compress/zlib"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRealmEntryJSON(t *testing.T) {
	reg := NewRegistry(&fakeStore{realms: []Realm{testRealm()}})
	require.NoError(t, reg.Refresh(context.Background()))

	entry, ok := reg.RealmEntry(testRealm().Address, ClientVersion{})
	require.True(t, ok)
	require.Equal(t, "Azuremyst", entry.Name)
	require.Equal(t, testRealm().Address.Address(), entry.WowRealmAddress)

	_, ok = reg.RealmEntry(Handle{Region: 9, Site: 9, Realm: 9}, ClientVersion{})
	require.False(t, ok)
}

func TestRealmListJSONFiltersBySubregion(t *testing.T) {
	other := testRealm()
	other.Address = Handle{Region: 2, Site: 1, Realm: 1}
	other.Subregion = "EU"

	reg := NewRegistry(&fakeStore{realms: []Realm{testRealm(), other}})
	require.NoError(t, reg.Refresh(context.Background()))

	body, err := reg.RealmListJSON("US")
	require.NoError(t, err)

	var payload realmListPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Updates, 1)
	require.Equal(t, "Azuremyst", payload.Updates[0].Update.Name)
}

func TestCompressWithPrefixRoundTrips(t *testing.T) {
	compressed, err := CompressWithPrefix(PrefixRealmEntry, []byte(`{"a":1}`))
	require.NoError(t, err)

	r, err := zlib.NewReader(strings.NewReader(string(compressed)))
	require.NoError(t, err)
	defer r.Close()

	plain, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, `JamJSONRealmEntry:{"a":1}`, string(plain))
}

func TestCharacterCountListJSON(t *testing.T) {
	body, err := CharacterCountListJSON(map[Handle]int32{{Region: 1, Site: 1, Realm: 1}: 3})
	require.NoError(t, err)

	var payload characterCountPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Counts, 1)
	require.EqualValues(t, 3, payload.Counts[0].Count)
}
