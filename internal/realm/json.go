package realm

import (
	"bytes"
	"compress/flate"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zlib"
)

// RealmEntry is the serializable realm description sent to clients.
type RealmEntry struct {
	WowRealmAddress   uint32 `json:"wowRealmAddress"`
	CfgTimezonesID    int32  `json:"cfgTimezonesID"`
	PopulationState   int32  `json:"populationState"`
	CfgCategoriesID   uint32 `json:"cfgCategoriesID"`
	Version           struct {
		VersionMajor    uint32 `json:"versionMajor"`
		VersionMinor    uint32 `json:"versionMinor"`
		VersionRevision uint32 `json:"versionRevision"`
		VersionBuild    uint32 `json:"versionBuild"`
	} `json:"version"`
	CfgRealmsID   uint32 `json:"cfgRealmsID"`
	Flags         uint32 `json:"flags"`
	Name          string `json:"name"`
	CfgConfigsID  uint32 `json:"cfgConfigsID"`
	CfgLanguagesID uint32 `json:"cfgLanguagesID"`
}

// RealmEntry builds the RealmEntry payload for a known realm, or reports
// false if handle is unknown.
func (r *Registry) RealmEntry(handle Handle, _ ClientVersion) (RealmEntry, bool) {
	rl, ok := r.Lookup(handle)
	if !ok {
		return RealmEntry{}, false
	}
	return realmEntry(rl), true
}

func realmEntry(rl Realm) RealmEntry {
	var e RealmEntry
	e.WowRealmAddress = rl.Address.Address()
	e.CfgTimezonesID = rl.Timezone
	e.PopulationState = int32(rl.PopulationState())
	e.CfgCategoriesID = rl.CategoryID
	e.Version.VersionMajor = rl.Build.Major
	e.Version.VersionMinor = rl.Build.Minor
	e.Version.VersionRevision = rl.Build.Revision
	e.Version.VersionBuild = rl.Build.Build
	e.CfgRealmsID = rl.RealmsConfigID
	e.Flags = uint32(rl.Flags)
	e.Name = rl.Name
	e.CfgConfigsID = rl.ConfigsID
	e.CfgLanguagesID = rl.LanguagesID
	return e
}

// realmUpdate is one element of RealmListJSON's updates array.
type realmUpdate struct {
	Update   *RealmEntry `json:"update"`
	Deleting bool        `json:"deleting"`
}

type realmListPayload struct {
	Updates []realmUpdate `json:"updates"`
}

// RealmListJSON builds the "{ updates: [...] }" payload, filtered to
// subregion when non-empty, plus deletions observed since the previous
// refresh.
func (r *Registry) RealmListJSON(subregion string) ([]byte, error) {
	var updates []realmUpdate
	r.Each(func(rl Realm) {
		if subregion != "" && rl.Subregion != subregion {
			return
		}
		e := realmEntry(rl)
		updates = append(updates, realmUpdate{Update: &e})
	})
	for _, h := range r.removedSinceLastRefresh() {
		updates = append(updates, realmUpdate{Update: nil, Deleting: true})
		_ = h // handle identity isn't round-tripped to the client, only the deletion marker is
	}
	return json.Marshal(realmListPayload{Updates: updates})
}

type characterCount struct {
	WowRealmAddress uint32 `json:"wowRealmAddress"`
	Count           int32  `json:"count"`
}

type characterCountPayload struct {
	Counts []characterCount `json:"counts"`
}

// CharacterCountListJSON builds the "{ counts: [...] }" payload from a
// handle-to-count map supplied by the account layer.
func CharacterCountListJSON(counts map[Handle]int32) ([]byte, error) {
	payload := characterCountPayload{Counts: make([]characterCount, 0, len(counts))}
	for h, c := range counts {
		payload.Counts = append(payload.Counts, characterCount{WowRealmAddress: h.Address(), Count: c})
	}
	return json.Marshal(payload)
}

// Address is one (ip, port) endpoint within an AddressFamily.
type Address struct {
	IP   string `json:"ip"`
	Port uint16 `json:"port"`
}

// AddressFamily groups the addresses reachable over one family (1 =
// IPv4) for a realm join.
type AddressFamily struct {
	Family    int32     `json:"family"`
	Addresses []Address `json:"addresses"`
}

type serverAddressesPayload struct {
	Families []AddressFamily `json:"families"`
}

// ServerAddressesJSON builds the "{ families: [...] }" payload from
// ResolveServerAddresses' result.
func ServerAddressesJSON(families []AddressFamily) ([]byte, error) {
	return json.Marshal(serverAddressesPayload{Families: families})
}

// CompressWithPrefix zlib-compresses prefix+body as one stream. Every
// attribute blob the client decompresses expects the plaintext literal
// prefix concatenated with the JSON, not the JSON alone.
func CompressWithPrefix(prefix string, body []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, flate.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("realm: zlib writer: %w", err)
	}
	if _, err := w.Write([]byte(prefix)); err != nil {
		return nil, fmt.Errorf("realm: zlib write prefix: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return nil, fmt.Errorf("realm: zlib write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("realm: zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	PrefixRealmEntry           = "JamJSONRealmEntry:"
	PrefixRealmListUpdates     = "JSONRealmListUpdates:"
	PrefixCharacterCountList   = "JSONRealmCharacterCountList:"
	PrefixServerIPAddresses    = "JSONRealmListServerIPAddresses:"
)
