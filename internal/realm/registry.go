package realm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Flags are the realm's behavioral bits.
type Flags uint32

const (
	FlagRecommended Flags = 1 << 0
	FlagNew         Flags = 1 << 1
	FlagStrictBuild Flags = 1 << 2 // client build must match Realm.Build exactly
	FlagOffline     Flags = 1 << 3
)

func (f Flags) has(bit Flags) bool { return f&bit != 0 }

// PopulationState mirrors the client's coarse load indicator.
type PopulationState int32

const (
	PopulationOffline     PopulationState = 0
	PopulationLow         PopulationState = 1
	PopulationMedium      PopulationState = 2
	PopulationHigh        PopulationState = 3
	PopulationFull        PopulationState = 4
	PopulationRecommended PopulationState = 5
	PopulationNew         PopulationState = 6
)

// ClientVersion is the (major, minor, revision, build) tuple a realm
// advertises compatibility with.
type ClientVersion struct {
	Major    uint32
	Minor    uint32
	Revision uint32
	Build    uint32
}

// Realm is one known game world.
type Realm struct {
	Address              Handle
	ExternalIP           net.IP
	LocalIP              net.IP
	LocalSubnetMask      net.IPMask
	Port                 uint16
	Type                 uint32
	Name                 string
	Flags                Flags
	Timezone             int32
	AllowedSecurityLevel uint32
	Population           float32 // 0.0-1.0 load fraction, as reported by the realm
	Build                ClientVersion
	Subregion            string
	CategoryID           uint32
	ConfigsID            uint32
	RealmsConfigID       uint32
	LanguagesID          uint32
}

// PopulationState derives the coarse state the client displays from the
// realm's reported load and flags.
func (r Realm) PopulationState() PopulationState {
	switch {
	case r.Flags.has(FlagOffline):
		return PopulationOffline
	case r.Flags.has(FlagNew):
		return PopulationNew
	case r.Flags.has(FlagRecommended):
		return PopulationRecommended
	case r.Population >= 1.0:
		return PopulationFull
	case r.Population >= 0.66:
		return PopulationHigh
	case r.Population >= 0.33:
		return PopulationMedium
	default:
		return PopulationLow
	}
}

// onSameSubnet reports whether ip falls within the realm's local subnet.
func (r Realm) onSameSubnet(ip net.IP) bool {
	if r.LocalIP == nil || len(r.LocalSubnetMask) == 0 {
		return false
	}
	ip4 := ip.To4()
	local4 := r.LocalIP.To4()
	if ip4 == nil || local4 == nil {
		return false
	}
	net1 := ip4.Mask(r.LocalSubnetMask)
	net2 := local4.Mask(r.LocalSubnetMask)
	return net1.Equal(net2)
}

// Store is the database surface the registry refreshes from and writes
// join tickets to.
type Store interface {
	ListRealms(ctx context.Context) ([]Realm, error)
	ListSubregions(ctx context.Context) ([]string, error)
	InsertJoinTicket(ctx context.Context, t JoinTicket) error
}

// JoinTicket is the row persisted by Join.
type JoinTicket struct {
	AccountName  string
	ClientSecret [32]byte
	ServerSecret [32]byte
	ClientIP     string
	Locale       string
	OS           string
	CreatedAt    time.Time
}

type snapshot struct {
	realms     map[Handle]Realm
	subregions []string
}

// Registry is a concurrent-readable snapshot of known realms, refreshed
// periodically from Store; a refresh builds a new snapshot and swaps it
// atomically, so readers never lock.
type Registry struct {
	store    Store
	current  atomic.Pointer[snapshot]
	deleted  atomic.Pointer[[]Handle] // handles present in the previous snapshot but not the latest
}

// NewRegistry returns an empty registry; call Refresh before serving
// traffic.
func NewRegistry(store Store) *Registry {
	r := &Registry{store: store}
	r.current.Store(&snapshot{realms: map[Handle]Realm{}})
	return r
}

// Refresh re-reads the realm and subregion lists from Store and swaps in
// a new snapshot, recording which handles disappeared since the previous
// refresh for RealmListJSON's deletion feed.
func (r *Registry) Refresh(ctx context.Context) error {
	var (
		realms     []Realm
		subregions []string
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		realms, err = r.store.ListRealms(ctx)
		if err != nil {
			return fmt.Errorf("realm: listing realms: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		subregions, err = r.store.ListSubregions(ctx)
		if err != nil {
			return fmt.Errorf("realm: listing subregions: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	next := &snapshot{realms: make(map[Handle]Realm, len(realms)), subregions: subregions}
	for _, rl := range realms {
		next.realms[rl.Address] = rl
	}

	prev := r.current.Swap(next)

	var removed []Handle
	if prev != nil {
		for h := range prev.realms {
			if _, ok := next.realms[h]; !ok {
				removed = append(removed, h)
			}
		}
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i].Address() < removed[j].Address() })
	r.deleted.Store(&removed)

	slog.Info("realm registry refreshed", "realms", len(next.realms), "subregions", len(subregions), "removed", len(removed))
	return nil
}

// StartRefreshLoop runs Refresh on interval until ctx is done, logging
// (not failing) transient errors so a single bad poll doesn't take down
// the process.
func (r *Registry) StartRefreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				slog.Error("realm registry refresh failed", "error", err)
			}
		}
	}
}

func (r *Registry) snapshot() *snapshot { return r.current.Load() }

// Subregions returns every known subregion name.
func (r *Registry) Subregions() []string {
	return append([]string(nil), r.snapshot().subregions...)
}

// Lookup returns the realm at handle, if known.
func (r *Registry) Lookup(handle Handle) (Realm, bool) {
	rl, ok := r.snapshot().realms[handle]
	return rl, ok
}

// Each calls fn for every currently known realm.
func (r *Registry) Each(fn func(Realm)) {
	for _, rl := range r.snapshot().realms {
		fn(rl)
	}
}

func (r *Registry) removedSinceLastRefresh() []Handle {
	p := r.deleted.Load()
	if p == nil {
		return nil
	}
	return *p
}
