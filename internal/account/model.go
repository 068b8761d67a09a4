// Package account loads account, game-account, ban, character-count and
// last-played records from the login database, keyed by the web credential
// ticket the client obtained from the external login flow.
package account

import (
	"strings"
	"time"
)

// Info is the per-session view of one authenticated account. Immutable
// once committed to a session.
type Info struct {
	ID                  int64
	Login               string
	IsLockedToIP        bool
	LockCountry         string // "", "00", or an ISO country code
	LastIP              string
	LoginTicketExpiry   int64 // unix seconds
	IsBanned            bool
	IsPermanentlyBanned bool
	GameAccounts        map[int64]*GameAccount
}

// GameAccount is one game persona owned by an account.
type GameAccount struct {
	ID                  int64
	Name                string
	UnbanDate           int64 // unix seconds, 0 when no timed ban
	IsPermanentlyBanned bool
	SecurityLevel       uint32

	// CharacterCounts maps a packed realm address to the number of
	// characters this game account has there.
	CharacterCounts map[uint32]uint8

	// LastPlayedCharacters is keyed by subregion string.
	LastPlayedCharacters map[string]LastPlayedCharacter
}

// LastPlayedCharacter records the most recently played character of a game
// account within one subregion.
type LastPlayedCharacter struct {
	RealmRegion    uint8
	RealmSite      uint8
	RealmID        uint8
	CharacterName  string
	CharacterGUID  uint64
	LastPlayedTime uint32 // unix seconds
}

// DisplayName derives the client-facing name: a name carrying a '#'
// discriminator is shown as "WoW" plus everything up to and including the
// '#'; plain names pass through unchanged.
func (g *GameAccount) DisplayName() string {
	if i := strings.Index(g.Name, "#"); i >= 0 {
		return "WoW" + g.Name[:i+1]
	}
	return g.Name
}

// IsBanned reports whether the game account is currently banned: either
// permanently, or with an unban date still in the future.
func (g *GameAccount) IsBanned(now time.Time) bool {
	return g.IsPermanentlyBanned || g.UnbanDate > now.Unix()
}
