package account

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		internal string
		want     string
	}{
		{"battletag style", "12#1", "WoW12#"},
		{"hash at end", "account#", "WoWaccount#"},
		{"plain name", "arthas", "arthas"},
		{"empty", "", ""},
		{"hash first", "#7", "WoW#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &GameAccount{Name: tt.internal}
			got := g.DisplayName()
			assert.Equal(t, tt.want, got)
			// Pure function: a second derivation yields the same string.
			assert.Equal(t, got, g.DisplayName())
		})
	}
}

func TestGameAccountIsBanned(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name string
		ga   GameAccount
		want bool
	}{
		{"clean", GameAccount{}, false},
		{"permanent", GameAccount{IsPermanentlyBanned: true}, true},
		{"timed, still running", GameAccount{UnbanDate: now.Unix() + 3600}, true},
		{"timed, expired", GameAccount{UnbanDate: now.Unix() - 1}, false},
		{"timed, exactly now", GameAccount{UnbanDate: now.Unix()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ga.IsBanned(now))
		})
	}
}
