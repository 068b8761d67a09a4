package bnet

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/udisondev/wowauth/internal/account"
	"github.com/udisondev/wowauth/internal/constants"
	"github.com/udisondev/wowauth/internal/wire"
)

// handleAuthentication serves the authentication service: Logon and
// VerifyWebCredentials.
func (h *Handler) handleAuthentication(ctx context.Context, s *Session, f wire.Frame) error {
	switch f.Header.MethodID {
	case MethodLogon:
		return h.handleLogon(ctx, s, f)
	case MethodVerifyWebCredentials:
		return h.handleVerifyWebCredentials(ctx, s, f)
	default:
		s.Log().Warn("unknown authentication method", "method", f.Header.MethodID)
		return s.Respond(f.Header.Token, CodeRpcNotImplemented, nil)
	}
}

// localeNum packs a 4-character locale string into its big-endian 4CC.
func localeNum(locale string) uint32 {
	if len(locale) != 4 {
		return 0
	}
	return uint32(locale[0])<<24 | uint32(locale[1])<<16 | uint32(locale[2])<<8 | uint32(locale[3])
}

func (h *Handler) handleLogon(ctx context.Context, s *Session, f wire.Frame) error {
	var req wire.LogonRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		s.Log().Warn("malformed LogonRequest", "error", err)
		return s.Respond(f.Header.Token, CodeRpcMalformedRequest, nil)
	}

	if req.Program != constants.ProgramWoW {
		s.Log().Warn("logon with bad program", "program", req.Program)
		return s.Respond(f.Header.Token, CodeBadProgram, nil)
	}
	if !constants.AcceptedPlatform(req.Platform) {
		s.Log().Warn("logon with bad platform", "platform", req.Platform)
		return s.Respond(f.Header.Token, CodeBadPlatform, nil)
	}
	if localeNum(req.Locale) == 0 {
		s.Log().Warn("logon with bad locale", "locale", req.Locale)
		return s.Respond(f.Header.Token, CodeBadLocale, nil)
	}

	s.SetLocale(req.Locale)
	s.SetOS(req.Platform)
	s.SetBuild(req.ApplicationVersion)

	s.Log().Info("logon", "locale", req.Locale, "platform", req.Platform, "build", req.ApplicationVersion)

	if len(req.CachedWebCredentials) > 0 {
		code := h.verifyWebCredentials(ctx, s, req.CachedWebCredentials)
		return s.Respond(f.Header.Token, code, nil)
	}

	challenge := wire.ChallengeExternalRequest{
		PayloadType: "web_auth_url",
		Payload:     []byte(h.cfg.LoginURL()),
	}
	if err := s.SendRequest(ListenerChallenge, MethodOnExternalChallenge, challenge); err != nil {
		return err
	}
	return s.Respond(f.Header.Token, CodeOK, nil)
}

func (h *Handler) handleVerifyWebCredentials(ctx context.Context, s *Session, f wire.Frame) error {
	var req wire.VerifyWebCredentialsRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		s.Log().Warn("malformed VerifyWebCredentialsRequest", "error", err)
		return s.Respond(f.Header.Token, CodeRpcMalformedRequest, nil)
	}
	code := h.verifyWebCredentials(ctx, s, req.WebCredentials)
	return s.Respond(f.Header.Token, code, nil)
}

// verifyWebCredentials is the shared credential verification flow: it
// resolves the web ticket to an account, enriches the game accounts with
// character counts and last-played records, enforces IP/country locks and
// bans, and on success commits the account to the session and pushes the
// LogonResult to the client.
func (h *Handler) verifyWebCredentials(ctx context.Context, s *Session, ticket []byte) Code {
	if len(ticket) == 0 {
		return CodeDenied
	}

	info, err := h.accounts.SelectAccountByCredential(ctx, ticket)
	if err != nil {
		s.Log().Error("credential lookup failed", "error", err)
		return CodeDenied
	}
	if info == nil {
		s.Log().Warn("unknown web credential")
		return CodeDenied
	}
	if info.LoginTicketExpiry < time.Now().Unix() {
		s.Log().Warn("expired login ticket", "account", info.Login)
		return CodeTimedOut
	}

	gameAccounts, err := h.accounts.SelectGameAccountsByCredential(ctx, ticket)
	if err != nil {
		s.Log().Error("game account lookup failed", "error", err)
		return CodeInternal
	}
	for _, ga := range gameAccounts {
		info.GameAccounts[ga.ID] = ga
	}

	counts, err := h.accounts.SelectCharacterCountsByAccountID(ctx, info.ID)
	if err != nil {
		s.Log().Error("character count lookup failed", "error", err)
		return CodeInternal
	}
	for _, row := range counts {
		ga, ok := info.GameAccounts[row.GameAccountID]
		if !ok {
			continue
		}
		addr := uint32(row.RealmRegion)<<24 | uint32(row.RealmSite)<<16 | uint32(row.RealmID)
		ga.CharacterCounts[addr] = row.Count
	}

	lastPlayed, err := h.accounts.SelectLastPlayedByAccountID(ctx, info.ID)
	if err != nil {
		s.Log().Error("last played lookup failed", "error", err)
		return CodeInternal
	}
	for _, row := range lastPlayed {
		ga, ok := info.GameAccounts[row.GameAccountID]
		if !ok {
			continue
		}
		ga.LastPlayedCharacters[row.Subregion] = account.LastPlayedCharacter{
			RealmRegion:    row.RealmRegion,
			RealmSite:      row.RealmSite,
			RealmID:        row.RealmID,
			CharacterName:  row.CharacterName,
			CharacterGUID:  row.CharacterGUID,
			LastPlayedTime: row.LastPlayedTime,
		}
	}

	if info.IsLockedToIP {
		if info.LastIP != s.RemoteIP() {
			s.Log().Warn("ip lock mismatch", "account", info.Login,
				"locked_ip", info.LastIP, "remote", s.RemoteIP())
			return CodeRiskAccountLocked
		}
	} else if info.LockCountry != "" && info.LockCountry != "00" {
		// Country comparison is case-sensitive; the stored lock is
		// expected to match the geoip source's casing exactly.
		if country := s.IPCountry(); country != "" && country != info.LockCountry {
			s.Log().Warn("country lock mismatch", "account", info.Login,
				"locked_country", info.LockCountry, "ip_country", country)
			return CodeRiskAccountLocked
		}
	}

	if info.IsBanned {
		if info.IsPermanentlyBanned {
			s.Log().Warn("account banned", "account", info.Login)
			return CodeGameAccountBanned
		}
		s.Log().Warn("account suspended", "account", info.Login)
		return CodeGameAccountSuspended
	}

	sessionKey := make([]byte, constants.SessionKeySize)
	if _, err := rand.Read(sessionKey); err != nil {
		s.Log().Error("generating session key", "error", err)
		return CodeInternal
	}

	result := wire.LogonResult{
		ErrorCode: uint32(CodeOK),
		AccountId: &wire.EntityId{
			Low:  uint64(info.ID),
			High: constants.AccountEntityHigh,
		},
		GeoipCountry: s.IPCountry(),
		SessionKey:   sessionKey,
	}
	for _, ga := range gameAccounts {
		result.GameAccountId = append(result.GameAccountId, wire.EntityId{
			Low:  uint64(ga.ID),
			High: constants.GameAccountEntityHigh,
		})
	}

	s.SetAccountInfo(info)

	if err := h.onLogonComplete(s, result); err != nil {
		s.Log().Error("sending logon result", "error", err)
		return CodeInternal
	}

	s.Log().Info("authentication complete", "account", info.Login, "game_accounts", len(gameAccounts))
	return CodeOK
}

// onLogonComplete pushes the LogonResult to the client's authentication
// listener.
func (h *Handler) onLogonComplete(s *Session, result wire.LogonResult) error {
	return s.SendRequest(ListenerAuthentication, MethodOnLogonComplete, result)
}
