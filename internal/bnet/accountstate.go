package bnet

import (
	"context"
	"time"

	"github.com/udisondev/wowauth/internal/wire"
)

// handleAccount serves the account service's two state queries. The
// authentication gate in HandleFrame has already run.
func (h *Handler) handleAccount(_ context.Context, s *Session, f wire.Frame) error {
	switch f.Header.MethodID {
	case MethodGetAccountState:
		return h.handleGetAccountState(s, f)
	case MethodGetGameAccountState:
		return h.handleGetGameAccountState(s, f)
	default:
		s.Log().Warn("unknown account method", "method", f.Header.MethodID)
		return s.Respond(f.Header.Token, CodeRpcNotImplemented, nil)
	}
}

func (h *Handler) handleGetAccountState(s *Session, f wire.Frame) error {
	var req wire.GetAccountStateRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		s.Log().Warn("malformed GetAccountStateRequest", "error", err)
		return s.Respond(f.Header.Token, CodeRpcMalformedRequest, nil)
	}

	var resp wire.GetAccountStateResponse
	if req.Options&wire.AccountOptionFieldPrivacyInfo != 0 {
		privacy := wire.PrivacyInfo{
			IsUsingRid:               false,
			IsVisibleForViewFriends:  false,
			IsHiddenFromFriendFinder: true,
		}
		resp.Fields = append(resp.Fields, wire.Field{
			Tag:     wire.TagPrivacyInfo,
			Message: privacy.Marshal(),
		})
	}
	return s.Respond(f.Header.Token, CodeOK, resp)
}

func (h *Handler) handleGetGameAccountState(s *Session, f wire.Frame) error {
	var req wire.GetGameAccountStateRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		s.Log().Warn("malformed GetGameAccountStateRequest", "error", err)
		return s.Respond(f.Header.Token, CodeRpcMalformedRequest, nil)
	}

	info, _ := s.AccountInfo()
	ga, ok := info.GameAccounts[int64(req.GameAccountId.Low)]
	if !ok {
		return s.Respond(f.Header.Token, CodeUserServerBadWowAccount, nil)
	}

	var resp wire.GetGameAccountStateResponse
	if req.Options&wire.GameAccountOptionFieldGameLevelInfo != 0 {
		level := wire.GameLevelInfo{
			Name:    ga.DisplayName(),
			Program: 5730135, // "WoW"
		}
		resp.Fields = append(resp.Fields, wire.Field{
			Tag:     wire.TagGameLevelInfo,
			Message: level.Marshal(),
		})
	}
	if req.Options&wire.GameAccountOptionFieldGameStatus != 0 {
		status := wire.GameStatus{
			IsSuspended: ga.IsBanned(time.Now()),
			IsBanned:    ga.IsPermanentlyBanned,
		}
		if ga.UnbanDate != 0 {
			expires := ga.UnbanDate * 1_000_000
			status.SuspensionExpires = &expires
		}
		resp.Fields = append(resp.Fields, wire.Field{
			Tag:     wire.TagGameStatus,
			Message: status.Marshal(),
		})
	}
	return s.Respond(f.Header.Token, CodeOK, resp)
}
