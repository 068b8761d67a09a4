package bnet

import (
	"context"
	"time"

	"github.com/udisondev/wowauth/internal/wire"
)

// handleConnection serves the connection service: the client's first
// frame (Connect), keep-alives, and disconnect requests.
func (h *Handler) handleConnection(_ context.Context, s *Session, f wire.Frame) error {
	switch f.Header.MethodID {
	case MethodConnect:
		return h.handleConnect(s, f)
	case MethodKeepAlive:
		// Keep-alives carry no state; the read itself is the liveness
		// signal and no response frame is expected.
		return nil
	case MethodRequestDisconnect:
		return h.handleRequestDisconnect(s, f)
	default:
		s.Log().Warn("unknown connection method", "method", f.Header.MethodID)
		return s.Respond(f.Header.Token, CodeRpcNotImplemented, nil)
	}
}

func (h *Handler) handleConnect(s *Session, f wire.Frame) error {
	var req wire.ConnectRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		s.Log().Warn("malformed ConnectRequest", "error", err)
		return s.Respond(f.Header.Token, CodeRpcMalformedRequest, nil)
	}

	now := time.Now()
	resp := wire.ConnectResponse{
		ClientId:   &req.ClientId,
		ServerId:   h.serverID,
		ServerTime: uint64(now.UnixMilli()),
	}
	return s.Respond(f.Header.Token, CodeOK, resp)
}

func (h *Handler) handleRequestDisconnect(s *Session, f wire.Frame) error {
	var req wire.DisconnectRequest
	if err := req.Unmarshal(f.Payload); err != nil {
		s.Log().Warn("malformed DisconnectRequest", "error", err)
		return s.Respond(f.Header.Token, CodeRpcMalformedRequest, nil)
	}

	notify := wire.DisconnectNotification{ErrorCode: req.ErrorCode}
	if err := s.SendRequest(ServiceConnection, MethodForceDisconnect, notify); err != nil {
		s.Log().Warn("sending disconnect notification", "error", err)
	}
	s.Log().Info("client requested disconnect", "error_code", req.ErrorCode)
	s.Close()
	return nil
}
