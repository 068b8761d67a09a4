package bnet

import (
	"github.com/udisondev/wowauth/internal/wire"
)

// handleStub answers the services the client expects to exist but whose
// behavior this server does not implement. Presence and report frames are
// acknowledged with an empty success; every method of the other stub
// services gets RpcNotImplemented.
func (h *Handler) handleStub(s *Session, serviceHash uint32, f wire.Frame) error {
	s.Log().Debug("stub service method",
		"service", serviceName(serviceHash), "method", f.Header.MethodID)

	switch serviceHash {
	case ServicePresence, ServiceReport:
		// Fire-and-forget updates: acknowledge.
		return s.Respond(f.Header.Token, CodeOK, nil)
	default:
		return s.Respond(f.Header.Token, CodeRpcNotImplemented, nil)
	}
}
