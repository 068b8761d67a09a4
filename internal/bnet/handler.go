package bnet

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/udisondev/wowauth/internal/account"
	"github.com/udisondev/wowauth/internal/config"
	"github.com/udisondev/wowauth/internal/realm"
	"github.com/udisondev/wowauth/internal/wire"
)

// Handler routes incoming frames to service-method handlers. One per
// server; all per-connection state lives on the Session.
type Handler struct {
	cfg      config.AuthServer
	accounts account.Repository
	realms   *realm.Registry

	serverID wire.ProcessId
}

// NewHandler creates the frame dispatcher.
func NewHandler(cfg config.AuthServer, accounts account.Repository, realms *realm.Registry) *Handler {
	return &Handler{
		cfg:      cfg,
		accounts: accounts,
		realms:   realms,
		serverID: wire.ProcessId{
			Label: uint32(os.Getpid()),
			Epoch: uint32(time.Now().Unix()),
		},
	}
}

// HandleFrame processes one frame from the session. Returned errors are
// session-fatal (I/O failures); handler-level errors become a status code
// in the response frame instead.
func (h *Handler) HandleFrame(ctx context.Context, s *Session, f wire.Frame) error {
	if f.Header.IsResponse() {
		s.handleResponse(f.Header, f.Payload)
		return nil
	}

	var serviceHash uint32
	if f.Header.ServiceHash != nil {
		serviceHash = *f.Header.ServiceHash
	}

	// Every known service outside connection and authentication requires
	// a committed account. Unknown services skip this gate and are only
	// logged below.
	switch serviceHash {
	case ServiceConnection, ServiceAuthentication:
	case ServiceAccount, ServiceGameUtilities, ServiceChannel, ServiceFriends,
		ServicePresence, ServiceReport, ServiceResources, ServiceUserManager:
		if _, ok := s.AccountInfo(); !ok {
			s.Log().Warn("method called before authentication",
				"service", serviceName(serviceHash), "method", f.Header.MethodID)
			return s.Respond(f.Header.Token, CodeDenied, nil)
		}
	}

	switch serviceHash {
	case ServiceConnection:
		return h.handleConnection(ctx, s, f)
	case ServiceAuthentication:
		return h.handleAuthentication(ctx, s, f)
	case ServiceAccount:
		return h.handleAccount(ctx, s, f)
	case ServiceGameUtilities:
		return h.handleGameUtilities(ctx, s, f)
	case ServiceChannel, ServiceFriends, ServicePresence, ServiceReport,
		ServiceResources, ServiceUserManager:
		return h.handleStub(s, serviceHash, f)
	default:
		s.Log().Warn("request for unknown service",
			"service_hash", fmt.Sprintf("%#x", serviceHash), "method", f.Header.MethodID)
		return nil
	}
}
