// Package bnet implements the framed protobuf-over-TLS session protocol:
// the connection acceptor, per-session state, the RPC dispatcher, and the
// service handlers (authentication, connection, account, game utilities).
package bnet

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/udisondev/wowauth/internal/account"
	"github.com/udisondev/wowauth/internal/config"
	"github.com/udisondev/wowauth/internal/constants"
	"github.com/udisondev/wowauth/internal/db"
	"github.com/udisondev/wowauth/internal/realm"
)

// ServerOption is a functional option for Server configuration.
type ServerOption func(*Server)

// WithTLSConfig overrides the TLS configuration (useful for tests with a
// self-signed in-memory certificate).
func WithTLSConfig(tlsCfg *tls.Config) ServerOption {
	return func(s *Server) {
		s.tlsConfig = tlsCfg
	}
}

// Server accepts TLS connections and runs one session per connection.
type Server struct {
	cfg       config.AuthServer
	tlsConfig *tls.Config
	accounts  account.Repository
	handler   *Handler
	sessions  *SessionRegistry
	sem       *semaphore.Weighted
	sendPool  *BytePool

	listener net.Listener
	mu       sync.Mutex
}

// NewServer creates the acceptor. The TLS key pair is loaded from the
// configured paths unless WithTLSConfig overrides it.
func NewServer(cfg config.AuthServer, database *db.DB, realms *realm.Registry, opts ...ServerOption) (*Server, error) {
	accounts := account.NewPostgresRepository(database.Pool())

	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1000
	}

	s := &Server{
		cfg:      cfg,
		accounts: accounts,
		handler:  NewHandler(cfg, accounts, realms),
		sessions: NewSessionRegistry(),
		sem:      semaphore.NewWeighted(int64(maxSessions)),
		sendPool: NewBytePool(constants.DefaultSendBufSize),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.tlsConfig == nil {
		cert, err := tls.LoadX509KeyPair(cfg.CertificatePath, cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("loading TLS key pair: %w", err)
		}
		s.tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
	}

	return s, nil
}

// Sessions returns the live-session registry.
func (s *Server) Sessions() *SessionRegistry {
	return s.sessions
}

// Addr returns the listen address, or nil before Run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops the listener.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.BindAddress, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	return s.Serve(ctx, ln)
}

// Serve accepts connections from a ready listener. Used by tests with an
// arbitrary listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("auth server started", "address", ln.Addr())
		acceptLoop(ctx, &wg, s, ln)
	}()

	wg.Wait()

	// The acceptor is down; close whatever sessions remain.
	s.sessions.CloseAll()

	return nil
}

func acceptLoop(
	ctx context.Context,
	wg *sync.WaitGroup,
	srv *Server,
	ln net.Listener,
) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("failed to accept new connection", "error", err)
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				handleConnection(ctx, srv, conn)
			}()
		}
	}
}

func handleConnection(ctx context.Context, srv *Server, conn net.Conn) {
	done := make(chan struct{})
	defer close(done)
	defer conn.Close()

	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		slog.Error("failed to split host port", "connection", conn.RemoteAddr(), "error", err)
		return
	}

	if !srv.sem.TryAcquire(1) {
		slog.Warn("session limit reached, dropping connection", "remote", host)
		return
	}
	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() { srv.sem.Release(1) })
	}
	defer release()

	tlsConn := tls.Server(conn, srv.tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		slog.Warn("TLS handshake failed", "remote", host, "error", err)
		return
	}

	if banned, err := ipBanned(ctx, srv.accounts, host); err != nil {
		slog.Error("ip ban check failed", "remote", host, "error", err)
		return
	} else if banned {
		slog.Warn("rejecting banned ip", "remote", host)
		return
	}

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	sess := NewSession(tlsConn, srv.sendPool, release)
	srv.sessions.Add(sess)
	defer srv.sessions.Remove(sess)
	defer sess.Close()

	sess.Log().Info("new session")

	for {
		frame, err := sess.ReadFrame()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled) {
				return
			}
			sess.Log().Info("session closed", "reason", err)
			return
		}
		if err := srv.handler.HandleFrame(ctx, sess, frame); err != nil {
			sess.Log().Error("session fatal error", "error", err)
			return
		}
	}
}

// ipBanned prunes expired bans and reports whether ip is blocked. A row
// with banned == 0 does not block.
func ipBanned(ctx context.Context, accounts account.Repository, ip string) (bool, error) {
	if err := accounts.DeleteExpiredIPBans(ctx); err != nil {
		return false, err
	}
	rows, err := accounts.SelectIPBans(ctx, ip)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if row.Banned != 0 {
			return true, nil
		}
	}
	return false, nil
}
