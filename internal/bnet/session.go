package bnet

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/udisondev/wowauth/internal/account"
	"github.com/udisondev/wowauth/internal/constants"
	"github.com/udisondev/wowauth/internal/wire"
)

// slot is a write-once cell. The first Set wins; a second Set is rejected
// and reported to the caller, which logs it at warn level without failing
// the request.
type slot[T any] struct {
	mu  sync.Mutex
	set bool
	v   T
}

// Set stores v if the slot is empty and reports whether it did.
func (s *slot[T]) Set(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		return false
	}
	s.v = v
	s.set = true
	return true
}

// Get returns the stored value and whether one has been stored.
func (s *slot[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v, s.set
}

// pendingResponse remembers the (service hash, method id) a server-to-
// client request was sent with, keyed by token, so the client's response
// frame can be checked against it.
type pendingResponse struct {
	serviceHash uint32
	methodID    uint32
}

// Session owns one TLS connection after the handshake. All per-session
// state is mutated only from the session's read loop; the write-once
// slots and the pending-response map are the only fields touched under a
// lock, and no I/O happens inside those critical sections.
type Session struct {
	conn       net.Conn
	remoteAddr string
	remoteIP   string
	traceID    uuid.UUID
	log        *slog.Logger

	reader *wire.Reader
	pool   *BytePool

	writeMu sync.Mutex

	accountInfo  slot[*account.Info]
	gameAccount  slot[*account.GameAccount]
	locale       slot[string]
	osName       slot[string]
	ipCountry    slot[string]
	clientSecret slot[[constants.ClientSecretSize]byte]

	build        atomic.Uint32
	requestToken atomic.Uint32

	respMu  sync.Mutex
	pending map[uint32]pendingResponse

	// responseHook, when set, receives every tracked client response
	// after its (service hash, method id) check. Extension point for
	// future server-to-client request handling.
	responseHook func(h wire.Header, payload []byte)

	closed  atomic.Bool
	release func()
}

// NewSession wraps an established (post-handshake) connection. release is
// invoked exactly once when the session closes, returning its concurrency
// slot to the acceptor.
func NewSession(conn net.Conn, pool *BytePool, release func()) *Session {
	remote := conn.RemoteAddr().String()
	ip, _, err := net.SplitHostPort(remote)
	if err != nil {
		ip = remote
	}
	traceID := uuid.New()
	return &Session{
		conn:       conn,
		remoteAddr: remote,
		remoteIP:   ip,
		traceID:    traceID,
		log:        slog.With("remote", ip, "session", traceID.String()),
		reader:     wire.NewReader(conn, constants.DefaultReadBufSize),
		pool:       pool,
		pending:    make(map[uint32]pendingResponse),
		release:    release,
	}
}

// RemoteIP returns the peer's IP without the port.
func (s *Session) RemoteIP() string { return s.remoteIP }

// Log returns the session-scoped logger.
func (s *Session) Log() *slog.Logger { return s.log }

// ReadFrame blocks for the next complete frame from the peer.
func (s *Session) ReadFrame() (wire.Frame, error) {
	return s.reader.ReadFrame()
}

// Close shuts the connection down and releases the accept slot. Safe to
// call more than once and from any goroutine.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.conn.Close()
	if s.release != nil {
		s.release()
	}
}

// SetAccountInfo commits the authenticated account to the session. A
// second commit is a protocol violation: it is logged and ignored.
func (s *Session) SetAccountInfo(info *account.Info) {
	if !s.accountInfo.Set(info) {
		s.log.Warn("account info already set, ignoring second set")
	}
}

// AccountInfo returns the committed account, if authentication completed.
func (s *Session) AccountInfo() (*account.Info, bool) { return s.accountInfo.Get() }

// SetGameAccount selects the game account for this session.
func (s *Session) SetGameAccount(ga *account.GameAccount) {
	if !s.gameAccount.Set(ga) {
		s.log.Warn("game account already set, ignoring second set")
	}
}

// GameAccount returns the selected game account, if any.
func (s *Session) GameAccount() (*account.GameAccount, bool) { return s.gameAccount.Get() }

// SetLocale stores the client's locale string.
func (s *Session) SetLocale(locale string) {
	if !s.locale.Set(locale) {
		s.log.Warn("locale already set, ignoring second set")
	}
}

// Locale returns the client's locale, or "" when unset.
func (s *Session) Locale() string {
	v, _ := s.locale.Get()
	return v
}

// SetOS stores the client's platform string.
func (s *Session) SetOS(os string) {
	if !s.osName.Set(os) {
		s.log.Warn("os already set, ignoring second set")
	}
}

// OS returns the client's platform string, or "" when unset.
func (s *Session) OS() string {
	v, _ := s.osName.Get()
	return v
}

// SetIPCountry stores the geoip country resolved for the peer address.
func (s *Session) SetIPCountry(country string) {
	if !s.ipCountry.Set(country) {
		s.log.Warn("ip country already set, ignoring second set")
	}
}

// IPCountry returns the peer's geoip country, or "" when unknown.
func (s *Session) IPCountry() string {
	v, _ := s.ipCountry.Get()
	return v
}

// SetClientSecret stores the client's 32-byte join secret.
func (s *Session) SetClientSecret(secret [constants.ClientSecretSize]byte) {
	if !s.clientSecret.Set(secret) {
		s.log.Warn("client secret already set, ignoring second set")
	}
}

// ClientSecret returns the stored client secret, if set.
func (s *Session) ClientSecret() ([constants.ClientSecretSize]byte, bool) {
	return s.clientSecret.Get()
}

// SetBuild stores the client's application build number.
func (s *Session) SetBuild(build uint32) { s.build.Store(build) }

// Build returns the client's application build number.
func (s *Session) Build() uint32 { return s.build.Load() }

// nextToken allocates a strictly increasing request token.
func (s *Session) nextToken() uint32 {
	return s.requestToken.Add(1) - 1
}

// marshaler is any wire message with a Marshal method. A nil interface
// means no payload.
type marshaler interface {
	Marshal() []byte
}

// writeFrame serializes a frame into a pooled buffer and writes it with a
// single Write call.
func (s *Session) writeFrame(h wire.Header, payload []byte) error {
	buf := s.pool.Get()
	defer s.pool.Put(buf)

	frame := wire.AppendFrame(buf, h, payload)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

// Respond sends a response frame for the request carried by token. A
// non-zero code is placed in Header.Status; msg, when non-nil, is the
// encoded response payload.
func (s *Session) Respond(token uint32, code Code, msg marshaler) error {
	h := wire.Header{
		ServiceID: wire.ServiceIDResponse,
		Token:     token,
	}
	if code != CodeOK {
		status := uint32(code)
		h.Status = &status
	}
	var payload []byte
	if msg != nil {
		payload = msg.Marshal()
	}
	return s.writeFrame(h, payload)
}

// SendRequest invokes a method on the client: it allocates a fresh token,
// records the pending (service hash, method id) pair for response
// correlation, and writes a request frame.
func (s *Session) SendRequest(serviceHash, methodID uint32, msg marshaler) error {
	token := s.nextToken()

	s.respMu.Lock()
	s.pending[token] = pendingResponse{serviceHash: serviceHash, methodID: methodID}
	s.respMu.Unlock()

	h := wire.Header{
		ServiceHash: &serviceHash,
		MethodID:    methodID,
		Token:       token,
		ServiceID:   constants.ServiceIDRequest,
	}
	var payload []byte
	if msg != nil {
		payload = msg.Marshal()
	}
	return s.writeFrame(h, payload)
}

// handleResponse correlates a response frame from the client with the
// pending request it answers. A token with no pending entry, or a header
// whose service/method disagrees with what was sent, is logged and
// otherwise ignored; neither is session-fatal.
func (s *Session) handleResponse(h wire.Header, payload []byte) {
	s.respMu.Lock()
	p, ok := s.pending[h.Token]
	if ok {
		delete(s.pending, h.Token)
	}
	s.respMu.Unlock()

	if !ok {
		s.log.Warn("response for unknown token", "token", h.Token)
		return
	}

	var gotHash uint32
	if h.ServiceHash != nil {
		gotHash = *h.ServiceHash
	}
	if gotHash != 0 && gotHash != p.serviceHash {
		s.log.Warn("response service hash mismatch",
			"token", h.Token,
			"expected", fmt.Sprintf("%#x", p.serviceHash),
			"got", fmt.Sprintf("%#x", gotHash))
	}
	if h.MethodID != 0 && h.MethodID != p.methodID {
		s.log.Warn("response method id mismatch",
			"token", h.Token,
			"expected", p.methodID,
			"got", h.MethodID)
	}

	if s.responseHook != nil {
		s.responseHook(h, payload)
	}
}

// PendingResponses returns the number of outstanding server-to-client
// requests awaiting a response.
func (s *Session) PendingResponses() int {
	s.respMu.Lock()
	defer s.respMu.Unlock()
	return len(s.pending)
}
