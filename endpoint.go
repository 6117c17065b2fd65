package rtcgate

import (
	"fmt"
	"net"
	"sync"

	"github.com/pion/logging"
)

// defaultSTUNServer is used for public IPv4 discovery when no override
// is supplied (spec.md §4.8).
const defaultSTUNServer = "stun.l.google.com:19302"

// EndpointConfig configures a new Endpoint.
type EndpointConfig struct {
	// CertificateDER and PrivateKeyDER are the server's identity,
	// both required (spec.md §4.8).
	CertificateDER []byte
	PrivateKeyDER  []byte

	// STUNServer is the public STUN server used to discover this
	// host's server-reflexive address. Defaults to defaultSTUNServer.
	STUNServer string

	// LoggerFactory builds the per-component loggers every session
	// and sub-agent uses. Defaults to pion/logging's default factory.
	LoggerFactory logging.LoggerFactory

	// OnDataChannel is invoked once per negotiated DataChannel that
	// comes up on any session this endpoint hosts.
	OnDataChannel OnDataChannel
}

// Endpoint is the server's top-level registry: it holds the identity
// certificate, discovers the host's public/internal addresses, and
// tracks every live session by the peer's ICE username fragment
// (spec.md §4.8).
type Endpoint struct {
	cert       *Certificate
	stunServer string
	logFactory logging.LoggerFactory
	onChannel  OnDataChannel

	mu       sync.RWMutex
	sessions map[string]*Session
	publicIP net.IP
	internal net.IP
}

// NewEndpoint validates cfg and constructs an Endpoint. It does not
// start network discovery; call Start for that.
func NewEndpoint(cfg EndpointConfig) (*Endpoint, error) {
	cert, err := NewCertificate(cfg.CertificateDER, cfg.PrivateKeyDER)
	if err != nil {
		return nil, err
	}

	stunServer := cfg.STUNServer
	if stunServer == "" {
		stunServer = defaultSTUNServer
	}

	logFactory := cfg.LoggerFactory
	if logFactory == nil {
		logFactory = logging.NewDefaultLoggerFactory()
	}

	return &Endpoint{
		cert:       cert,
		stunServer: stunServer,
		logFactory: logFactory,
		onChannel:  cfg.OnDataChannel,
		sessions:   make(map[string]*Session),
	}, nil
}

// Start discovers the host's public and internal IPv4 addresses
// concurrently, per spec.md §4.8, and blocks until both complete.
func (e *Endpoint) Start() error {
	var (
		wg                 sync.WaitGroup
		publicIP, internal net.IP
		publicErr, intErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		publicIP, publicErr = discoverPublicIPv4(e.stunServer)
	}()
	go func() {
		defer wg.Done()
		internal, intErr = discoverInternalIPv4()
	}()
	wg.Wait()

	if intErr != nil {
		return fmt.Errorf("rtcgate: discover internal address: %w", intErr)
	}

	e.mu.Lock()
	e.internal = internal
	if publicErr == nil {
		e.publicIP = publicIP
	}
	e.mu.Unlock()

	if publicErr != nil {
		e.logFactory.NewLogger("endpoint").Warnf("public address discovery failed, answers will omit srflx candidates: %v", publicErr)
	}

	return nil
}

// PublicIP returns the host's discovered public IPv4 address, or nil
// if discovery has not completed or failed.
func (e *Endpoint) PublicIP() net.IP {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.publicIP
}

// InternalIP returns the host's discovered internal IPv4 address.
func (e *Endpoint) InternalIP() net.IP {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.internal
}

// CreateSession constructs a new, unregistered session. It is
// registered once its offer is parsed and the peer's ufrag is known
// (see Session.CreateAnswer and Endpoint.index).
func (e *Endpoint) CreateSession() (*Session, error) {
	return newSession(e)
}

// Size reports the number of live (registered) sessions.
func (e *Endpoint) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.sessions)
}

// SessionByPeerUfrag locates the session whose peer ICE username
// fragment equals ufrag, used by the signalling façade's candidate and
// candidates operations (spec.md §4.9).
func (e *Endpoint) SessionByPeerUfrag(ufrag string) (*Session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[ufrag]
	return s, ok
}

func (e *Endpoint) index(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions[s.PeerUfrag()] = s
}

func (e *Endpoint) remove(s *Session) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sessions[s.PeerUfrag()] == s {
		delete(e.sessions, s.PeerUfrag())
	}
}
