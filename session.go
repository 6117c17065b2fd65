package rtcgate

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/pion/dtls/v3"
	"github.com/pion/logging"
	"github.com/pion/sctp"

	"github.com/loonwerks/rtcgate/internal/ice"
	"github.com/loonwerks/rtcgate/internal/mux"
	"github.com/loonwerks/rtcgate/internal/sdp"
	"github.com/loonwerks/rtcgate/internal/stunagent"
)

// SessionState is one node of the negotiation/connectivity/handshake
// state machine a session walks through (spec.md §4.7).
type SessionState int

// Session states, in the order a healthy session walks through them.
const (
	StateNew SessionState = iota
	StateOffered
	StateListening
	StateIceConnected
	StateDtlsConnected
	StateSctpReady
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateOffered:
		return "offered"
	case StateListening:
		return "listening"
	case StateIceConnected:
		return "ice-connected"
	case StateDtlsConnected:
		return "dtls-connected"
	case StateSctpReady:
		return "sctp-ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// OnDataChannel is invoked once per negotiated DataChannel that comes
// up over a session's SCTP association (spec.md §4.7 SctpReady action).
type OnDataChannel func(*Session, *DataChannel)

// Session drives one peer connection: SDP negotiation, ICE
// connectivity checks, DTLS as the active role, and an SCTP
// association carrying negotiated DataChannels.
type Session struct {
	endpoint   *Endpoint
	cert       *Certificate
	logFactory logging.LoggerFactory
	log        logging.LeveledLogger
	onChannel  OnDataChannel

	mu    sync.Mutex
	state SessionState

	socket     *net.UDPConn
	view       *mux.Endpoint
	candidates *ice.Set

	localCreds      ice.Credentials
	peerCreds       ice.Credentials
	peerFingerprint string
	mid             string

	stun   *stunagent.Agent
	cancel context.CancelFunc
	assoc  *sctp.Association
}

func newSession(ep *Endpoint) (*Session, error) {
	creds, err := ice.NewCredentials()
	if err != nil {
		return nil, fmt.Errorf("rtcgate: generate local ice credentials: %w", err)
	}
	return &Session{
		endpoint:   ep,
		cert:       ep.cert,
		logFactory: ep.logFactory,
		log:        ep.logFactory.NewLogger("session"),
		onChannel:  ep.onChannel,
		state:      StateNew,
		candidates: ice.NewSet(),
		localCreds: creds,
	}, nil
}

// State reports the session's current position in the state machine.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PeerUfrag returns the peer's ICE username fragment, used by the
// endpoint registry and the signalling façade to route candidate and
// candidates requests to this session (spec.md §4.9).
func (s *Session) PeerUfrag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerCreds.Ufrag
}

// LocalUfrag returns the session's own ICE username fragment.
func (s *Session) LocalUfrag() string {
	return s.localCreds.Ufrag
}

// CreateAnswer parses an SDP offer, seeds the candidate set and peer
// credentials, binds the session's UDP socket, starts the STUN agent,
// and returns the SDP answer (spec.md §4.7, rows New->Offered->Listening).
func (s *Session) CreateAnswer(offerSDP string) (string, error) {
	offer, err := sdp.Parse(offerSDP)
	if err != nil {
		return "", &InvalidOfferError{Err: err}
	}

	media, err := dataMediaSection(offer)
	if err != nil {
		return "", &InvalidOfferError{Err: err}
	}

	mid := "data"
	if len(offer.Groups) > 0 && len(offer.Groups[0]) > 0 {
		mid = offer.Groups[0][0]
	}

	fp := offer.Fingerprint
	if fp == nil {
		fp = media.Fingerprint
	}
	if fp == nil {
		return "", &InvalidOfferError{Err: fmt.Errorf("offer carries no fingerprint")}
	}

	s.mu.Lock()
	s.mid = mid
	s.peerCreds = ice.Credentials{Ufrag: media.ICEUfrag, Pwd: media.ICEPwd}
	s.peerFingerprint = fp.Hash
	s.state = StateOffered
	s.mu.Unlock()

	s.endpoint.index(s)

	for _, c := range media.Candidates {
		s.AppendCandidate(ice.Candidate{
			Address:  c.IP,
			Port:     c.Port,
			Priority: c.Priority,
			Type:     ice.CandidateType(c.Type),
		})
	}

	if err := s.listen(); err != nil {
		return "", &InvalidOfferError{Err: err}
	}

	return s.buildAnswer(), nil
}

func dataMediaSection(offer *sdp.Offer) (*sdp.MediaSection, error) {
	for i := range offer.Media {
		if strings.Contains(strings.ToUpper(offer.Media[i].Protocol), "DTLS/SCTP") {
			return &offer.Media[i], nil
		}
	}
	return nil, sdp.ErrNoDataSection
}

// listen binds the session's UDP socket, wires up the demultiplexer
// and STUN agent, and starts the read loop and periodic check ticker.
// Binding a UDP socket does not suspend in Go, so the Offered->Listening
// transition the table describes as reacting to an async bind
// collapses into this single call.
func (s *Session) listen() error {
	socket, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return fmt.Errorf("bind udp socket: %w", err)
	}

	view := mux.NewEndpoint(socket, socket.LocalAddr())
	agent := stunagent.New(socket, s.localCreds, s.peerCreds, s.logFactory.NewLogger("stunagent"), s.onStunAuthFailure)

	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	s.socket = socket
	s.view = view
	if primary, err := s.candidates.Primary(); err == nil {
		view.SetRemote(&net.UDPAddr{IP: primary.Address, Port: primary.Port})
	}
	s.stun = agent
	s.cancel = cancel
	s.state = StateListening
	s.mu.Unlock()

	go s.readLoop()
	go agent.Run(ctx, s.candidates)

	return nil
}

func (s *Session) readLoop() {
	buf := make([]byte, 1500)
	for {
		n, from, err := s.socket.ReadFromUDP(buf)
		if err != nil {
			return
		}
		data := buf[:n]
		switch {
		case mux.MatchSTUN(data):
			s.stun.HandleMessage(data, from, s.onIceConnected)
		case mux.MatchDTLS(data):
			if err := s.view.Deliver(data); err != nil {
				return
			}
		default:
			s.log.Debugf("session: drop undemuxable datagram from %s", from)
		}
	}
}

// AppendCandidate inserts a trickled or inline candidate and keeps the
// unicast view pointed at the current highest-priority candidate,
// atomically with the insertion (spec.md §5 ordering guarantees): the
// insert and the redirect both happen under the session lock, so two
// concurrent appends can never race the view onto a stale candidate.
func (s *Session) AppendCandidate(c ice.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.candidates.Push(c)

	primary, err := s.candidates.Primary()
	if err != nil {
		s.log.Debugf("session: %v", ErrCandidateSetEmpty)
		return
	}

	if s.view != nil {
		s.view.SetRemote(&net.UDPAddr{IP: primary.Address, Port: primary.Port})
	}
}

// onIceConnected fires the first time a Binding Success response to
// one of this session's own checks is observed (spec.md §4.6, §4.7).
func (s *Session) onIceConnected() {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.state = StateIceConnected
	s.mu.Unlock()

	go s.startDTLS()
}

// onStunAuthFailure logs a STUN message's authentication failure at the
// session level, wrapped in the error kind spec.md §4.6/§8 names for
// it: a credential mismatch is distinguished from a generic
// integrity/fingerprint failure so operators can tell a misbehaving
// peer from a forged or corrupted message.
func (s *Session) onStunAuthFailure(err error) {
	if errors.Is(err, stunagent.ErrBadUsername) {
		s.log.Warnf("%v", &InvalidCredentialsError{Err: err})
		return
	}
	s.log.Warnf("%v", &StunAuthError{Err: err})
}

func (s *Session) startDTLS() {
	cfg := &dtls.Config{
		Certificates:          []tls.Certificate{s.cert.TLSCertificate()},
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: s.verifyPeerCertificate,
		LoggerFactory:         s.logFactory,
	}

	conn, err := dtls.Client(s.view, cfg)
	if err != nil {
		s.fail(&DtlsHandshakeError{Err: err})
		return
	}

	s.mu.Lock()
	s.state = StateDtlsConnected
	s.mu.Unlock()

	s.startSCTP(conn)
}

// verifyPeerCertificate implements the peer certificate check spec.md
// §4.7 describes: recompute the SHA-256 fingerprint over the raw peer
// certificate and compare against the offer-declared fingerprint.
func (s *Session) verifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrFingerprintMismatch
	}
	s.mu.Lock()
	want := s.peerFingerprint
	s.mu.Unlock()
	if Fingerprint(rawCerts[0]) != want {
		return ErrFingerprintMismatch
	}
	return nil
}

func (s *Session) startSCTP(conn net.Conn) {
	assoc, err := sctp.Server(sctp.Config{
		NetConn:       conn,
		LoggerFactory: s.logFactory,
	})
	if err != nil {
		s.fail(&SctpTransportError{Err: err})
		return
	}

	s.mu.Lock()
	s.assoc = assoc
	s.state = StateSctpReady
	s.mu.Unlock()

	go s.acceptLoop(assoc)
}

func (s *Session) acceptLoop(assoc *sctp.Association) {
	for {
		channel, err := acceptDataChannel(assoc, s.logFactory)
		if err != nil {
			_ = s.Close()
			return
		}
		if s.onChannel != nil {
			s.onChannel(s, channel)
		}
	}
}

func (s *Session) fail(err error) {
	s.log.Errorf("session failed: %v", err)
	_ = s.Close()
}

// Close tears the session down: stops the STUN ticker and read loop,
// closes the SCTP association, the unicast view, and the UDP socket,
// and removes the session from the endpoint registry (spec.md §4.7 any
// -> Closed).
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	cancel := s.cancel
	assoc := s.assoc
	view := s.view
	socket := s.socket
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if assoc != nil {
		_ = assoc.Close()
	}
	if view != nil {
		_ = view.Close()
	}
	if socket != nil {
		_ = socket.Close()
	}

	s.endpoint.remove(s)
	return nil
}

// buildAnswer renders the SDP answer advertising the session's
// internal address as a host candidate and, when public address
// discovery succeeded, its public address as a srflx candidate, both
// at socket.port (spec.md §4.7). Without a public address the answer
// carries the host candidate only.
func (s *Session) buildAnswer() string {
	s.mu.Lock()
	port := s.socket.LocalAddr().(*net.UDPAddr).Port
	mid := s.mid
	s.mu.Unlock()

	candidates := []sdp.AnswerCandidate{
		{IP: s.endpoint.InternalIP(), Port: port, Priority: ice.HostPriority, Type: "host"},
	}
	if public := s.endpoint.PublicIP(); public != nil {
		candidates = append(candidates, sdp.AnswerCandidate{
			IP: public, Port: port, Priority: ice.SrflxPriority, Type: "srflx",
		})
	}

	return sdp.Create(sdp.CreateParams{
		Username:    s.localCreds.Ufrag,
		Password:    s.localCreds.Pwd,
		Fingerprint: s.cert.FingerprintString(),
		Mid:         mid,
		Candidates:  candidates,
	})
}
