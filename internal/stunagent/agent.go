// Package stunagent implements the server's half of ICE connectivity
// checks (spec.md §4.6): answering the peer's Binding Requests and
// periodically probing the peer's best known candidate for as long as
// the session runs; the first successful probe is reported once.
package stunagent

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pion/stun/v3"

	"github.com/loonwerks/rtcgate/internal/ice"
)

// checkInterval is how often the server sends a Binding Request to the
// peer's primary candidate while the candidate set is non-empty.
const checkInterval = 1 * time.Second

var (
	typeBindingRequest = stun.NewType(stun.MethodBinding, stun.ClassRequest)
	typeBindingSuccess = stun.NewType(stun.MethodBinding, stun.ClassSuccessResponse)
)

// Authentication failure causes reported through an Agent's
// onAuthFailure callback. ErrBadUsername covers both a missing
// USERNAME and one that doesn't match the expected ufrag pair; callers
// that want to distinguish credential mismatches from integrity/
// fingerprint failures can match on it with errors.Is.
var (
	ErrBadIntegrity   = errors.New("stunagent: message integrity check failed")
	ErrBadFingerprint = errors.New("stunagent: fingerprint check failed")
	ErrBadUsername    = errors.New("stunagent: unexpected or missing username")
)

// Sender is the minimal capability the agent needs to address a
// Binding Request/Response to an arbitrary candidate: unlike the DTLS
// unicast view, STUN checks are not restricted to a single peer until
// nomination succeeds.
type Sender interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// Agent runs one session's STUN connectivity checks.
type Agent struct {
	sender        Sender
	local         ice.Credentials
	peer          ice.Credentials
	log           logging.LeveledLogger
	onAuthFailure func(error)

	mu        sync.Mutex
	pending   map[[stun.TransactionIDSize]byte]struct{}
	connected bool
}

// New returns an agent that answers on behalf of local and probes the
// peer identified by peer. onAuthFailure, if non-nil, is invoked
// whenever an incoming or outgoing message fails credential or
// integrity validation; it is the caller's hook for surfacing that
// failure at the session level. onAuthFailure may be nil.
func New(sender Sender, local, peer ice.Credentials, log logging.LeveledLogger, onAuthFailure func(error)) *Agent {
	return &Agent{
		sender:        sender,
		local:         local,
		peer:          peer,
		log:           log,
		onAuthFailure: onAuthFailure,
		pending:       make(map[[stun.TransactionIDSize]byte]struct{}),
	}
}

func (a *Agent) reportAuthFailure(err error) {
	a.log.Debugf("stunagent: %v", err)
	if a.onAuthFailure != nil {
		a.onAuthFailure(err)
	}
}

// HandleMessage processes one datagram the session's read loop
// classified as STUN (RFC 7983, first byte 0..3). Incoming Binding
// Requests are answered in place; Binding Success responses matching
// an outstanding check invoke onConnected the first time one arrives.
func (a *Agent) HandleMessage(data []byte, from *net.UDPAddr, onConnected func()) {
	msg := &stun.Message{Raw: append([]byte(nil), data...)}
	if err := msg.Decode(); err != nil {
		a.log.Debugf("stunagent: drop undecodable message from %s: %v", from, err)
		return
	}

	switch msg.Type {
	case typeBindingRequest:
		a.handleBindingRequest(msg, from)
	case typeBindingSuccess:
		a.handleBindingSuccess(msg, onConnected)
	default:
		a.log.Debugf("stunagent: drop unexpected message type from %s", from)
	}
}

func (a *Agent) handleBindingRequest(msg *stun.Message, from *net.UDPAddr) {
	integrity := stun.NewShortTermIntegrity(a.local.Pwd)
	if err := integrity.Check(msg); err != nil {
		a.reportAuthFailure(fmt.Errorf("binding request from %s: %w: %v", from, ErrBadIntegrity, err))
		return
	}
	if err := stun.Fingerprint.Check(msg); err != nil {
		a.reportAuthFailure(fmt.Errorf("binding request from %s: %w: %v", from, ErrBadFingerprint, err))
		return
	}

	usernameRaw, ok := findAttr(msg, stun.AttrUsername)
	if !ok {
		a.reportAuthFailure(fmt.Errorf("binding request from %s: %w: missing USERNAME", from, ErrBadUsername))
		return
	}
	wantUsername := a.local.Ufrag + ":" + a.peer.Ufrag
	if string(usernameRaw) != wantUsername {
		a.reportAuthFailure(fmt.Errorf("binding request from %s: %w: got %q", from, ErrBadUsername, usernameRaw))
		return
	}

	resp := new(stun.Message)
	resp.TransactionID = msg.TransactionID
	resp.Type = typeBindingSuccess
	resp.WriteHeader()

	setters := []stun.Setter{
		&stun.XORMappedAddress{IP: from.IP, Port: from.Port},
		stun.NewShortTermIntegrity(a.local.Pwd),
		stun.Fingerprint,
	}
	for _, s := range setters {
		if err := s.AddTo(resp); err != nil {
			a.log.Errorf("stunagent: build binding success for %s: %v", from, err)
			return
		}
	}

	if _, err := a.sender.WriteToUDP(resp.Raw, from); err != nil {
		a.log.Errorf("stunagent: send binding success to %s: %v", from, err)
	}
}

func (a *Agent) handleBindingSuccess(msg *stun.Message, onConnected func()) {
	a.mu.Lock()
	_, known := a.pending[msg.TransactionID]
	if known {
		delete(a.pending, msg.TransactionID)
	}
	alreadyConnected := a.connected
	a.mu.Unlock()

	if !known {
		a.log.Debugf("stunagent: drop binding success with unknown transaction id")
		return
	}

	integrity := stun.NewShortTermIntegrity(a.peer.Pwd)
	if err := integrity.Check(msg); err != nil {
		a.reportAuthFailure(fmt.Errorf("binding success: %w: %v", ErrBadIntegrity, err))
		return
	}
	if err := stun.Fingerprint.Check(msg); err != nil {
		a.reportAuthFailure(fmt.Errorf("binding success: %w: %v", ErrBadFingerprint, err))
		return
	}

	if alreadyConnected || onConnected == nil {
		return
	}
	a.mu.Lock()
	a.connected = true
	a.mu.Unlock()
	onConnected()
}

// Run sends a Binding Request to the candidate set's primary entry
// once per second, until ctx is cancelled. It is meant to run in its
// own goroutine for the lifetime of the session; the caller cancels
// ctx on session close so the ticker never outlives it.
func (a *Agent) Run(ctx context.Context, candidates *ice.Set) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sendCheck(candidates)
		}
	}
}

func (a *Agent) sendCheck(candidates *ice.Set) {
	primary, err := candidates.Primary()
	if err != nil {
		return
	}

	var tid [stun.TransactionIDSize]byte
	if _, err := rand.Read(tid[:]); err != nil {
		a.log.Errorf("stunagent: generate transaction id: %v", err)
		return
	}

	req := new(stun.Message)
	req.TransactionID = tid
	req.Type = typeBindingRequest
	req.WriteHeader()

	setters := []stun.Setter{
		stun.NewUsername(a.peer.Ufrag + ":" + a.local.Ufrag),
		useCandidateAttr(),
		iceControllingAttr(controllingTieBreaker),
		priorityAttr(hostPriority),
		stun.NewShortTermIntegrity(a.peer.Pwd),
		stun.Fingerprint,
	}
	for _, s := range setters {
		if err := s.AddTo(req); err != nil {
			a.log.Errorf("stunagent: build binding request: %v", err)
			return
		}
	}

	addr := &net.UDPAddr{IP: primary.Address, Port: primary.Port}

	a.mu.Lock()
	a.pending[tid] = struct{}{}
	a.mu.Unlock()

	if _, err := a.sender.WriteToUDP(req.Raw, addr); err != nil {
		a.log.Errorf("stunagent: send binding request to %s: %v", addr, err)
	}
}
