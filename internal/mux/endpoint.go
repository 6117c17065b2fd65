package mux

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/pion/transport/v4/packetio"
)

// maxBufferSize bounds how much unread data can queue for the DTLS
// consumer before Deliver starts dropping datagrams. DTLS reads
// continuously once the handshake starts, so this is far larger than
// anything the protocol should ever need in steady state.
const maxBufferSize = 1 * 1024 * 1024

// ErrClosed is returned by Write/Deliver once the endpoint has closed.
var ErrClosed = errors.New("mux: endpoint closed")

// Sender is the minimal capability the endpoint needs from the
// session's underlying UDP socket: send a datagram to an address.
type Sender interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
}

// Endpoint is the session's C5 unicast view: a net.Conn-shaped adapter
// over the shared UDP socket, restricted to a single mutable remote
// peer. The session's read loop feeds it matching datagrams via
// Deliver; outbound writes always target the current remote, so
// redirecting the view when a higher-priority candidate arrives is a
// single pointer swap under SetRemote.
type Endpoint struct {
	mu     sync.RWMutex
	sender Sender
	local  net.Addr
	remote *net.UDPAddr
	buffer *packetio.Buffer
	closed bool
}

// NewEndpoint creates a view with no remote set yet; writes before the
// first SetRemote are rejected.
func NewEndpoint(sender Sender, local net.Addr) *Endpoint {
	buf := packetio.NewBuffer()
	buf.SetLimitSize(maxBufferSize)
	return &Endpoint{
		sender: sender,
		local:  local,
		buffer: buf,
	}
}

// SetRemote atomically redirects outbound traffic to a new peer
// address without disturbing the DTLS/SCTP state layered above it.
func (e *Endpoint) SetRemote(addr *net.UDPAddr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remote = addr
}

// Remote reports the view's current outbound target, or nil if one has
// never been set.
func (e *Endpoint) Remote() *net.UDPAddr {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.remote
}

// Deliver hands a datagram the session's read loop classified as
// belonging to this view (DTLS, per RFC 7983) to the buffered reader.
func (e *Endpoint) Deliver(b []byte) error {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	_, err := e.buffer.Write(b)
	return err
}

// Read implements net.Conn, returning datagrams delivered from the
// underlying socket.
func (e *Endpoint) Read(p []byte) (int, error) {
	return e.buffer.Read(p)
}

// Write implements net.Conn, sending to the view's current remote.
func (e *Endpoint) Write(p []byte) (int, error) {
	e.mu.RLock()
	remote := e.remote
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return 0, ErrClosed
	}
	if remote == nil {
		return 0, errors.New("mux: endpoint has no remote address")
	}
	return e.sender.WriteToUDP(p, remote)
}

// Close unblocks any pending Read with io.EOF. It does not close the
// underlying socket, which the session owns.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return e.buffer.Close()
}

// LocalAddr implements net.Conn.
func (e *Endpoint) LocalAddr() net.Addr { return e.local }

// RemoteAddr implements net.Conn.
func (e *Endpoint) RemoteAddr() net.Addr {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.remote
}

// SetDeadline is a stub: this server relies on the underlying UDP
// socket and the DTLS/SCTP layers above for their own timeouts.
func (e *Endpoint) SetDeadline(t time.Time) error { return nil }

// SetReadDeadline is a stub, see SetDeadline.
func (e *Endpoint) SetReadDeadline(t time.Time) error { return nil }

// SetWriteDeadline is a stub, see SetDeadline.
func (e *Endpoint) SetWriteDeadline(t time.Time) error { return nil }
