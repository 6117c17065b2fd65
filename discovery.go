package rtcgate

import (
	"fmt"
	"net"
	"time"

	"github.com/pion/stun/v3"
)

// discoverPublicIPv4 learns this host's publicly-routable IPv4 address
// by sending a single STUN Binding Request to a public server (e.g.
// stun.l.google.com:19302) and reading back its XOR-MAPPED-ADDRESS,
// the same echo trick browsers use for server-reflexive candidates
// (spec.md §4.8).
func discoverPublicIPv4(stunServer string) (net.IP, error) {
	raddr, err := net.ResolveUDPAddr("udp4", stunServer)
	if err != nil {
		return nil, fmt.Errorf("rtcgate: resolve stun server %q: %w", stunServer, err)
	}

	conn, err := net.DialUDP("udp4", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("rtcgate: dial stun server %q: %w", stunServer, err)
	}
	defer conn.Close()

	req := new(stun.Message)
	req.Type = stun.NewType(stun.MethodBinding, stun.ClassRequest)
	req.WriteHeader()

	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		return nil, fmt.Errorf("rtcgate: set stun discovery deadline: %w", err)
	}
	if _, err := conn.Write(req.Raw); err != nil {
		return nil, fmt.Errorf("rtcgate: send stun binding request: %w", err)
	}

	buf := make([]byte, 1500)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("rtcgate: read stun binding response: %w", err)
	}

	resp := &stun.Message{Raw: append([]byte(nil), buf[:n]...)}
	if err := resp.Decode(); err != nil {
		return nil, fmt.Errorf("rtcgate: decode stun binding response: %w", err)
	}

	var xorAddr stun.XORMappedAddress
	if err := xorAddr.GetFrom(resp); err != nil {
		return nil, fmt.Errorf("rtcgate: read xor-mapped-address: %w", err)
	}
	return xorAddr.IP, nil
}

// discoverInternalIPv4 picks the host's internal IPv4 address by
// opening a UDP "connection" to a public address and reading back the
// local address the kernel chose for the route, without actually
// sending any packet.
func discoverInternalIPv4() (net.IP, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return nil, fmt.Errorf("rtcgate: probe local route: %w", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("rtcgate: unexpected local address type %T", conn.LocalAddr())
	}
	return addr.IP, nil
}
