// Package mux implements the session's single-socket demultiplexer: one
// UDP socket carries both STUN connectivity checks and DTLS records,
// disambiguated by the first byte of each datagram (RFC 7983). It is
// modeled directly on pion/webrtc's internal/mux package, trimmed to
// the two ranges this server ever sees and reshaped around a single
// mutable remote peer instead of a registry of many endpoints.
package mux

// MatchFunc reports whether a datagram belongs to a given consumer.
type MatchFunc func([]byte) bool

// matchRange accepts datagrams whose first byte falls in [lower, upper].
func matchRange(lower, upper byte) MatchFunc {
	return func(buf []byte) bool {
		if len(buf) < 1 {
			return false
		}
		b := buf[0]
		return b >= lower && b <= upper
	}
}

// MatchSTUN accepts STUN messages: first byte in [0, 3] (RFC 7983).
var MatchSTUN = matchRange(0, 3)

// MatchDTLS accepts DTLS records: first byte in [20, 63] (RFC 7983).
// Datagrams matching neither this nor MatchSTUN are dropped by the
// session's read loop; SCTP rides inside DTLS so it never appears on
// the wire undisguised.
var MatchDTLS = matchRange(20, 63)
