package sdp

import (
	"fmt"
	"net"
	"strings"
)

// fixedSessionID and fixedSessionVersion pin the o= line's session-id
// and version, per spec.md §4.3: this server never renegotiates, so
// there is nothing for a real session id/version to disambiguate.
const (
	fixedSessionID      = "3497579305088229251"
	fixedSessionVersion = "2"
)

// AnswerCandidate is one candidate to render into the generated
// answer's m= section.
type AnswerCandidate struct {
	IP       net.IP
	Port     int
	Priority uint32
	Type     string
}

// CreateParams holds everything Create needs to render an answer.
type CreateParams struct {
	Username    string
	Password    string
	Fingerprint string
	Mid         string
	Candidates  []AnswerCandidate
}

// Create builds the server's SDP answer. The shape is fixed by
// spec.md §4.3: a single `m=application 9 DTLS/SCTP 5000` section,
// always `a=setup:active`, one `a=candidate:` line per input
// candidate. The first candidate is emitted without a related
// address; every candidate after it carries raddr/rport equal to the
// first candidate's address/port.
func Create(p CreateParams) string {
	var b strings.Builder

	writeLine(&b, "v=0")
	writeLine(&b, fmt.Sprintf("o=- %s %s IN IP4 127.0.0.1", fixedSessionID, fixedSessionVersion))
	writeLine(&b, "s=-")
	writeLine(&b, "t=0 0")
	writeLine(&b, "a=group:BUNDLE "+p.Mid)
	writeLine(&b, "a=msid-semantic: WMS")
	writeLine(&b, "m=application 9 DTLS/SCTP 5000")
	writeLine(&b, "c=IN IP4 0.0.0.0")
	writeLine(&b, "a=setup:active")
	writeLine(&b, "a=ice-ufrag:"+p.Username)
	writeLine(&b, "a=ice-pwd:"+p.Password)
	writeLine(&b, "a=mid:"+p.Mid)
	writeLine(&b, "a=fingerprint:sha-256 "+p.Fingerprint)
	writeLine(&b, "a=sctpmap:5000 webrtc-datachannel 1024")

	var raddr net.IP
	var rport int
	for i, c := range p.Candidates {
		writeLine(&b, candidateLine(i, c, raddr, rport))
		if i == 0 {
			raddr, rport = c.IP, c.Port
		}
	}

	return b.String()
}

// CandidateLine renders a single `a=candidate:` line, including the
// "a=" prefix but no line terminator, for callers that need the line
// outside a full Create call (spec.md §4.9's legacy candidates route).
func CandidateLine(foundation int, c AnswerCandidate, raddr net.IP, rport int) string {
	return candidateLine(foundation, c, raddr, rport)
}

func candidateLine(foundation int, c AnswerCandidate, raddr net.IP, rport int) string {
	line := fmt.Sprintf("a=candidate:%d 1 udp %d %s %d typ %s",
		foundation, c.Priority, c.IP.String(), c.Port, c.Type)
	if raddr != nil {
		line += fmt.Sprintf(" raddr %s rport %d", raddr.String(), rport)
	}
	return line
}

func writeLine(b *strings.Builder, line string) {
	b.WriteString(line)
	b.WriteString("\r\n")
}
