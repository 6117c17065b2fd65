// Package sdp implements the session's SDP codec (spec.md §4.3): a
// parser for incoming browser offers and a fixed-shape serialiser for
// the server's answer. This is core logic, not a pluggable
// collaborator, so it is a small hand-rolled line-oriented codec in
// the style of the teacher's own pre-extraction internal/sdp package
// rather than a wrapper around an external SDP library.
package sdp

import (
	"net"
)

// Fingerprint is a parsed `a=fingerprint:<type> <hash>` attribute.
type Fingerprint struct {
	Type string
	Hash string
}

// Candidate is one `a=candidate:` line parsed out of an offer.
type Candidate struct {
	IP       net.IP
	Port     int
	Priority uint32
	Type     string
}

// MediaSection is one `m=` block of a parsed offer.
type MediaSection struct {
	Protocol    string
	ICEUfrag    string
	ICEPwd      string
	Fingerprint *Fingerprint
	Candidates  []Candidate
}

// Offer is the structured view of a parsed SDP offer (spec.md §4.3).
type Offer struct {
	Media       []MediaSection
	Fingerprint *Fingerprint // session-level a=fingerprint, if present
	Groups      [][]string   // each entry is a BUNDLE group's mids
}
