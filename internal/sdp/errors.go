package sdp

import "errors"

// ErrNoDataSection is returned when an offer has no media section
// whose protocol contains "DTLS/SCTP" (spec.md §4.7, §8 S2).
var ErrNoDataSection = errors.New("sdp: no DTLS/SCTP media section")
