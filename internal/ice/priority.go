package ice

// ComponentID is fixed at 1: this server never multiplexes RTP/RTCP
// components, only the single data component.
const ComponentID = 1

// HostLocalPref is the local preference used for host candidates in
// the priority formula; non-host candidates use 0.
const HostLocalPref = 65535

// Priority computes the RFC 8445 §5.1.2 candidate priority:
//
//	priority = 2^24*typePref + 2^8*localPref + (2^8 - componentID)
func Priority(t CandidateType) uint32 {
	localPref := uint32(0)
	if t == CandidateTypeHost {
		localPref = HostLocalPref
	}
	return (1<<24)*t.TypePreference() + 256*localPref + (256 - ComponentID)
}

// Fixed priorities this server advertises in its own SDP answers and
// in the legacy /candidates response (spec.md §4.3, §4.9), held as
// literal constants so callers (the SDP codec and the signalling
// façade) never drift apart on the value. They are not what Priority
// returns: they correspond to a local preference of 30 with type
// preferences 126 (host) and 100 (srflx), whereas Priority(host) is
// 2130706431 and Priority(srflx) is 1073742079.
const (
	HostPriority  = uint32(2113937151)
	SrflxPriority = uint32(1677729535)
)
