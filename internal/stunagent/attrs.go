package stunagent

import (
	"encoding/binary"

	"github.com/pion/stun/v3"
)

// ICE piggybacks a handful of its own attributes on top of generic
// STUN (RFC 8445 §7.1.1); pion/stun only codes the base RFC 5389
// attribute set, so this server encodes the three ICE attributes it
// needs directly as raw TLVs via stun.Message.Add.
const (
	attrPriority       = stun.AttrType(0x0024)
	attrUseCandidate   = stun.AttrType(0x0025)
	attrICEControlling = stun.AttrType(0x802a)
)

// controllingTieBreaker is the fixed ICE-CONTROLLING value this
// server always advertises (spec.md §4.6): a full agent would
// randomise this per session, but aggressive nomination against a
// browser peer never needs role conflict resolution.
const controllingTieBreaker = uint64(0xffaecc81e3dae860)

// hostPriority is the PRIORITY value this server advertises in its
// own outgoing Binding Requests, fixed to the same value as the host
// candidate it offers in SDP (spec.md §4.6).
const hostPriority = uint32(2113937151)

// rawAttr is a stun.Setter that appends a pre-encoded attribute value
// under a fixed attribute type; used for the ICE attributes above.
type rawAttr struct {
	t stun.AttrType
	v []byte
}

func (r rawAttr) AddTo(m *stun.Message) error {
	m.Add(r.t, r.v)
	return nil
}

func priorityAttr(v uint32) rawAttr {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return rawAttr{t: attrPriority, v: buf}
}

func useCandidateAttr() rawAttr {
	return rawAttr{t: attrUseCandidate, v: []byte{}}
}

func iceControllingAttr(tieBreaker uint64) rawAttr {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, tieBreaker)
	return rawAttr{t: attrICEControlling, v: buf}
}

// findAttr returns the raw value of the first attribute of type t, if
// present.
func findAttr(m *stun.Message, t stun.AttrType) ([]byte, bool) {
	for _, a := range m.Attributes {
		if a.Type == t {
			return a.Value, true
		}
	}
	return nil, false
}
