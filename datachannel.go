package rtcgate

import (
	"fmt"

	"github.com/pion/datachannel"
	"github.com/pion/logging"
	"github.com/pion/sctp"
)

// DataChannel is an open, negotiated data channel: a single SCTP
// stream, already bidirectional, wrapped in pion/datachannel's message
// framing. Negotiated channels skip DCEP entirely (spec.md §4.7), so
// both ends build theirs the same way, via acceptDataChannel.
type DataChannel = datachannel.DataChannel

// acceptDataChannel waits for the next inbound SCTP stream and wraps it
// as a negotiated DataChannel (spec.md §4.7 SctpReady action). The
// stream AcceptStream hands back is already registered with the
// association and already bidirectional; there is no separate outbound
// stream to open.
func acceptDataChannel(assoc *sctp.Association, logFactory logging.LoggerFactory) (*DataChannel, error) {
	stream, err := assoc.AcceptStream()
	if err != nil {
		return nil, fmt.Errorf("rtcgate: accept sctp stream: %w", err)
	}

	channel, err := datachannel.Client(stream, &datachannel.Config{
		Negotiated:    true,
		LoggerFactory: logFactory,
	})
	if err != nil {
		return nil, fmt.Errorf("rtcgate: wrap sctp stream %d as data channel: %w", stream.StreamIdentifier(), err)
	}
	return channel, nil
}
