package rtcgate

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loonwerks/rtcgate/internal/ice"
)

const testOffer = "v=0\r\n" +
	"o=- 1 1 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"a=group:BUNDLE data\r\n" +
	"m=application 9 DTLS/SCTP 5000\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=ice-ufrag:abcd\r\n" +
	"a=ice-pwd:abcdefghijklmnopqrstuv\r\n" +
	"a=fingerprint:sha-256 AA:BB:CC:DD\r\n" +
	"a=setup:actpass\r\n" +
	"a=mid:data\r\n" +
	"a=sctpmap:5000 webrtc-datachannel 1024\r\n" +
	"a=candidate:0 1 udp 2113937151 10.0.0.5 54400 typ host\r\n"

func newTestEndpoint(t *testing.T) *Endpoint {
	t.Helper()
	certDER, keyDER := generateTestCertDER(t)
	ep, err := NewEndpoint(EndpointConfig{CertificateDER: certDER, PrivateKeyDER: keyDER})
	require.NoError(t, err)
	ep.internal = net.IPv4(192, 168, 1, 5)
	ep.publicIP = net.IPv4(203, 0, 113, 9)
	return ep
}

func TestCreateAnswerTransitionsToListening(t *testing.T) {
	ep := newTestEndpoint(t)

	session, err := ep.CreateSession()
	require.NoError(t, err)
	defer session.Close()

	answer, err := session.CreateAnswer(testOffer)
	require.NoError(t, err)

	require.Equal(t, StateListening, session.State())
	require.Contains(t, answer, "a=setup:active")
	require.Contains(t, answer, "a=mid:data")
	require.Contains(t, answer, "m=application 9 DTLS/SCTP 5000")
	require.Equal(t, 2, strings.Count(answer, "a=candidate:"))
}

func TestCreateAnswerRegistersSessionByPeerUfrag(t *testing.T) {
	ep := newTestEndpoint(t)

	session, err := ep.CreateSession()
	require.NoError(t, err)
	defer session.Close()

	_, err = session.CreateAnswer(testOffer)
	require.NoError(t, err)

	found, ok := ep.SessionByPeerUfrag("abcd")
	require.True(t, ok)
	require.Same(t, session, found)
}

func TestCreateAnswerSeedsInlineCandidate(t *testing.T) {
	ep := newTestEndpoint(t)
	session, err := ep.CreateSession()
	require.NoError(t, err)
	defer session.Close()

	_, err = session.CreateAnswer(testOffer)
	require.NoError(t, err)

	primary, err := session.candidates.Primary()
	require.NoError(t, err)
	require.Equal(t, "10.0.0.5", primary.Address.String())
}

func TestCreateAnswerRejectsOfferWithoutDataSection(t *testing.T) {
	ep := newTestEndpoint(t)
	session, err := ep.CreateSession()
	require.NoError(t, err)
	defer session.Close()

	_, err = session.CreateAnswer("v=0\r\ns=-\r\nt=0 0\r\nm=audio 9 RTP/AVP 0\r\n")
	require.Error(t, err)
	var invalid *InvalidOfferError
	require.ErrorAs(t, err, &invalid)
}

func TestCloseIsIdempotentAndRemovesFromRegistry(t *testing.T) {
	ep := newTestEndpoint(t)
	session, err := ep.CreateSession()
	require.NoError(t, err)

	_, err = session.CreateAnswer(testOffer)
	require.NoError(t, err)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	require.Equal(t, StateClosed, session.State())

	_, ok := ep.SessionByPeerUfrag("abcd")
	require.False(t, ok)
}

func TestAppendCandidateUpdatesViewToHighestPriority(t *testing.T) {
	ep := newTestEndpoint(t)
	session, err := ep.CreateSession()
	require.NoError(t, err)
	defer session.Close()

	_, err = session.CreateAnswer(testOffer)
	require.NoError(t, err)

	better := net.IPv4(10, 0, 0, 9)
	session.AppendCandidate(ice.Candidate{Address: better, Port: 55555, Priority: ice.HostPriority + 1, Type: ice.CandidateTypeHost})

	require.Equal(t, better.String(), session.view.Remote().IP.String())
}
