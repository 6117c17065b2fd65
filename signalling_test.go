package rtcgate

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFacadeOfferRejectsWrongType(t *testing.T) {
	ep := newTestEndpoint(t)
	facade := NewFacade(ep)

	_, err := facade.Offer(OfferRequest{Type: "answer", SDP: testOffer})
	require.Error(t, err)
}

func TestFacadeOfferReturnsAnswer(t *testing.T) {
	ep := newTestEndpoint(t)
	facade := NewFacade(ep)

	resp, err := facade.Offer(OfferRequest{Type: "offer", SDP: testOffer})
	require.NoError(t, err)
	require.Equal(t, "answer", resp.Type)
	require.Contains(t, resp.SDP, "a=setup:active")
}

func TestFacadeCandidateIgnoresUnknownUsername(t *testing.T) {
	ep := newTestEndpoint(t)
	facade := NewFacade(ep)

	err := facade.Candidate(CandidateRequest{IP: "10.0.0.9", Port: 1234, Username: "nobody", Priority: 1})
	require.NoError(t, err)
}

func TestFacadeCandidateAppendsToMatchingSession(t *testing.T) {
	ep := newTestEndpoint(t)
	facade := NewFacade(ep)

	resp, err := facade.Offer(OfferRequest{Type: "offer", SDP: testOffer})
	require.NoError(t, err)
	require.NotEmpty(t, resp.SDP)

	session, ok := ep.SessionByPeerUfrag("abcd")
	require.True(t, ok)
	defer session.Close()

	before := session.candidates.Len()
	err = facade.Candidate(CandidateRequest{IP: "10.0.0.9", Port: 1234, Username: "abcd", Priority: 1})
	require.NoError(t, err)
	require.Equal(t, before+1, session.candidates.Len())
}

func TestFacadeCandidatesRejectsBadBase64(t *testing.T) {
	ep := newTestEndpoint(t)
	facade := NewFacade(ep)

	_, err := facade.Candidates("not-valid-base64!!")
	require.Error(t, err)
}

func TestFacadeCandidatesReturnsTwoEntries(t *testing.T) {
	ep := newTestEndpoint(t)
	facade := NewFacade(ep)

	_, err := facade.Offer(OfferRequest{Type: "offer", SDP: testOffer})
	require.NoError(t, err)

	session, ok := ep.SessionByPeerUfrag("abcd")
	require.True(t, ok)
	defer session.Close()

	encoded := base64.StdEncoding.EncodeToString([]byte("abcd"))
	candidates, err := facade.Candidates(encoded)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	require.Equal(t, "data", candidates[0].SDPMid)
	require.Equal(t, session.LocalUfrag(), candidates[0].UsernameFragment)
}
