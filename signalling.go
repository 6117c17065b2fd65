package rtcgate

import (
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/loonwerks/rtcgate/internal/ice"
	"github.com/loonwerks/rtcgate/internal/sdp"
)

// OfferRequest is the body of a POST /offer request.
type OfferRequest struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// OfferResponse is the SDP answer returned from Offer.
type OfferResponse struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// CandidateRequest is the body of a POST /candidate request: a single
// trickled ICE candidate addressed to the session whose peer ufrag is
// Username.
type CandidateRequest struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Priority uint32 `json:"priority"`
}

// CandidateInfo is one of the two fixed candidates GET /candidates
// returns, shaped to match what a browser's RTCIceCandidateInit
// expects (spec.md §4.9).
type CandidateInfo struct {
	Candidate        string `json:"candidate"`
	SDPMLineIndex    int    `json:"sdpMLineIndex"`
	SDPMid           string `json:"sdpMid"`
	UsernameFragment string `json:"usernameFragment"`
}

// Facade is the signalling façade (C9): three transport-agnostic
// operations the HTTP handlers below are a thin wrapper over.
type Facade struct {
	endpoint *Endpoint
}

// NewFacade returns a façade fronting endpoint.
func NewFacade(endpoint *Endpoint) *Facade {
	return &Facade{endpoint: endpoint}
}

// Offer creates a new session for req and awaits its SDP answer
// (spec.md §4.9).
func (f *Facade) Offer(req OfferRequest) (OfferResponse, error) {
	if req.Type != "offer" {
		return OfferResponse{}, &SignallingBadRequestError{Err: ErrWrongOfferType}
	}

	session, err := f.endpoint.CreateSession()
	if err != nil {
		return OfferResponse{}, &SignallingBadRequestError{Err: err}
	}

	answer, err := session.CreateAnswer(req.SDP)
	if err != nil {
		return OfferResponse{}, err
	}

	return OfferResponse{Type: "answer", SDP: answer}, nil
}

// Candidate appends a trickled candidate to the session whose peer
// ufrag matches req.Username. Unknown usernames are acknowledged
// silently, matching the fire-and-forget semantics spec.md §5 assigns
// this operation.
func (f *Facade) Candidate(req CandidateRequest) error {
	session, ok := f.endpoint.SessionByPeerUfrag(req.Username)
	if !ok {
		return nil
	}

	ip := net.ParseIP(req.IP)
	if ip == nil || ip.To4() == nil {
		return nil
	}

	session.AppendCandidate(ice.Candidate{
		Address:  ip.To4(),
		Port:     req.Port,
		Priority: req.Priority,
		Type:     ice.CandidateTypeHost,
	})
	return nil
}

// Candidates returns the server's two advertised candidates for the
// session whose peer ufrag is encoded (base64) in usernameB64
// (spec.md §4.9, the legacy polling route alongside trickled offers).
func (f *Facade) Candidates(usernameB64 string) ([]CandidateInfo, error) {
	decoded, err := base64.StdEncoding.DecodeString(usernameB64)
	if err != nil {
		return nil, &SignallingBadRequestError{Err: err}
	}

	session, ok := f.endpoint.SessionByPeerUfrag(string(decoded))
	if !ok {
		return nil, &SignallingBadRequestError{Err: ErrSessionNotFound}
	}

	port := session.socket.LocalAddr().(*net.UDPAddr).Port
	host := sdp.AnswerCandidate{IP: f.endpoint.InternalIP(), Port: port, Priority: ice.HostPriority, Type: "host"}
	srflx := sdp.AnswerCandidate{IP: f.endpoint.PublicIP(), Port: port, Priority: ice.SrflxPriority, Type: "srflx"}

	return []CandidateInfo{
		{
			Candidate:        sdp.CandidateLine(0, host, nil, 0),
			SDPMLineIndex:    0,
			SDPMid:           "data",
			UsernameFragment: session.LocalUfrag(),
		},
		{
			Candidate:        sdp.CandidateLine(1, srflx, host.IP, host.Port),
			SDPMLineIndex:    0,
			SDPMid:           "data",
			UsernameFragment: session.LocalUfrag(),
		},
	}, nil
}

// Router wires the façade's three operations onto the HTTP routes
// spec.md §6 names: POST /offer, POST /candidate, GET
// /candidates/{username}.
func (f *Facade) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/offer", f.handleOffer).Methods(http.MethodPost)
	r.HandleFunc("/candidate", f.handleCandidate).Methods(http.MethodPost)
	r.HandleFunc("/candidates/{username}", f.handleCandidates).Methods(http.MethodGet)
	return r
}

func (f *Facade) handleOffer(w http.ResponseWriter, r *http.Request) {
	var req OfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := f.Offer(req)
	if err != nil {
		writeSignallingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (f *Facade) handleCandidate(w http.ResponseWriter, r *http.Request) {
	var req CandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_ = f.Candidate(req)
	writeJSON(w, http.StatusOK, struct{}{})
}

func (f *Facade) handleCandidates(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	candidates, err := f.Candidates(username)
	if err != nil {
		writeSignallingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSignallingError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch err.(type) {
	case *SignallingBadRequestError, *InvalidOfferError:
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
