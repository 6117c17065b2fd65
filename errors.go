package rtcgate

import (
	"errors"
	"fmt"
)

// InvalidOfferError indicates the SDP offer passed to CreateAnswer was
// malformed or missing a required section.
type InvalidOfferError struct {
	Err error
}

func (e *InvalidOfferError) Error() string {
	return fmt.Sprintf("rtcgate: invalid offer: %v", e.Err)
}

func (e *InvalidOfferError) Unwrap() error { return e.Err }

// InvalidCredentialsError indicates a STUN message carried a USERNAME
// that did not match the session's expected ufrag pair.
type InvalidCredentialsError struct {
	Err error
}

func (e *InvalidCredentialsError) Error() string {
	return fmt.Sprintf("rtcgate: invalid ice credentials: %v", e.Err)
}

func (e *InvalidCredentialsError) Unwrap() error { return e.Err }

// StunAuthError indicates a STUN message failed MESSAGE-INTEGRITY or
// FINGERPRINT validation.
type StunAuthError struct {
	Err error
}

func (e *StunAuthError) Error() string {
	return fmt.Sprintf("rtcgate: stun authentication failed: %v", e.Err)
}

func (e *StunAuthError) Unwrap() error { return e.Err }

// DtlsHandshakeError wraps a failure to complete the DTLS handshake,
// including peer certificate fingerprint mismatches.
type DtlsHandshakeError struct {
	Err error
}

func (e *DtlsHandshakeError) Error() string {
	return fmt.Sprintf("rtcgate: dtls handshake failed: %v", e.Err)
}

func (e *DtlsHandshakeError) Unwrap() error { return e.Err }

// SctpTransportError wraps a failure to bring up the SCTP association
// or a DataChannel layered on top of it.
type SctpTransportError struct {
	Err error
}

func (e *SctpTransportError) Error() string {
	return fmt.Sprintf("rtcgate: sctp transport failed: %v", e.Err)
}

func (e *SctpTransportError) Unwrap() error { return e.Err }

// SignallingBadRequestError indicates a signalling request was
// malformed or referenced a session that does not exist.
type SignallingBadRequestError struct {
	Err error
}

func (e *SignallingBadRequestError) Error() string {
	return fmt.Sprintf("rtcgate: bad signalling request: %v", e.Err)
}

func (e *SignallingBadRequestError) Unwrap() error { return e.Err }

// Sentinel causes wrapped by the error types above.
var (
	ErrCandidateSetEmpty   = errors.New("candidate set is empty")
	ErrSessionNotFound     = errors.New("no session for that peer ufrag")
	ErrWrongOfferType      = errors.New("body.type is not \"offer\"")
	ErrFingerprintMismatch = errors.New("peer certificate fingerprint does not match the offer")
)
