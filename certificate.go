package rtcgate

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// Certificate is the endpoint's identity: a DER-encoded X.509
// certificate and its private key, plus the SHA-256 fingerprint this
// server advertises in every SDP answer (spec.md §4.8).
type Certificate struct {
	tlsCert     tls.Certificate
	fingerprint string
}

// NewCertificate validates certDER and key (both must be non-empty DER
// buffers) and computes the certificate's fingerprint once, up front,
// so every session reuses the same precomputed value.
func NewCertificate(certDER, key []byte) (*Certificate, error) {
	if len(certDER) == 0 {
		return nil, fmt.Errorf("rtcgate: certificate bytes are empty")
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("rtcgate: private key bytes are empty")
	}

	if _, err := x509.ParseCertificate(certDER); err != nil {
		return nil, fmt.Errorf("rtcgate: parse certificate: %w", err)
	}
	privKey, err := parsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("rtcgate: parse private key: %w", err)
	}

	return &Certificate{
		tlsCert: tls.Certificate{
			Certificate: [][]byte{certDER},
			PrivateKey:  privKey,
		},
		fingerprint: Fingerprint(certDER),
	}, nil
}

// NewCertificateFromPEM loads a certificate/key pair from PEM-encoded
// buffers, the shape most callers (config files, cmd/rtcgated) carry
// these in.
func NewCertificateFromPEM(certPEM, keyPEM []byte) (*Certificate, error) {
	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, fmt.Errorf("rtcgate: no PEM block found in certificate")
	}
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("rtcgate: no PEM block found in private key")
	}
	return NewCertificate(certBlock.Bytes, keyBlock.Bytes)
}

// Fingerprint returns the SHA-256 fingerprint of a DER-encoded
// certificate formatted the way SDP expects: uppercase hex octets
// joined by colons (spec.md §4.3, §4.8).
func Fingerprint(certDER []byte) string {
	sum := sha256.Sum256(certDER)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// TLSCertificate returns the certificate in the shape pion/dtls wants.
func (c *Certificate) TLSCertificate() tls.Certificate {
	return c.tlsCert
}

// FingerprintString returns this certificate's precomputed fingerprint.
func (c *Certificate) FingerprintString() string {
	return c.fingerprint
}

func parsePrivateKey(key []byte) (interface{}, error) {
	if k, err := x509.ParsePKCS8PrivateKey(key); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(key); err == nil {
		return k, nil
	}
	return x509.ParsePKCS1PrivateKey(key)
}
