// Package ice implements the pragmatic aggressive-nomination subset of
// Interactive Connectivity Establishment this server needs: short-term
// credential generation, candidate ranking, and the RFC 8445 §5.1.2
// priority formula. It is not a full ICE agent.
package ice

import (
	"fmt"

	"github.com/pion/randutil"
)

// iceChars is the legal alphabet for ICE ufrag/pwd values (RFC 8445 §5.3).
const iceChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

const (
	usernameLength = 4
	passwordLength = 22
)

// Credentials holds a short-term ICE username fragment and password.
type Credentials struct {
	Ufrag string
	Pwd   string
}

// NewCredentials generates a fresh local ufrag/pwd pair from a
// cryptographically strong source.
func NewCredentials() (Credentials, error) {
	ufrag, err := randomString(usernameLength)
	if err != nil {
		return Credentials{}, fmt.Errorf("ice: generate ufrag: %w", err)
	}
	pwd, err := randomString(passwordLength)
	if err != nil {
		return Credentials{}, fmt.Errorf("ice: generate pwd: %w", err)
	}
	return Credentials{Ufrag: ufrag, Pwd: pwd}, nil
}

func randomString(n int) (string, error) {
	return randutil.GenerateCryptoRandomString(n, iceChars)
}
