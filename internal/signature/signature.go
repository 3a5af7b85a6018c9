// Package signature verifies GitHub webhook deliveries signed with
// HMAC-SHA256 (the X-Hub-Signature-256 header).
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// Header carries the delivery signature.
	Header = "X-Hub-Signature-256"
	prefix = "sha256="
)

var (
	// ErrAuthentication is returned for every rejected delivery. The wrapped
	// message says why; callers should only branch on errors.Is.
	ErrAuthentication = errors.New("webhook authentication failed")

	errMissingSecret    = fmt.Errorf("%w: webhook secret not configured", ErrAuthentication)
	errMissingSignature = fmt.Errorf("%w: missing %s header", ErrAuthentication, Header)
	errMalformed        = fmt.Errorf("%w: malformed signature", ErrAuthentication)
	errMismatch         = fmt.Errorf("%w: signature mismatch", ErrAuthentication)
)

// Sign returns the header value GitHub would send for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return prefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks provided against the HMAC of the exact raw body bytes.
// It must run before the body is parsed.
func Verify(secret string, body []byte, provided string) error {
	if secret == "" {
		return errMissingSecret
	}
	if provided == "" {
		return errMissingSignature
	}
	if len(provided) <= len(prefix) || provided[:len(prefix)] != prefix {
		return errMalformed
	}

	got, err := hex.DecodeString(provided[len(prefix):])
	if err != nil {
		return errMalformed
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return errMismatch
	}
	return nil
}

// Verifier binds a secret so handlers don't carry it around.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

func (v *Verifier) Verify(body []byte, provided string) error {
	return Verify(v.secret, body, provided)
}
