// Package verify authenticates inbound webhook bodies against per-event-type
// shared secrets using HMAC-SHA256 over the exact raw bytes the provider
// signed. Re-serializing the body before verification would change byte order
// and whitespace and break the signature, so callers must pass the body as
// received.
package verify

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrMissingSignature is returned when the signature header is absent.
	ErrMissingSignature = errors.New("missing signature header")
	// ErrInvalidSignature is returned when the signature does not match the body.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrNoSecret is returned when no secret is configured for an event type
	// and the verifier is not allowed to fail open.
	ErrNoSecret = errors.New("no secret configured for event type")
)

// Verifier resolves a shared secret per event type and validates HMAC-SHA256
// signatures. The secret table is built once at startup and never mutated.
type Verifier struct {
	secrets         map[string]string
	defaultSecret   string
	allowUnverified bool
}

// New builds a Verifier and validates the secret table eagerly: every event
// type in knownTypes must resolve to a secret unless a default secret exists
// or allowUnverified is set. Failing here at startup beats rejecting live
// provider traffic per-request.
func New(secrets map[string]string, defaultSecret string, allowUnverified bool, knownTypes []string) (*Verifier, error) {
	v := &Verifier{
		secrets:         make(map[string]string, len(secrets)),
		defaultSecret:   defaultSecret,
		allowUnverified: allowUnverified,
	}
	for eventType, secret := range secrets {
		if secret != "" {
			v.secrets[eventType] = secret
		}
	}

	if defaultSecret == "" && !allowUnverified {
		for _, eventType := range knownTypes {
			if _, ok := v.secrets[eventType]; !ok {
				return nil, fmt.Errorf("event type %q has no configured secret", eventType)
			}
		}
	}
	return v, nil
}

// Secret returns the secret used for the given event type, falling back to
// the default secret when no dedicated entry exists.
func (v *Verifier) Secret(eventType string) (string, bool) {
	if secret, ok := v.secrets[eventType]; ok {
		return secret, true
	}
	if v.defaultSecret != "" {
		return v.defaultSecret, true
	}
	return "", false
}

// Verify checks the signature over the raw body for the given event type.
// The returned bool reports whether the signature was actually validated:
// (true, nil) on a matching signature, (false, nil) only when no secret is
// configured and the verifier is allowed to fail open. All other outcomes
// carry one of the sentinel errors.
func (v *Verifier) Verify(eventType string, body []byte, signature string) (bool, error) {
	secret, ok := v.Secret(eventType)
	if !ok {
		if v.allowUnverified {
			return false, nil
		}
		return false, ErrNoSecret
	}
	if signature == "" {
		return false, ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	// Providers send the digest either hex- or base64-encoded; accept both.
	if decoded, err := hex.DecodeString(signature); err == nil && hmac.Equal(decoded, expected) {
		return true, nil
	}
	if decoded, err := base64.StdEncoding.DecodeString(signature); err == nil && hmac.Equal(decoded, expected) {
		return true, nil
	}
	// Header that decodes in neither encoding: compare against the hex form
	// in constant time so a malformed header costs the same as a wrong one.
	if subtle.ConstantTimeCompare([]byte(signature), []byte(hex.EncodeToString(expected))) == 1 {
		return true, nil
	}
	return false, ErrInvalidSignature
}

// Sign computes the hex-encoded HMAC-SHA256 of body under secret. It exists
// so handler tests and local tooling can produce valid signatures.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignBase64 is Sign with base64 output.
func SignBase64(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
