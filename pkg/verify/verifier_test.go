package verify

import (
	"errors"
	"math/rand"
	"testing"
)

// TestVerifyHexSignature tests that a correctly signed body passes with a
// hex-encoded signature.
func TestVerifyHexSignature(t *testing.T) {
	v, err := New(map[string]string{"OPENPIX:CHARGE_COMPLETED": "s3cret"}, "", false, nil)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	body := []byte(`{"type":"OPENPIX:CHARGE_COMPLETED","charge":{"id":"ch_1"}}`)
	valid, err := v.Verify("OPENPIX:CHARGE_COMPLETED", body, Sign(body, "s3cret"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !valid {
		t.Fatalf("expected signature to be valid")
	}
}

// TestVerifyBase64Signature tests that a base64-encoded signature is accepted.
func TestVerifyBase64Signature(t *testing.T) {
	v, err := New(map[string]string{"OPENPIX:CHARGE_COMPLETED": "s3cret"}, "", false, nil)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	body := []byte(`{"type":"OPENPIX:CHARGE_COMPLETED"}`)
	valid, err := v.Verify("OPENPIX:CHARGE_COMPLETED", body, SignBase64(body, "s3cret"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !valid {
		t.Fatalf("expected base64 signature to be valid")
	}
}

// TestVerifyMutatedBody tests that any single-byte mutation of the body or
// signature invalidates verification.
func TestVerifyMutatedBody(t *testing.T) {
	v, err := New(map[string]string{"OPENPIX:CHARGE_COMPLETED": "s3cret"}, "", false, nil)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	body := []byte(`{"type":"OPENPIX:CHARGE_COMPLETED","charge":{"id":"ch_1","value":5500}}`)
	sig := Sign(body, "s3cret")
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		mutated := append([]byte(nil), body...)
		mutated[rng.Intn(len(mutated))] ^= byte(1 + rng.Intn(255))
		if string(mutated) == string(body) {
			continue
		}
		if valid, _ := v.Verify("OPENPIX:CHARGE_COMPLETED", mutated, sig); valid {
			t.Fatalf("mutated body %q unexpectedly verified", mutated)
		}
	}

	for i := 0; i < 100; i++ {
		mutated := []byte(sig)
		mutated[rng.Intn(len(mutated))] ^= byte(1 + rng.Intn(255))
		if string(mutated) == sig {
			continue
		}
		if valid, _ := v.Verify("OPENPIX:CHARGE_COMPLETED", body, string(mutated)); valid {
			t.Fatalf("mutated signature %q unexpectedly verified", mutated)
		}
	}
}

// TestVerifyMissingSignature tests the missing-header outcome.
func TestVerifyMissingSignature(t *testing.T) {
	v, err := New(map[string]string{"OPENPIX:CHARGE_COMPLETED": "s3cret"}, "", false, nil)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	if _, err := v.Verify("OPENPIX:CHARGE_COMPLETED", []byte(`{}`), ""); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

// TestVerifyNoSecret tests that an unconfigured event type is rejected unless
// the verifier is explicitly allowed to fail open.
func TestVerifyNoSecret(t *testing.T) {
	v, err := New(nil, "", true, nil)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	valid, err := v.Verify("UNKNOWN_TYPE", []byte(`{}`), "whatever")
	if err != nil {
		t.Fatalf("expected fail-open to accept, got %v", err)
	}
	if valid {
		t.Fatalf("fail-open acceptance must not be marked as verified")
	}

	strict, err := New(nil, "", false, nil)
	if err != nil {
		t.Fatalf("new strict verifier: %v", err)
	}
	if _, err := strict.Verify("UNKNOWN_TYPE", []byte(`{}`), "whatever"); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

// TestNewValidatesKnownTypes tests that construction fails fast when a known
// event type has no secret.
func TestNewValidatesKnownTypes(t *testing.T) {
	_, err := New(map[string]string{"A": "x"}, "", false, []string{"A", "B"})
	if err == nil {
		t.Fatalf("expected error for uncovered event type B")
	}

	if _, err := New(map[string]string{"A": "x"}, "fallback", false, []string{"A", "B"}); err != nil {
		t.Fatalf("default secret should cover remaining types: %v", err)
	}

	if _, err := New(map[string]string{"A": "x"}, "", true, []string{"A", "B"}); err != nil {
		t.Fatalf("allow_unverified should cover remaining types: %v", err)
	}
}

// TestVerifyDefaultSecretFallback tests secret resolution order.
func TestVerifyDefaultSecretFallback(t *testing.T) {
	v, err := New(map[string]string{"A": "specific"}, "fallback", false, nil)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	body := []byte(`{"type":"B"}`)
	valid, err := v.Verify("B", body, Sign(body, "fallback"))
	if err != nil || !valid {
		t.Fatalf("expected fallback secret to verify, valid=%v err=%v", valid, err)
	}

	if valid, _ := v.Verify("A", body, Sign(body, "fallback")); valid {
		t.Fatalf("dedicated secret must take precedence over the default")
	}
}
