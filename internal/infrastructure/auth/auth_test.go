package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/adforge/creative-engine-go/internal/shared"
)

func TestStaticKeyLookup(t *testing.T) {
	v := NewValidator(Config{StaticKeys: map[string]string{
		"key-alpha": "user-1",
		"key-beta":  "user-2",
	}})

	user, err := v.Authenticate("key-alpha")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user != "user-1" {
		t.Errorf("got %q, want user-1", user)
	}

	if _, err := v.Authenticate("key-gamma"); err == nil {
		t.Fatal("unknown key must fail")
	}
	if _, err := v.Authenticate(""); err == nil {
		t.Fatal("empty credential must fail")
	}
}

func TestAuthenticateReturnsAuthError(t *testing.T) {
	v := NewValidator(Config{})

	_, err := v.Authenticate("nope")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*shared.AuthError); !ok {
		t.Errorf("expected AuthError, got %T", err)
	}
}

func TestSignedCredentialRoundTrip(t *testing.T) {
	v := NewValidator(Config{HMACSecret: "test-secret"})

	cred, err := v.SignCredential("user-42", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !strings.Contains(cred, ".") {
		t.Fatalf("signed credential missing signature separator: %q", cred)
	}

	user, err := v.Authenticate(cred)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user != "user-42" {
		t.Errorf("got %q, want user-42", user)
	}
}

func TestSignedCredentialExpiry(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	v := NewValidator(Config{HMACSecret: "test-secret"}).WithClock(func() time.Time { return base })

	cred, err := v.SignCredential("user-1", time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := v.Authenticate(cred); err != nil {
		t.Fatalf("fresh credential rejected: %v", err)
	}

	v.WithClock(func() time.Time { return base.Add(2 * time.Minute) })
	if _, err := v.Authenticate(cred); err == nil {
		t.Fatal("expired credential accepted")
	}
}

func TestSignedCredentialTamperedSignature(t *testing.T) {
	v := NewValidator(Config{HMACSecret: "test-secret"})

	cred, err := v.SignCredential("user-1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := cred[:len(cred)-1]
	if strings.HasSuffix(cred, "0") {
		tampered += "1"
	} else {
		tampered += "0"
	}
	if _, err := v.Authenticate(tampered); err == nil {
		t.Fatal("tampered signature accepted")
	}
}

func TestSignedCredentialWrongSecret(t *testing.T) {
	issuer := NewValidator(Config{HMACSecret: "secret-a"})
	verifier := NewValidator(Config{HMACSecret: "secret-b"})

	cred, err := issuer.SignCredential("user-1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Authenticate(cred); err == nil {
		t.Fatal("credential verified across secrets")
	}
}

func TestSignRequiresSecret(t *testing.T) {
	v := NewValidator(Config{})
	if _, err := v.SignCredential("user-1", time.Hour); err == nil {
		t.Fatal("signing without a secret must fail")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CE_API_KEYS", "key-a:user-1, key-b:user-2,malformed,:nouser")
	t.Setenv("CE_HMAC_SECRET", "env-secret")

	cfg := ConfigFromEnv()
	if cfg.HMACSecret != "env-secret" {
		t.Errorf("secret = %q", cfg.HMACSecret)
	}
	if len(cfg.StaticKeys) != 2 {
		t.Fatalf("keys = %v", cfg.StaticKeys)
	}
	if cfg.StaticKeys["key-a"] != "user-1" || cfg.StaticKeys["key-b"] != "user-2" {
		t.Errorf("keys = %v", cfg.StaticKeys)
	}
}
