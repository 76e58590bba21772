// Package auth validates caller credentials at the API boundary. Two
// credential forms are accepted: static API keys mapped to user ids, and
// self-contained HMAC-signed credentials carrying the user id and an expiry.
package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/adforge/creative-engine-go/internal/shared"
)

// Config holds the credential sources for a Validator.
type Config struct {
	// StaticKeys maps opaque API keys to user ids.
	StaticKeys map[string]string

	// HMACSecret enables signed credentials when non-empty.
	HMACSecret string
}

// ConfigFromEnv builds a Config from environment variables. CE_API_KEYS is a
// comma-separated list of key:user pairs; CE_HMAC_SECRET enables signed
// credentials.
func ConfigFromEnv() Config {
	cfg := Config{
		StaticKeys: make(map[string]string),
		HMACSecret: os.Getenv("CE_HMAC_SECRET"),
	}
	for _, pair := range strings.Split(os.Getenv("CE_API_KEYS"), ",") {
		key, user, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || key == "" || user == "" {
			continue
		}
		cfg.StaticKeys[key] = user
	}
	return cfg
}

// Validator resolves bearer credentials to user ids.
type Validator struct {
	staticKeys map[string]string
	secret     []byte
	now        func() time.Time
}

// NewValidator creates a validator from the config.
func NewValidator(cfg Config) *Validator {
	v := &Validator{
		staticKeys: make(map[string]string, len(cfg.StaticKeys)),
		now:        time.Now,
	}
	for key, user := range cfg.StaticKeys {
		v.staticKeys[key] = user
	}
	if cfg.HMACSecret != "" {
		v.secret = []byte(cfg.HMACSecret)
	}
	return v
}

// WithClock overrides the validator clock. Used by tests to pin expiry.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Authenticate resolves a bearer credential to a user id. Static keys are
// checked first with constant-time comparison, then signed credentials.
func (v *Validator) Authenticate(credential string) (string, error) {
	if credential == "" {
		return "", shared.NewAuthError("missing credential", nil)
	}

	for key, user := range v.staticKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(credential)) == 1 {
			return user, nil
		}
	}

	if strings.Contains(credential, ".") && v.secret != nil {
		return v.verifySigned(credential)
	}

	return "", shared.NewAuthError("unknown credential", nil)
}

// signedClaims is the payload of an HMAC-signed credential.
type signedClaims struct {
	Subject  string `json:"sub"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
	Nonce    string `json:"nonce"`
}

// SignCredential issues a signed credential for the user, valid for ttl.
func (v *Validator) SignCredential(userID string, ttl time.Duration) (string, error) {
	if v.secret == nil {
		return "", shared.NewAuthError("signed credentials are not configured", nil)
	}
	if userID == "" {
		return "", shared.NewValidationError("user id is required", nil)
	}

	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := v.now()
	claims := signedClaims{
		Subject:  userID,
		IssuedAt: now.Unix(),
		Expiry:   now.Add(ttl).Unix(),
		Nonce:    hex.EncodeToString(nonce),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + v.sign(encoded), nil
}

func (v *Validator) verifySigned(credential string) (string, error) {
	encoded, signature, ok := strings.Cut(credential, ".")
	if !ok {
		return "", shared.NewAuthError("malformed credential", nil)
	}

	expected := v.sign(encoded)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return "", shared.NewAuthError("invalid credential signature", nil)
	}

	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", shared.NewAuthError("malformed credential payload", nil)
	}
	var claims signedClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", shared.NewAuthError("malformed credential payload", nil)
	}
	if claims.Subject == "" {
		return "", shared.NewAuthError("credential has no subject", nil)
	}
	if claims.Expiry > 0 && v.now().Unix() >= claims.Expiry {
		return "", shared.NewAuthError("credential has expired", map[string]interface{}{
			"expired_at": claims.Expiry,
		})
	}

	return claims.Subject, nil
}

func (v *Validator) sign(data string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}
