// Package signing issues the signed tokens used as per-organization datasource passwords.
package signing

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ReadStatsScope is the only scope granted to datasource credentials
const ReadStatsScope = "read:stats"

// StatsClaims are embedded in every datasource token. No expiry is set.
type StatsClaims struct {
	Username string   `json:"username"`
	Scope    []string `json:"scope"`
	jwt.RegisteredClaims
}

// Signer signs StatsClaims with a fixed algorithm and key
type Signer struct {
	method jwt.SigningMethod
	key    interface{}
	now    func() time.Time
}

// NewSigner creates a signer for the named algorithm (HS*, RS*, PS*, ES*, EdDSA).
// For HMAC algorithms secret is the shared secret; otherwise it must be a PEM encoded
// private key.
func NewSigner(algorithm, secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}

	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unsupported signing algorithm: %s", algorithm)
	}

	key, err := parseKey(method, secret)
	if err != nil {
		return nil, fmt.Errorf("invalid key for %s: %w", algorithm, err)
	}

	return &Signer{
		method: method,
		key:    key,
		now:    time.Now,
	}, nil
}

func parseKey(method jwt.SigningMethod, secret string) (interface{}, error) {
	switch method.(type) {
	case *jwt.SigningMethodHMAC:
		return []byte(secret), nil
	case *jwt.SigningMethodRSA, *jwt.SigningMethodRSAPSS:
		return jwt.ParseRSAPrivateKeyFromPEM([]byte(secret))
	case *jwt.SigningMethodECDSA:
		return jwt.ParseECPrivateKeyFromPEM([]byte(secret))
	case *jwt.SigningMethodEd25519:
		return jwt.ParseEdPrivateKeyFromPEM([]byte(secret))
	default:
		return nil, fmt.Errorf("no key parser for %s", method.Alg())
	}
}

// Algorithm returns the configured algorithm name
func (s *Signer) Algorithm() string {
	return s.method.Alg()
}

// SignStatsToken returns a token for username carrying the read:stats scope
func (s *Signer) SignStatsToken(username string) (string, error) {
	claims := StatsClaims{
		Username: strings.ToLower(username),
		Scope:    []string{ReadStatsScope},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now()),
		},
	}

	token := jwt.NewWithClaims(s.method, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token for %s: %w", username, err)
	}
	return signed, nil
}
