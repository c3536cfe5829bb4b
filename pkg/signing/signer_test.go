package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigner_Validation(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		secret    string
		errorMsg  string
	}{
		{"missing secret", "HS256", "", "signing secret is required"},
		{"unknown algorithm", "XX999", "secret", "unsupported signing algorithm"},
		{"rsa without pem", "RS256", "not-a-key", "invalid key for RS256"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSigner(tt.algorithm, tt.secret)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestSignStatsToken_HMAC(t *testing.T) {
	signer, err := NewSigner("HS256", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "HS256", signer.Algorithm())

	issued := time.Unix(1700000000, 0)
	signer.now = func() time.Time { return issued }

	token, err := signer.SignStatsToken("Acme")
	require.NoError(t, err)

	claims := &StatsClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)

	assert.Equal(t, "acme", claims.Username)
	assert.Equal(t, []string{"read:stats"}, claims.Scope)
	assert.Nil(t, claims.ExpiresAt)
	require.NotNil(t, claims.IssuedAt)
	assert.Equal(t, issued.Unix(), claims.IssuedAt.Unix())
}

func TestSignStatsToken_ECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	pemKey := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})

	signer, err := NewSigner("ES256", string(pemKey))
	require.NoError(t, err)

	token, err := signer.SignStatsToken("acme")
	require.NoError(t, err)

	claims := &StatsClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.Username)
}
