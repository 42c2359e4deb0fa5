package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/config"
)

func newKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func sign(t *testing.T, key *rsa.PrivateKey, userID uint, tokenType string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, TokenClaims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestValidateAccessToken(t *testing.T) {
	key, pub := newKey(t)
	v, err := NewTokenVerifier(pub)
	require.NoError(t, err)

	claims, err := v.ValidateAccessToken(sign(t, key, 42, "access", time.Minute))
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)

	_, err = v.ValidateAccessToken(sign(t, key, 42, "refresh", time.Minute))
	assert.Error(t, err)

	_, err = v.ValidateAccessToken(sign(t, key, 42, "access", -time.Minute))
	assert.Error(t, err)

	other, _ := newKey(t)
	_, err = v.ValidateAccessToken(sign(t, other, 42, "access", time.Minute))
	assert.Error(t, err)

	_, err = v.ValidateToken("")
	assert.Error(t, err)
}

func TestRejectsHMACTokens(t *testing.T) {
	_, pub := newKey(t)
	v, err := NewTokenVerifier(pub)
	require.NoError(t, err)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TokenClaims{UserID: 1, TokenType: "access"})
	signed, err := token.SignedString(pub)
	require.NoError(t, err)
	_, err = v.ValidateToken(signed)
	assert.Error(t, err)
}

func TestNewTokenVerifierFromConfig(t *testing.T) {
	_, pub := newKey(t)

	_, err := NewTokenVerifierFromConfig(config.AuthConfig{PublicKeyPEM: strings.ReplaceAll(string(pub), "\n", `\n`)})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jwt.pub")
	require.NoError(t, os.WriteFile(path, pub, 0o600))
	_, err = NewTokenVerifierFromConfig(config.AuthConfig{PublicKeyPath: path})
	require.NoError(t, err)

	_, err = NewTokenVerifierFromConfig(config.AuthConfig{})
	assert.Error(t, err)
}
