package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedTestToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedTestToken(t, jwt.MapClaims{"sub": "alice", "exp": exp.Unix()})

	got, ok := TokenExpiry(token)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))
}

func TestTokenExpiry_NoClaim(t *testing.T) {
	token := signedTestToken(t, jwt.MapClaims{"sub": "alice"})

	_, ok := TokenExpiry(token)
	assert.False(t, ok)
}

func TestTokenExpiry_OpaqueToken(t *testing.T) {
	_, ok := TokenExpiry("session-not-a-jwt")
	assert.False(t, ok)
}

func TestTokenSubject(t *testing.T) {
	token := signedTestToken(t, jwt.MapClaims{"sub": "alice"})

	sub, ok := TokenSubject(token)
	require.True(t, ok)
	assert.Equal(t, "alice", sub)
}

func TestTokenSubject_Missing(t *testing.T) {
	token := signedTestToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	_, ok := TokenSubject(token)
	assert.False(t, ok)
}
