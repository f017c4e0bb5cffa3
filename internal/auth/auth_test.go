package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-at-least-32-chars-long"

func TestNewTokenService_RejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	require.ErrorIs(t, err, ErrWeakSecret)
}

func TestTokenService_IssueVerify(t *testing.T) {
	s, err := NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	tok, err := s.Issue("user-1")
	require.NoError(t, err)
	uid, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}

func TestTokenService_Expired(t *testing.T) {
	s, _ := NewTokenService(testSecret, time.Minute)
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }
	tok, err := s.Issue("user-1")
	require.NoError(t, err)

	s.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = s.Verify(tok)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestTokenService_WrongKeyAndGarbage(t *testing.T) {
	a, _ := NewTokenService(testSecret, time.Hour)
	b, _ := NewTokenService(strings.Repeat("x", 40), time.Hour)
	tok, _ := a.Issue("user-1")

	_, err := b.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = a.Verify("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = a.Verify("")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RejectsNoneAlgorithm(t *testing.T) {
	s, _ := NewTokenService(testSecret, time.Hour)
	c := claims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_RequiresExpiry(t *testing.T) {
	s, _ := NewTokenService(testSecret, time.Hour)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{UserID: "user-1"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = s.Verify(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", h)
	assert.True(t, CheckPassword(h, "hunter22"))
	assert.False(t, CheckPassword(h, "hunter23"))
	assert.False(t, CheckPassword("not-a-hash", "hunter22"))
}
