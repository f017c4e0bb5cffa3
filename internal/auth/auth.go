// Package auth issues and verifies session tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrWeakSecret is returned for signing secrets shorter than MinSecretLen.
	ErrWeakSecret = errors.New("jwt secret must be at least 32 characters")
)

// MinSecretLen is the shortest accepted HMAC secret.
const MinSecretLen = 32

// claims carries the user ID the way the web client expects it.
type claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenService signs and validates HS256 session tokens.
type TokenService struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
	skew     time.Duration
}

// NewTokenService creates a token service. lifetime <= 0 defaults to one hour.
func NewTokenService(secret string, lifetime time.Duration) (*TokenService, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	return &TokenService{key: []byte(secret), lifetime: lifetime, now: time.Now, skew: 30 * time.Second}, nil
}

// Issue returns a signed token for userID.
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now()
	c := claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify validates token and returns the user ID it was issued for.
func (s *TokenService) Verify(token string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithLeeway(s.skew),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpiredToken
	case err != nil:
		return "", ErrInvalidToken
	case c.UserID == "":
		return "", ErrInvalidToken
	}
	return c.UserID, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
