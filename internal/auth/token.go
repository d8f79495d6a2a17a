package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptyToken   = errors.New("auth: token is empty")
	ErrTokenExpired = errors.New("auth: token expired")
)

// Claims is what the client reads from its own access token. The signature is checked by
// the server; the client only needs identity and expiry.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"userId,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

// LocalUserID returns the userId claim, falling back to a numeric subject.
func (c *Claims) LocalUserID() (int64, bool) {
	if c.UserID != 0 {
		return c.UserID, true
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ExpiresIn is the time left before expiry, or zero when the token carries no exp.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}

// ParseToken reads the claims of an access token without verifying it. A "Bearer "
// prefix is accepted. Tokens already past exp are refused.
func ParseToken(tokenString string, now time.Time) (*Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return nil, ErrEmptyToken
	}

	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}

	if claims.ExpiresAt != nil && !claims.ExpiresAt.Time.After(now) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
