package auth

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the identity carried by a bearer credential. It is decoded
// client-side without verifying the signature; the relay establishes trust
// when the connection is opened.
type Session struct {
	UserID    string
	Username  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Token     string
}

// Decode reads the credential payload. It returns nil for anything that is
// not a well-formed JWT with a user id claim.
func Decode(credential string) *Session {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(credential, claims); err != nil {
		return nil
	}

	userID := claimString(claims, "userId", "user_id", "sub")
	if userID == "" {
		return nil
	}

	s := &Session{
		UserID:   userID,
		Username: claimString(claims, "username", "name"),
		Token:    credential,
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		s.IssuedAt = iat.Time
	}
	return s
}

// IsValid reports whether s can be used to open a connection at now.
func IsValid(s *Session, now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return now.Before(s.ExpiresAt)
}

// claimString returns the first non-empty claim among keys. Numeric ids are
// formatted without a fractional part.
func claimString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}
