package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of the signed session cookie. It only points
// at the server-side session; user data never travels in the cookie.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Session is the server-side state for one logged-in browser.
type Session struct {
	ID string `json:"id"`
	// BackendCookies are the backend's own session cookies, replayed on
	// every backend call made for this user.
	BackendCookies map[string]string `json:"backend_cookies"`
	User           User              `json:"user"`
	CreatedAt      time.Time         `json:"created_at"`
	ValidatedAt    time.Time         `json:"validated_at"`
	ExpiresAt      time.Time         `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || (!s.ExpiresAt.IsZero() && now.After(s.ExpiresAt))
}
