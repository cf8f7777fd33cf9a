package auth

import (
	"context"
	"time"
)

// Session is the signed-in state of one browser. A session built from an
// empty, malformed or expired token is signed out.
type Session struct {
	token  string
	claims *Claims
	now    func() time.Time
}

// NewSession inspects token and returns the session it represents.
func NewSession(token string) *Session {
	s := &Session{now: time.Now}
	if token == "" {
		return s
	}
	claims, err := Inspect(token)
	if err != nil {
		return s
	}
	s.token = token
	s.claims = claims
	return s
}

// Loading is always false: a token is resolved as soon as the request arrives.
func (s *Session) Loading() bool { return false }

// Authenticated reports whether the session holds an unexpired token.
func (s *Session) Authenticated() bool {
	if s.claims == nil {
		return false
	}
	if s.claims.ExpiresAt != nil && !s.now().Before(s.claims.ExpiresAt.Time) {
		return false
	}
	return true
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token(context.Context) (string, error) {
	if !s.Authenticated() {
		return "", nil
	}
	return s.token, nil
}

// Subject names the signed-in user. It is empty when signed out.
func (s *Session) Subject() string {
	if !s.Authenticated() {
		return ""
	}
	if s.claims.Subject != "" {
		return s.claims.Subject
	}
	return s.claims.Username
}

// Claims returns the token's claims, or nil when signed out.
func (s *Session) Claims() *Claims {
	if !s.Authenticated() {
		return nil
	}
	return s.claims
}

// ExpiresAt returns when the token stops being accepted.
func (s *Session) ExpiresAt() time.Time {
	if s.claims == nil || s.claims.ExpiresAt == nil {
		return time.Time{}
	}
	return s.claims.ExpiresAt.Time
}
