// Package auth issues, verifies and revokes user sessions.
package auth

import (
	"context"
	"errors"
	"time"
)

// ErrUnauthenticated is returned when a request carries no valid session.
var ErrUnauthenticated = errors.New("not authenticated")

// Session is the server-side proof that a request belongs to a signed-in user.
type Session struct {
	ID        string
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok && s.UserID != ""
}

// RequireSession returns the caller's session or ErrUnauthenticated.
// Callers decide how to react, typically by redirecting to the login page.
func RequireSession(ctx context.Context) (Session, error) {
	s, ok := FromContext(ctx)
	if !ok {
		return Session{}, ErrUnauthenticated
	}
	return s, nil
}
