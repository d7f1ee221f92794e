package tenancy

import (
	"context"
	"strings"
)

type ctxKey string

const sessionKey ctxKey = "gymguard.session"

// Session is the authenticated caller of a dashboard request.
type Session struct {
	UserID      string
	Email       string
	AccessToken string
	// TargetGymID is the gym an admin asked to act as (X-Target-Gym-ID).
	TargetGymID string
}

// Valid reports whether the session carries a user and a credential.
func (s Session) Valid() bool {
	return strings.TrimSpace(s.UserID) != "" && strings.TrimSpace(s.AccessToken) != ""
}

// WithSession stores the session in context.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext extracts the session if present and valid.
func SessionFromContext(ctx context.Context) (Session, bool) {
	val := ctx.Value(sessionKey)
	if val == nil {
		return Session{}, false
	}
	s, ok := val.(Session)
	return s, ok && s.Valid()
}
