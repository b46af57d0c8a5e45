// Package session provides the explicit request context threaded through
// every booker and query call: owning tenant, caller identity, and the
// bearer credential forwarded to external collaborators.
package session

import (
	"context"
)

// Session carries the authenticated caller and tenant scope for a request.
// It is passed via context, never via package-level state.
type Session struct {
	TenantID string
	UserID   string
	Email    string

	// Token is the raw bearer credential, forwarded to the tax calculator.
	Token string
}

type sessionKey struct{}

// WithSession adds a Session to context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the Session from context, or nil.
func FromContext(ctx context.Context) *Session {
	if v, ok := ctx.Value(sessionKey{}).(*Session); ok {
		return v
	}
	return nil
}

// TenantID returns the tenant scope from context or empty string.
func TenantID(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.TenantID
	}
	return ""
}

// UserID returns the caller identity from context or empty string.
func UserID(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.UserID
	}
	return ""
}

// Token returns the bearer credential from context or empty string.
func Token(ctx context.Context) string {
	if s := FromContext(ctx); s != nil {
		return s.Token
	}
	return ""
}
