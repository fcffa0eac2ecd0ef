package report

import "context"

type sessionKey struct{}

// WithSessionID returns a copy of ctx carrying the resolution session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the session id stored in ctx, or "" when there is none.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
