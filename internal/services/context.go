package services

import "context"

type contextKey string

const (
	IdentityContextKey  contextKey = "identity"
	RequestIDContextKey contextKey = "request_id"
)

// Helper function to add the session identity to context
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// Helper function to get the session identity from context
func IdentityFromContext(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(string)
	return identity, ok && identity != ""
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDContextKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}
