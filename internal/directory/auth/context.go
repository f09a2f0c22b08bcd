package auth

import "context"

type contextKey string

const (
	userContextKey contextKey = "user"
	roleContextKey contextKey = "role"
)

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userContextKey, userID)
}

// WithRole returns a copy of ctx carrying the caller's role.
func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleContextKey, role)
}

func withClaims(ctx context.Context, claims Claims) context.Context {
	ctx = WithUserID(ctx, claims.UserID)
	if claims.Role != "" {
		ctx = WithRole(ctx, claims.Role)
	}
	return ctx
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userContextKey).(string)
	return userID, ok && userID != ""
}

// HasRole reports whether the authenticated caller holds role.
func HasRole(ctx context.Context, role string) bool {
	if _, ok := UserIDFromContext(ctx); !ok {
		return false
	}
	got, _ := ctx.Value(roleContextKey).(string)
	return role != "" && got == role
}
