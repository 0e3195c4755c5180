package common

import "context"

type ctxKey string

const tokenKey ctxKey = "auth/bearer-token"

// WithToken stores the caller's bearer token on the context so it can be
// forwarded to the café API.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// Token extracts the bearer token from the context if present.
func Token(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
