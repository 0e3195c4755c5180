package obs

import "context"

type (
	routePatternKey struct{}
	cartSessionKey  struct{}
)

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext extracts the route pattern from context if present.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(routePatternKey{}).(string); ok {
		return v
	}
	return ""
}

// CartSessionHolder is a mutable slot placed on the request context by the
// request logger so inner handlers can report which cart session they served.
type CartSessionHolder struct {
	ID string
}

// WithCartSessionHolder attaches an empty holder to ctx.
func WithCartSessionHolder(ctx context.Context) (context.Context, *CartSessionHolder) {
	h := &CartSessionHolder{}
	return context.WithValue(ctx, cartSessionKey{}, h), h
}

// SetCartSession records the cart session id on the holder in ctx, if any.
func SetCartSession(ctx context.Context, id string) {
	if ctx == nil {
		return
	}
	if h, ok := ctx.Value(cartSessionKey{}).(*CartSessionHolder); ok && h != nil {
		h.ID = id
	}
}
