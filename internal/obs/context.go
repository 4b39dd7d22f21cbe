package obs

import "context"

type ctxKey int

const routePatternCtxKey ctxKey = iota

// WithRoutePattern records the matched chi pattern so metrics and spans can
// be labelled with the route template (e.g. /api/v1/payments/{provider}/callback)
// rather than the concrete path.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, routePatternCtxKey, pattern)
}

// RoutePatternFromContext returns the recorded pattern, or "" when the
// request never went through the router.
func RoutePatternFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	pattern, _ := ctx.Value(routePatternCtxKey).(string)
	return pattern
}
