package audit

import "context"

type originContextKey struct{}

// ContextWithOrigin stores request origin metadata in the context so that
// every event emitted during the request carries it.
func ContextWithOrigin(ctx context.Context, origin Origin) context.Context {
	return context.WithValue(ctx, originContextKey{}, origin)
}

// OriginFromContext extracts origin metadata; zero value when absent.
func OriginFromContext(ctx context.Context) Origin {
	origin, _ := ctx.Value(originContextKey{}).(Origin)
	return origin
}
