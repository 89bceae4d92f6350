package authz

import "context"

type principalContextKey struct{}

// WithPrincipal attaches the resolved principal to the unit of work.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// WithSystemPrincipal attaches the reserved all-access principal.
// Reserved for process-internal callers (migrations, seeds, scheduled
// jobs); request handling must never call this.
func WithSystemPrincipal(ctx context.Context) context.Context {
	return WithPrincipal(ctx, SystemPrincipal())
}

// FromContext extracts the principal. The second return is false when
// no principal was established; callers must treat that as deny.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
