package guard

import (
	"context"

	"github.com/clinsim/clinsim/internal/principal"
)

type subjectContextKey struct{}

// ContextWithSubject stores the resolved subject in the request context.
func ContextWithSubject(ctx context.Context, sub principal.Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey{}, sub)
}

// SubjectFromContext extracts the resolved subject. The second return is
// false when no resolver ran for this request.
func SubjectFromContext(ctx context.Context) (principal.Subject, bool) {
	sub, ok := ctx.Value(subjectContextKey{}).(principal.Subject)
	return sub, ok
}
