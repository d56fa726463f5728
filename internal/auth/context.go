// ABOUTME: Request context helpers carrying the authenticated caller
// ABOUTME: Provides WithSubject/SubjectFromContext for handlers behind BearerMiddleware

package auth

import (
	"context"
)

// subjectKey is the key type for storing the subject in context.Context.
type subjectKey struct{}

// WithSubject returns a new context with the verified token subject attached.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFromContext returns the verified subject, or "" for anonymous requests.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(subjectKey{}).(string)
	return subject
}
