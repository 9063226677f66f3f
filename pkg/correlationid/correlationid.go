package correlationid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP and message header carrying the correlation ID.
const Header = "X-Correlation-ID"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying the correlation ID.
func NewContext(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, correlationID)
}

// FromContext returns the correlation ID stored in ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// New generates a new correlation ID.
func New() string {
	return uuid.NewString()
}

// Ensure returns ctx unchanged when it already carries a correlation ID,
// otherwise a context with the given ID or a freshly generated one.
func Ensure(ctx context.Context, candidate string) context.Context {
	if _, ok := FromContext(ctx); ok {
		return ctx
	}
	if candidate == "" {
		candidate = New()
	}
	return NewContext(ctx, candidate)
}
