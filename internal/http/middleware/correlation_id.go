package middleware

import (
	"net/http"

	"github.com/tuanvumaihuynh/product-selection-sync/pkg/correlationid"
)

// CorrelationID reads the correlation ID header or generates one, stores it
// in the request context and echoes it on the response.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := correlationid.Ensure(r.Context(), r.Header.Get(correlationid.Header))
			id, _ := correlationid.FromContext(ctx)

			w.Header().Set(correlationid.Header, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
