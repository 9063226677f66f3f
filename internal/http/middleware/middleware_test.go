package middleware_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/tuanvumaihuynh/product-selection-sync/internal/http/middleware"
	"github.com/tuanvumaihuynh/product-selection-sync/pkg/correlationid"
)

func TestRecoverer(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer(slog.New(slog.DiscardHandler)))
	r.Get("/panic", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	t.Run("Should return internal server error on panic", func(t *testing.T) {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		assert.JSONEq(t, `{"code":"internalServerError","message":"an unknown error occurred"}`, resp.Body.String())
	})
}

func TestCorrelationID(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Use(middleware.Trace(noop.NewTracerProvider().Tracer("test")), middleware.CorrelationID())
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		seen, _ = correlationid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("Should propagate incoming correlation id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(correlationid.Header, "corr-1")
		resp := httptest.NewRecorder()

		r.ServeHTTP(resp, req)

		assert.Equal(t, "corr-1", seen)
		assert.Equal(t, "corr-1", resp.Header().Get(correlationid.Header))
	})

	t.Run("Should generate correlation id when missing", func(t *testing.T) {
		resp := httptest.NewRecorder()

		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, resp.Header().Get(correlationid.Header))
	})
}
