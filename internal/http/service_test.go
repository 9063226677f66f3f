package http_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/product-selection-sync/internal/apperr"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/config"
	httpsvc "github.com/tuanvumaihuynh/product-selection-sync/internal/http"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/message"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/service"
	"github.com/tuanvumaihuynh/product-selection-sync/pkg/correlationid"
)

type fakeSyncService struct {
	envs          []message.Envelope
	correlationID string
	res           service.Result
	err           error
}

func (s *fakeSyncService) HandleEnvelope(ctx context.Context, env message.Envelope) (service.Result, error) {
	s.envs = append(s.envs, env)
	s.correlationID, _ = correlationid.FromContext(ctx)
	return s.res, s.err
}

func (s *fakeSyncService) HandleMessage(context.Context, *message.Message) (service.Result, error) {
	return s.res, s.err
}

// "eyJyZXNvdXJjZSI6eyJpZCI6IlAxIn19" is base64 of {"resource":{"id":"P1"}}.
const pushBody = `{
	"message": {"data": "eyJyZXNvdXJjZSI6eyJpZCI6IlAxIn19", "messageId": "m-1"},
	"subscription": "projects/p/subscriptions/product-changes"
}`

func newHandler(syncSvc service.SyncService) http.Handler {
	return httpsvc.New(config.HTTP{}, slog.New(slog.DiscardHandler), syncSvc).Handler()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestPushRoute(t *testing.T) {
	t.Run("Should hand decoded envelope to sync service", func(t *testing.T) {
		syncSvc := &fakeSyncService{res: service.Result{Outcome: service.OutcomeSynced, ProductID: "P1"}}
		h := newHandler(syncSvc)

		req := httptest.NewRequest(http.MethodPost, httpsvc.PushPath, strings.NewReader(pushBody))
		req.Header.Set(correlationid.Header, "corr-1")
		resp := serve(h, req)

		assert.Equal(t, http.StatusNoContent, resp.Code)
		assert.Equal(t, "corr-1", resp.Header().Get(correlationid.Header))
		require.Len(t, syncSvc.envs, 1)
		assert.JSONEq(t, `{"resource":{"id":"P1"}}`, string(syncSvc.envs[0].Data))
		assert.Equal(t, "m-1", syncSvc.envs[0].MessageID)
		assert.Equal(t, "corr-1", syncSvc.correlationID)
	})

	t.Run("Should reject body without message", func(t *testing.T) {
		syncSvc := &fakeSyncService{}
		h := newHandler(syncSvc)

		req := httptest.NewRequest(http.MethodPost, httpsvc.PushPath, strings.NewReader(`{"subscription":"s"}`))
		resp := serve(h, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Empty(t, syncSvc.envs)

		var body map[string]any
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		assert.Equal(t, "validationError", body["code"])
	})

	t.Run("Should reject malformed json", func(t *testing.T) {
		h := newHandler(&fakeSyncService{})

		req := httptest.NewRequest(http.MethodPost, httpsvc.PushPath, strings.NewReader(`{`))
		resp := serve(h, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "not found", err: apperr.SelectionNotFoundErr, status: http.StatusNotFound, code: apperr.SelectionNotFoundCode},
		{name: "conflict", err: apperr.VersionConflictErr, status: http.StatusConflict, code: apperr.VersionConflictCode},
		{name: "unavailable", err: apperr.PlatformUnavailableErr, status: http.StatusBadGateway, code: apperr.PlatformUnavailableCode},
		{name: "malformed", err: apperr.MalformedMessageErr, status: http.StatusBadRequest, code: apperr.MalformedMessageCode},
	}

	for _, tt := range tests {
		t.Run("Should map "+tt.name+" error to status", func(t *testing.T) {
			h := newHandler(&fakeSyncService{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, httpsvc.PushPath, strings.NewReader(pushBody))
			resp := serve(h, req)

			assert.Equal(t, tt.status, resp.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func newCloudEventRequest(id string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, httpsvc.CloudEventsPath, strings.NewReader(pushBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ce-Id", id)
	req.Header.Set("Ce-Specversion", "1.0")
	req.Header.Set("Ce-Type", "google.cloud.pubsub.topic.v1.messagePublished")
	req.Header.Set("Ce-Source", "//pubsub.googleapis.com/projects/p/topics/product-changes")
	return req
}

func TestCloudEventRoute(t *testing.T) {
	t.Run("Should accept binary mode cloudevent", func(t *testing.T) {
		syncSvc := &fakeSyncService{res: service.Result{Outcome: service.OutcomeSkipped}}
		h := newHandler(syncSvc)

		resp := serve(h, newCloudEventRequest("evt-1"))

		assert.Equal(t, http.StatusNoContent, resp.Code)
		require.Len(t, syncSvc.envs, 1)
		assert.Equal(t, "evt-1", syncSvc.correlationID)
		assert.Equal(t, "evt-1", resp.Header().Get(correlationid.Header))
	})

	t.Run("Should keep client correlation id over event id", func(t *testing.T) {
		syncSvc := &fakeSyncService{res: service.Result{Outcome: service.OutcomeSkipped}}
		h := newHandler(syncSvc)

		req := newCloudEventRequest("evt-1")
		req.Header.Set(correlationid.Header, "corr-1")
		resp := serve(h, req)

		assert.Equal(t, http.StatusNoContent, resp.Code)
		assert.Equal(t, "corr-1", syncSvc.correlationID)
		assert.Equal(t, "corr-1", resp.Header().Get(correlationid.Header))
	})

	t.Run("Should reject request without cloudevent headers", func(t *testing.T) {
		syncSvc := &fakeSyncService{}
		h := newHandler(syncSvc)

		req := httptest.NewRequest(http.MethodPost, httpsvc.CloudEventsPath, strings.NewReader(pushBody))
		resp := serve(h, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Empty(t, syncSvc.envs)
	})
}

func TestOperationalRoutes(t *testing.T) {
	h := newHandler(&fakeSyncService{res: service.Result{Outcome: service.OutcomeSynced}})

	t.Run("Should report healthy", func(t *testing.T) {
		resp := serve(h, httptest.NewRequest(http.MethodGet, httpsvc.HealthPath, nil))

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "ok", resp.Body.String())
	})

	t.Run("Should expose sync metrics", func(t *testing.T) {
		serve(h, httptest.NewRequest(http.MethodPost, httpsvc.PushPath, strings.NewReader(pushBody)))

		resp := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `product_selection_sync_total{outcome="synced"} 1`)
		assert.Contains(t, resp.Body.String(), `http_requests_total{method="POST",path="/pubsub/push",status="204"} 1`)
	})
}
