package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/tuanvumaihuynh/product-selection-sync/internal/apperr"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/http/metric"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/message"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/service"
	"github.com/tuanvumaihuynh/product-selection-sync/pkg/correlationid"
	"github.com/tuanvumaihuynh/product-selection-sync/pkg/validator"
)

// maxBodyBytes bounds push bodies; Pub/Sub messages are at most 10 MB.
const maxBodyBytes = 10 << 20

// pushRequest is the body of a Pub/Sub push delivery and the data of an
// Eventarc messagePublished CloudEvent.
type pushRequest struct {
	Message      *message.Envelope `json:"message" validate:"required"`
	Subscription string            `json:"subscription"`
}

type errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

type pubSubHandler struct {
	logger      *slog.Logger
	validator   validator.Validator
	metrics     *metric.Metrics
	syncSvc     service.SyncService
	handleError errorHandlerFunc
}

func newPubSubHandler(
	logger *slog.Logger,
	v validator.Validator,
	m *metric.Metrics,
	syncSvc service.SyncService,
	handleError errorHandlerFunc,
) *pubSubHandler {
	return &pubSubHandler{
		logger:      logger,
		validator:   v,
		metrics:     m,
		syncSvc:     syncSvc,
		handleError: handleError,
	}
}

// Push handles a Pub/Sub push delivery.
func (h *pubSubHandler) Push(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.handleError(w, r, apperr.MalformedMessageErr.WrapParent(fmt.Errorf("decode push request: %w", err)))
		return
	}

	h.handle(w, r, req)
}

// CloudEvent handles an Eventarc CloudEvent wrapping a Pub/Sub message.
func (h *pubSubHandler) CloudEvent(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	ev, err := cloudevents.NewEventFromHTTPRequest(r)
	if err != nil {
		h.handleError(w, r, apperr.UnsupportedEventErr.WrapParent(fmt.Errorf("parse cloudevent: %w", err)))
		return
	}

	var req pushRequest
	if err := ev.DataAs(&req); err != nil {
		h.handleError(w, r, apperr.MalformedMessageErr.WrapParent(fmt.Errorf("decode cloudevent data: %w", err)))
		return
	}

	// A client supplied correlation id wins over the event id.
	if r.Header.Get(correlationid.Header) == "" && ev.ID() != "" {
		w.Header().Set(correlationid.Header, ev.ID())
		r = r.WithContext(correlationid.NewContext(r.Context(), ev.ID()))
	}
	h.handle(w, r, req)
}

func (h *pubSubHandler) handle(w http.ResponseWriter, r *http.Request, req pushRequest) {
	if err := h.validator.Validate(req); err != nil {
		h.handleError(w, r, err)
		return
	}

	ctx := r.Context()
	res, err := h.syncSvc.HandleEnvelope(ctx, *req.Message)
	if err != nil {
		h.metrics.SyncTotal.WithLabelValues("failed").Inc()
		h.handleError(w, r, err)
		return
	}

	h.metrics.SyncTotal.WithLabelValues(res.Outcome.String()).Inc()
	h.logDone(ctx, req, res)

	w.WriteHeader(http.StatusNoContent)
}

func (h *pubSubHandler) logDone(ctx context.Context, req pushRequest, res service.Result) {
	h.logger.InfoContext(ctx, "pubsub message handled",
		slog.String("message_id", req.Message.MessageID),
		slog.String("subscription", req.Subscription),
		slog.String("outcome", res.Outcome.String()),
		slog.String("product_id", res.ProductID),
	)
}
