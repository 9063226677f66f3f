package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuanvumaihuynh/product-selection-sync/internal/apperr"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/config"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/message"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/service"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/storage/mq"
	"github.com/tuanvumaihuynh/product-selection-sync/pkg/correlationid"
	"github.com/tuanvumaihuynh/product-selection-sync/pkg/headers"
	"github.com/tuanvumaihuynh/product-selection-sync/pkg/zerror"
)

const (
	HeaderError     = "error"
	HeaderErrorCode = "error_code"
)

// Service consumes product change envelopes from Kafka.
type Service struct {
	cfg        config.Kafka
	logger     *slog.Logger
	mqConsumer mq.Consumer
	mqProducer mq.Producer
	syncSvc    service.SyncService
}

// New creates a new event service. mqProducer may be nil when no dead letter
// topic is configured.
func New(
	cfg config.Kafka,
	logger *slog.Logger,
	mqConsumer mq.Consumer,
	mqProducer mq.Producer,
	syncSvc service.SyncService,
) *Service {
	return &Service{
		cfg:        cfg,
		logger:     logger.With(slog.String("service", "event")),
		mqConsumer: mqConsumer,
		mqProducer: mqProducer,
		syncSvc:    syncSvc,
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	if err := s.mqConsumer.RegisterHandler(s.cfg.Topic, s.handleProductChanged); err != nil {
		return nil, fmt.Errorf("register product changed handler: %w", err)
	}

	mqCleanup, err := s.mqConsumer.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run mq consumer: %w", err)
	}

	return CleanupFunc(mqCleanup), nil
}

// handleProductChanged returns an error only when the record must be
// redelivered. Permanent failures are dead lettered.
func (s *Service) handleProductChanged(ctx context.Context, msg mq.ConsumeMsg) error {
	env, err := message.ParseEnvelope(msg.Payload)
	if err == nil {
		ctx = correlationid.Ensure(ctx, env.MessageID)

		var res service.Result
		res, err = s.syncSvc.HandleEnvelope(ctx, env)
		if err == nil {
			s.logger.InfoContext(ctx, "product changed event handled",
				slog.String("outcome", res.Outcome.String()),
				slog.String("product_id", res.ProductID),
			)
			return nil
		}
	}

	if zerror.StatusOf(err).Retryable() {
		return fmt.Errorf("handle product changed event: %w", err)
	}

	return s.deadLetter(ctx, msg, err)
}

// deadLetter forwards a permanently failed record unchanged. Without a dead
// letter topic the cause is returned as is, and the consumer logs and commits
// it. A failed produce is retryable so the record is not lost.
func (s *Service) deadLetter(ctx context.Context, msg mq.ConsumeMsg, cause error) error {
	if s.cfg.DeadLetterTopic == "" || s.mqProducer == nil {
		return fmt.Errorf("handle product changed event: %w", cause)
	}

	h := headers.Build(ctx)
	h[HeaderError] = cause.Error()
	var zErr zerror.ZError
	if errors.As(cause, &zErr) {
		h[HeaderErrorCode] = zErr.Code()
	}

	if err := s.mqProducer.Produce(ctx, mq.ProduceMsg{
		Topic:   s.cfg.DeadLetterTopic,
		Key:     msg.Key,
		Headers: h,
		Payload: msg.Payload,
	}); err != nil {
		return apperr.DeadLetterUnavailableErr.WrapParent(fmt.Errorf("produce dead letter for %v: %w", cause, err))
	}

	s.logger.WarnContext(ctx, "product changed event dead lettered",
		slog.String("topic", s.cfg.DeadLetterTopic),
		slog.Any("error", cause),
	)

	return nil
}
