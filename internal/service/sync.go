package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuanvumaihuynh/product-selection-sync/internal/apperr"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/commercetools"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/config"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/log"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/message"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/model"
)

// Outcome describes what handling a message did.
type Outcome uint8

const (
	OutcomeSkipped Outcome = iota
	OutcomeSynced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSynced:
		return "synced"
	default:
		return "unknown"
	}
}

type Result struct {
	Outcome      Outcome
	ProductID    string
	SelectionKey string
	Selection    model.ProductSelection
}

type SyncService interface {
	HandleEnvelope(ctx context.Context, env message.Envelope) (Result, error)
	HandleMessage(ctx context.Context, msg *message.Message) (Result, error)
}

type syncService struct {
	cfg     config.Sync
	logger  *slog.Logger
	selects commercetools.SelectionClient
}

func NewSyncService(
	cfg config.Sync,
	logger *slog.Logger,
	selects commercetools.SelectionClient,
) SyncService {
	return &syncService{
		cfg:     cfg,
		logger:  logger.With(slog.String("service", "sync")),
		selects: selects,
	}
}

func (s *syncService) HandleEnvelope(ctx context.Context, env message.Envelope) (Result, error) {
	msg, err := message.Decode(env)
	if err != nil {
		return Result{}, fmt.Errorf("decode message: %w", err)
	}

	return s.HandleMessage(ctx, msg)
}

// HandleMessage attaches the product to the selection named after its dealer
// attribute. A message without the attribute is skipped without remote calls.
func (s *syncService) HandleMessage(ctx context.Context, msg *message.Message) (Result, error) {
	productID := msg.ProductID()
	ctx = log.ContextWith(ctx, slog.String("product_id", productID))
	s.logger.InfoContext(ctx, "received product")

	res := Result{Outcome: OutcomeSkipped, ProductID: productID}

	attrs, _ := msg.Attributes()
	attr, ok := message.FindAttribute(attrs, s.cfg.AttributeName)
	if !ok {
		s.logger.InfoContext(ctx, "product selection attribute not found",
			slog.String("attribute", s.cfg.AttributeName),
		)
		return res, nil
	}

	value := attr.Text()
	if value == "" {
		// null and "" both name no selection
		s.logger.InfoContext(ctx, "product selection attribute empty",
			slog.String("attribute", s.cfg.AttributeName),
		)
		return res, nil
	}
	s.logger.InfoContext(ctx, "product selection attribute found", slog.String("value", value))

	if productID == "" {
		return res, apperr.MalformedMessageErr.WrapParent(errors.New("missing resource id"))
	}

	res.SelectionKey = s.cfg.KeyPrefix + value
	ctx = log.ContextWith(ctx, slog.String("selection_key", res.SelectionKey))

	selection, err := s.selects.GetProductSelectionByKey(ctx, res.SelectionKey)
	if err != nil {
		return res, fmt.Errorf("get product selection by key: %w", err)
	}

	updated, err := s.selects.AddProductToSelection(ctx, selection, productID)
	if err != nil {
		return res, fmt.Errorf("add product to selection: %w", err)
	}

	res.Outcome = OutcomeSynced
	res.Selection = updated

	return res, nil
}
