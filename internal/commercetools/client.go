package commercetools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labd/commercetools-go-sdk/platform"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/tuanvumaihuynh/product-selection-sync/internal/apperr"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/config"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/model"
	"github.com/tuanvumaihuynh/product-selection-sync/pkg/ptr"
)

var tracer = otel.Tracer("internal/commercetools")

// SelectionClient reads and updates product selections on the commerce platform.
type SelectionClient interface {
	GetProductSelectionByKey(ctx context.Context, key string) (model.ProductSelection, error)
	AddProductToSelection(ctx context.Context, selection model.ProductSelection, productID string) (model.ProductSelection, error)
}

var _ SelectionClient = (*Client)(nil)

type Client struct {
	project *platform.ByProjectKeyRequestBuilder
	logger  *slog.Logger
}

// NewClient creates a project-scoped client authenticating with the client
// credentials flow. Tokens are fetched lazily on the first request.
func NewClient(cfg config.Commercetools, logger *slog.Logger) (*Client, error) {
	sdkClient, err := platform.NewClient(&platform.ClientConfig{
		URL: cfg.APIHost(),
		Credentials: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL(),
			Scopes:       cfg.Scopes(),
		},
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("create commercetools client: %w", err)
	}

	return &Client{
		project: sdkClient.WithProjectKey(cfg.ProjectKey),
		logger:  logger.With(slog.String("component", "commercetools")),
	}, nil
}

func (c *Client) GetProductSelectionByKey(ctx context.Context, key string) (model.ProductSelection, error) {
	ctx, span := tracer.Start(ctx, "Client.GetProductSelectionByKey",
		trace.WithAttributes(attribute.String("product_selection.key", key)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	ps, err := c.project.ProductSelections().WithKey(key).Get().Execute(ctx)
	if err != nil {
		err = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "get product selection failed")
		return model.ProductSelection{}, fmt.Errorf("get product selection %q: %w", key, err)
	}

	selection := toModel(ps)
	c.logger.InfoContext(ctx, "product selection found", slog.String("product_selection_key", selection.Key))

	return selection, nil
}

func (c *Client) AddProductToSelection(ctx context.Context, selection model.ProductSelection, productID string) (model.ProductSelection, error) {
	ctx, span := tracer.Start(ctx, "Client.AddProductToSelection",
		trace.WithAttributes(
			attribute.String("product_selection.id", selection.ID),
			attribute.Int("product_selection.version", selection.Version),
			attribute.String("product.id", productID),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	c.logger.InfoContext(ctx, "syncing product to product selection",
		slog.String("product_selection_id", selection.ID),
		slog.Int("product_selection_version", selection.Version),
	)

	ps, err := c.project.ProductSelections().WithId(selection.ID).Post(addProductUpdate(selection, productID)).Execute(ctx)
	if err != nil {
		err = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "update product selection failed")
		return model.ProductSelection{}, fmt.Errorf("add product %q to product selection %q: %w", productID, selection.ID, err)
	}

	return toModel(ps), nil
}

func addProductUpdate(selection model.ProductSelection, productID string) platform.ProductSelectionUpdate {
	return platform.ProductSelectionUpdate{
		Version: selection.Version,
		Actions: []platform.ProductSelectionUpdateAction{
			platform.ProductSelectionAddProductAction{
				Product: platform.ProductResourceIdentifier{
					ID: ptr.New(productID),
				},
			},
		},
	}
}

func toModel(ps *platform.ProductSelection) model.ProductSelection {
	if ps == nil {
		return model.ProductSelection{}
	}

	selection := model.ProductSelection{
		ID:             ps.ID,
		Version:        ps.Version,
		ProductCount:   ps.ProductCount,
		LastModifiedAt: ps.LastModifiedAt,
	}
	if ps.Key != nil {
		selection.Key = *ps.Key
	}

	return selection
}

// classify maps SDK errors onto the application error taxonomy so callers can
// tell a missing selection apart from a conflict or a transient failure.
func classify(err error) error {
	if errors.Is(err, platform.ErrNotFound) {
		return apperr.SelectionNotFoundErr.WrapParent(err)
	}

	switch statusCode(err) {
	case http.StatusNotFound:
		return apperr.SelectionNotFoundErr.WrapParent(err)
	case http.StatusConflict:
		return apperr.VersionConflictErr.WrapParent(err)
	case http.StatusBadRequest:
		return apperr.UpdateRejectedErr.WrapParent(err)
	default:
		return apperr.PlatformUnavailableErr.WrapParent(err)
	}
}

func statusCode(err error) int {
	var errResp platform.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp.StatusCode
	}

	var genericErr platform.GenericRequestError
	if errors.As(err, &genericErr) {
		return genericErr.StatusCode
	}

	return 0
}
