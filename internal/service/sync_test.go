package service_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/product-selection-sync/internal/apperr"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/config"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/message"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/model"
	"github.com/tuanvumaihuynh/product-selection-sync/internal/service"
)

type mockSelectionClient struct {
	mock.Mock
}

func (m *mockSelectionClient) GetProductSelectionByKey(ctx context.Context, key string) (model.ProductSelection, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(model.ProductSelection), args.Error(1)
}

func (m *mockSelectionClient) AddProductToSelection(ctx context.Context, selection model.ProductSelection, productID string) (model.ProductSelection, error) {
	args := m.Called(ctx, selection, productID)
	return args.Get(0).(model.ProductSelection), args.Error(1)
}

var syncCfg = config.Sync{
	AttributeName: "dealer_name",
	KeyPrefix:     "product_selection_",
}

func newMessage(productID string, attrs ...message.Attribute) *message.Message {
	return &message.Message{
		Resource: message.Resource{ID: productID},
		ProductProjection: &message.ProductProjection{
			MasterVariant: &message.Variant{Attributes: attrs},
		},
	}
}

func dealer(value string) message.Attribute {
	raw, _ := json.Marshal(value)
	return message.Attribute{Name: "dealer_name", Value: raw}
}

func TestSyncService_HandleMessage(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	t.Run("Should skip without remote calls when dealer attribute is missing", func(t *testing.T) {
		client := &mockSelectionClient{}
		svc := service.NewSyncService(syncCfg, logger, client)

		res, err := svc.HandleMessage(ctx, newMessage("P1", message.Attribute{Name: "color", Value: json.RawMessage(`"red"`)}))

		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSkipped, res.Outcome)
		client.AssertNotCalled(t, "GetProductSelectionByKey", mock.Anything, mock.Anything)
		client.AssertNotCalled(t, "AddProductToSelection", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should skip without remote calls when dealer attribute is null or empty", func(t *testing.T) {
		for _, raw := range []string{`null`, `""`} {
			client := &mockSelectionClient{}
			svc := service.NewSyncService(syncCfg, logger, client)

			res, err := svc.HandleMessage(ctx, newMessage("P1", message.Attribute{Name: "dealer_name", Value: json.RawMessage(raw)}))

			require.NoError(t, err, raw)
			assert.Equal(t, service.OutcomeSkipped, res.Outcome, raw)
			assert.Empty(t, res.SelectionKey, raw)
			client.AssertNotCalled(t, "GetProductSelectionByKey", mock.Anything, mock.Anything)
		}
	})

	t.Run("Should skip absent message", func(t *testing.T) {
		client := &mockSelectionClient{}
		svc := service.NewSyncService(syncCfg, logger, client)

		res, err := svc.HandleMessage(ctx, nil)

		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSkipped, res.Outcome)
		client.AssertExpectations(t)
	})

	t.Run("Should look up derived key and add product with selection version", func(t *testing.T) {
		client := &mockSelectionClient{}
		selection := model.ProductSelection{ID: "S1", Key: "product_selection_X", Version: 3}
		updated := model.ProductSelection{ID: "S1", Key: "product_selection_X", Version: 4}
		client.On("GetProductSelectionByKey", mock.Anything, "product_selection_X").Return(selection, nil).Once()
		client.On("AddProductToSelection", mock.Anything, selection, "P1").Return(updated, nil).Once()

		svc := service.NewSyncService(syncCfg, logger, client)
		res, err := svc.HandleMessage(ctx, newMessage("P1", dealer("X")))

		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSynced, res.Outcome)
		assert.Equal(t, "product_selection_X", res.SelectionKey)
		assert.Equal(t, updated, res.Selection)
		client.AssertExpectations(t)
	})

	t.Run("Should fail without update when selection is not found", func(t *testing.T) {
		client := &mockSelectionClient{}
		client.On("GetProductSelectionByKey", mock.Anything, "product_selection_X").
			Return(model.ProductSelection{}, apperr.SelectionNotFoundErr).Once()

		svc := service.NewSyncService(syncCfg, logger, client)
		_, err := svc.HandleMessage(ctx, newMessage("P1", dealer("X")))

		assert.ErrorIs(t, err, apperr.SelectionNotFoundErr)
		client.AssertNotCalled(t, "AddProductToSelection", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should propagate update failure", func(t *testing.T) {
		client := &mockSelectionClient{}
		selection := model.ProductSelection{ID: "S1", Version: 3}
		client.On("GetProductSelectionByKey", mock.Anything, "product_selection_X").Return(selection, nil).Once()
		client.On("AddProductToSelection", mock.Anything, selection, "P1").
			Return(model.ProductSelection{}, apperr.VersionConflictErr).Once()

		svc := service.NewSyncService(syncCfg, logger, client)
		_, err := svc.HandleMessage(ctx, newMessage("P1", dealer("X")))

		assert.ErrorIs(t, err, apperr.VersionConflictErr)
	})

	t.Run("Should reject dealer attribute without product id", func(t *testing.T) {
		client := &mockSelectionClient{}
		svc := service.NewSyncService(syncCfg, logger, client)

		_, err := svc.HandleMessage(ctx, newMessage("", dealer("X")))

		assert.ErrorIs(t, err, apperr.MalformedMessageErr)
		client.AssertNotCalled(t, "GetProductSelectionByKey", mock.Anything, mock.Anything)
	})

	t.Run("Should use configured attribute name and prefix", func(t *testing.T) {
		client := &mockSelectionClient{}
		client.On("GetProductSelectionByKey", mock.Anything, "ps-acme").Return(model.ProductSelection{ID: "S2"}, nil).Once()
		client.On("AddProductToSelection", mock.Anything, model.ProductSelection{ID: "S2"}, "P2").Return(model.ProductSelection{ID: "S2"}, nil).Once()

		svc := service.NewSyncService(config.Sync{AttributeName: "dealer", KeyPrefix: "ps-"}, logger, client)
		res, err := svc.HandleMessage(ctx, newMessage("P2", message.Attribute{Name: "dealer", Value: json.RawMessage(`{"key":"acme","label":"Acme"}`)}))

		require.NoError(t, err)
		assert.Equal(t, "ps-acme", res.SelectionKey)
		client.AssertExpectations(t)
	})
}

func TestSyncService_HandleEnvelope(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	t.Run("Should skip envelope without data", func(t *testing.T) {
		client := &mockSelectionClient{}
		svc := service.NewSyncService(syncCfg, logger, client)

		res, err := svc.HandleEnvelope(ctx, message.Envelope{})

		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSkipped, res.Outcome)
	})

	t.Run("Should fail on malformed payload", func(t *testing.T) {
		client := &mockSelectionClient{}
		svc := service.NewSyncService(syncCfg, logger, client)

		_, err := svc.HandleEnvelope(ctx, message.Envelope{Data: []byte("not json")})

		assert.ErrorIs(t, err, apperr.MalformedMessageErr)
	})

	t.Run("Should decode and sync", func(t *testing.T) {
		client := &mockSelectionClient{}
		selection := model.ProductSelection{ID: "S1", Version: 3}
		client.On("GetProductSelectionByKey", mock.Anything, "product_selection_acme").Return(selection, nil).Once()
		client.On("AddProductToSelection", mock.Anything, selection, "P1").Return(selection, nil).Once()

		svc := service.NewSyncService(syncCfg, logger, client)
		data := []byte(`{"resource":{"id":"P1"},"productProjection":{"masterVariant":{"attributes":[{"name":"dealer_name","value":"acme"}]}}}`)
		res, err := svc.HandleEnvelope(ctx, message.Envelope{Data: data})

		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSynced, res.Outcome)
		client.AssertExpectations(t)
	})
}

func TestOutcome_String(t *testing.T) {
	t.Run("Should name known outcomes", func(t *testing.T) {
		assert.Equal(t, "skipped", service.OutcomeSkipped.String())
		assert.Equal(t, "synced", service.OutcomeSynced.String())
	})

	t.Run("Should not panic on unknown outcome", func(t *testing.T) {
		assert.Equal(t, "unknown", service.Outcome(42).String())
	})
}
