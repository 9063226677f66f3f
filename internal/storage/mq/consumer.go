package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/codes"

	"github.com/tuanvumaihuynh/product-selection-sync/internal/config"
	"github.com/tuanvumaihuynh/product-selection-sync/pkg/headers"
	"github.com/tuanvumaihuynh/product-selection-sync/pkg/zerror"
)

// ConsumeMsg is a record handed to a HandlerFunc.
type ConsumeMsg struct {
	Topic   string
	Key     []byte
	Headers map[string]string
	Payload []byte
}

type HandlerFunc func(ctx context.Context, msg ConsumeMsg) error

type CleanupFunc func()

type Consumer interface {
	RegisterHandler(topic string, handler HandlerFunc) error
	Run(ctx context.Context) (CleanupFunc, error)
}

var _ Consumer = (*KafkaConsumer)(nil)

type KafkaConsumer struct {
	cl           *kgo.Client
	handlers     map[string]HandlerFunc
	retryBackoff time.Duration
	log          *slog.Logger
}

func NewKafkaConsumer(ctx context.Context, cfg config.Kafka, logger *slog.Logger) (*KafkaConsumer, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Addresses...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
		kgo.WithContext(ctx),
		kgo.WithHooks(kTracer),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := cl.Ping(pingCtx); err != nil {
		cl.Close()
		return nil, fmt.Errorf("ping kafka: %w", err)
	}

	return &KafkaConsumer{
		cl:           cl,
		handlers:     make(map[string]HandlerFunc),
		retryBackoff: cfg.RetryBackoff,
		log:          logger.With(slog.String("component", "kafka_consumer")),
	}, nil
}

func (c *KafkaConsumer) RegisterHandler(topic string, handler HandlerFunc) error {
	if _, exists := c.handlers[topic]; exists {
		return fmt.Errorf("handler for topic %s already registered", topic)
	}

	c.cl.AddConsumeTopics(topic)
	c.handlers[topic] = handler
	return nil
}

// Run polls until ctx is done. Only records whose handler succeeded or failed
// permanently are committed. A retryable failure rewinds its partition to the
// failed record, which is polled again after the retry backoff.
func (c *KafkaConsumer) Run(ctx context.Context) (CleanupFunc, error) {
	if len(c.handlers) == 0 {
		return nil, errors.New("no handlers registered")
	}

	ctx, cancel := context.WithCancel(ctx)
	doneChan := make(chan struct{})

	go func() {
		defer close(doneChan)
		for {
			fetches := c.cl.PollFetches(ctx)
			if ctx.Err() != nil || fetches.IsClientClosed() {
				return
			}

			// records of healthy partitions are still handled
			if errs := fetches.Errors(); len(errs) > 0 {
				c.log.ErrorContext(ctx, "error fetching messages", slog.Any("error", errs))
			}

			done, rewind := c.processRecords(ctx, fetches.Records())

			if len(done) > 0 {
				if err := c.cl.CommitRecords(ctx, done...); err != nil {
					c.log.ErrorContext(ctx, "error committing offsets", slog.Any("error", err))
				}
			}
			// partitions are still assigned until rebalancing is allowed
			c.cl.SetOffsets(rewind)
			c.cl.AllowRebalance()

			if len(rewind) > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.retryBackoff):
				}
			}
		}
	}()

	cleanup := func() {
		cancel()
		<-doneChan
	}

	return cleanup, nil
}

// processRecords handles recs in order and returns the records to commit and
// the offsets to rewind to. Once a partition hits a retryable failure, its
// remaining records are left for redelivery.
func (c *KafkaConsumer) processRecords(
	ctx context.Context,
	recs []*kgo.Record,
) ([]*kgo.Record, map[string]map[int32]kgo.EpochOffset) {
	var done []*kgo.Record
	rewind := make(map[string]map[int32]kgo.EpochOffset)

	for _, rec := range recs {
		if _, blocked := rewind[rec.Topic][rec.Partition]; blocked {
			continue
		}

		err := c.handleRecord(ctx, rec)
		if err != nil && zerror.StatusOf(err).Retryable() {
			if rewind[rec.Topic] == nil {
				rewind[rec.Topic] = make(map[int32]kgo.EpochOffset)
			}
			rewind[rec.Topic][rec.Partition] = kgo.EpochOffset{Epoch: rec.LeaderEpoch, Offset: rec.Offset}
			continue
		}

		done = append(done, rec)
	}

	return done, rewind
}

func (c *KafkaConsumer) handleRecord(ctx context.Context, rec *kgo.Record) (err error) {
	msg := toConsumeMsg(rec)

	if rec.Context == nil {
		rec.Context = ctx
	}
	spanCtx, span := kTracer.WithProcessSpan(rec)
	defer span.End()

	ctx = headers.ExtractContext(spanCtx, msg.Headers)

	logAttrs := []any{
		slog.String("topic", rec.Topic),
		slog.Int("partition", int(rec.Partition)),
		slog.Int64("offset", rec.Offset),
	}

	defer func() {
		if rvr := recover(); rvr != nil {
			err = fmt.Errorf("panic in message handler: %v", rvr)
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic in handler")

			c.log.ErrorContext(ctx, "panic in message handler",
				append(logAttrs,
					slog.Any("recover", rvr),
					slog.String("stack", string(debug.Stack())),
				)...,
			)
		}
	}()

	fn, exists := c.handlers[rec.Topic]
	if !exists {
		c.log.WarnContext(ctx, "no handler registered for topic", logAttrs...)
		return nil
	}

	if err := fn(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")

		if zerror.StatusOf(err).Retryable() {
			c.log.WarnContext(ctx, "message will be redelivered", append(logAttrs, slog.Any("error", err))...)
		} else {
			c.log.ErrorContext(ctx, "message dropped", append(logAttrs, slog.Any("error", err))...)
		}
		return err
	}

	return nil
}

func (c *KafkaConsumer) Close() {
	c.cl.Close()
}

func toConsumeMsg(rec *kgo.Record) ConsumeMsg {
	h := make(map[string]string, len(rec.Headers))
	for _, header := range rec.Headers {
		h[header.Key] = string(header.Value)
	}

	return ConsumeMsg{
		Topic:   rec.Topic,
		Key:     rec.Key,
		Headers: h,
		Payload: rec.Value,
	}
}
