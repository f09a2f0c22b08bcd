package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// handlerRetries is how many times a failed event is retried before the
// consumer moves past it.
const handlerRetries = 3

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  KafkaReader
	logger  *zap.Logger
	handler func(context.Context, Event) error
	backOff func() backoff.BackOff
	done    chan struct{}
}

// NewConsumer reads directory events from topic as part of groupID.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
		Dialer:  kafka.DefaultDialer,
	}), logger)
}

func newConsumer(reader KafkaReader, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:  reader,
		logger:  logger.Named("kafka_consumer"),
		backOff: defaultBackOff,
		done:    make(chan struct{}),
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Start fetches messages until ctx is cancelled. Fetch errors are retried
// with exponential backoff.
func (c *Consumer) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		fetchBackOff := backoff.WithContext(c.backOff(), ctx)
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				wait := fetchBackOff.NextBackOff()
				c.logger.Error("Failed to fetch message", zap.Error(err), zap.Duration("retry_in", wait))
				if wait == backoff.Stop || !sleep(ctx, wait) {
					return
				}
				continue
			}
			fetchBackOff.Reset()
			c.process(ctx, msg)
		}
	}()
}

// process hands msg to the handler, retrying failures with backoff. Kafka
// commits are positional, so delivery is at-least-once and best-effort: an
// event that still fails, or cannot be parsed, is logged and committed.
// Member counts it would have moved are repaired by a reconcile run. A
// message interrupted by shutdown is left uncommitted for redelivery.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to parse event",
			zap.Error(err),
			zap.ByteString("value", msg.Value),
		)
		c.commit(ctx, msg, "")
		return
	}

	if c.handler != nil {
		b := backoff.WithContext(backoff.WithMaxRetries(c.backOff(), handlerRetries), ctx)
		err := backoff.RetryNotify(func() error {
			return c.handler(ctx, event)
		}, b, func(err error, wait time.Duration) {
			c.logger.Warn("Retrying event",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
				zap.Duration("retry_in", wait),
			)
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Failed to handle event",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
			)
		}
	}

	c.commit(ctx, msg, event.Type)
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, eventType EventType) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
		)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Consumer) RegisterHandler(fn func(context.Context, Event) error) {
	c.handler = fn
}

// Close stops reading. When Start was called, ctx must be cancelled first.
func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}

// Wait blocks until the fetch loop started by Start has returned.
func (c *Consumer) Wait() {
	<-c.done
}
