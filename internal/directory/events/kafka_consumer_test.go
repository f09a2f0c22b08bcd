package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fakeReader fails the first fetchErrs fetches, serves queued messages, then
// blocks until the context ends.
type fakeReader struct {
	mu        sync.Mutex
	fetchErrs int
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErrs > 0 {
		r.fetchErrs--
		r.mu.Unlock()
		return kafka.Message{}, errors.New("broker unavailable")
	}
	if len(r.queue) > 0 {
		msg := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.committed)
}

// countingBackOff waits a millisecond between attempts and counts them.
type countingBackOff struct {
	mu    sync.Mutex
	waits int
}

func (b *countingBackOff) NextBackOff() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.waits++
	return time.Millisecond
}

func (b *countingBackOff) Reset() {}

func (b *countingBackOff) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.waits
}

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

func workplaceMessage(t *testing.T) kafka.Message {
	t.Helper()
	next := uuid.New()
	value, err := json.Marshal(Event{
		Type:      WorkplaceChanged,
		Workplace: &WorkplaceChange{UserID: "u1", NextCompanyID: &next},
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte("u1"), Value: value}
}

func TestConsumer_Process(t *testing.T) {
	t.Run("handled message is committed", func(t *testing.T) {
		reader := &fakeReader{}
		consumer := newConsumer(reader, zaptest.NewLogger(t))
		var got Event
		consumer.RegisterHandler(func(_ context.Context, event Event) error {
			got = event
			return nil
		})

		consumer.process(context.Background(), workplaceMessage(t))

		assert.Equal(t, WorkplaceChanged, got.Type)
		require.NotNil(t, got.Workplace)
		assert.Equal(t, "u1", got.Workplace.UserID)
		assert.Equal(t, 1, reader.commits())
	})

	t.Run("transient handler failure is retried", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		reader := &fakeReader{}
		consumer := newConsumer(reader, zap.New(core))
		consumer.backOff = noWait
		calls := 0
		consumer.RegisterHandler(func(context.Context, Event) error {
			calls++
			if calls < 3 {
				return errors.New("database busy")
			}
			return nil
		})

		consumer.process(context.Background(), workplaceMessage(t))

		assert.Equal(t, 3, calls)
		assert.Equal(t, 1, reader.commits())
		assert.Equal(t, 2, recorded.FilterMessage("Retrying event").Len())
		assert.Equal(t, 0, recorded.FilterMessage("Failed to handle event").Len())
	})

	t.Run("persistent handler failure is skipped", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		reader := &fakeReader{}
		consumer := newConsumer(reader, zap.New(core))
		consumer.backOff = noWait
		calls := 0
		consumer.RegisterHandler(func(context.Context, Event) error {
			calls++
			return errors.New("handler error")
		})

		consumer.process(context.Background(), workplaceMessage(t))

		assert.Equal(t, handlerRetries+1, calls)
		assert.Equal(t, 1, reader.commits(), "offsets are positional, the failed event is committed")
		assert.Equal(t, 1, recorded.FilterMessage("Failed to handle event").Len())
	})

	t.Run("shutdown during retry is not committed", func(t *testing.T) {
		reader := &fakeReader{}
		consumer := newConsumer(reader, zaptest.NewLogger(t))
		consumer.backOff = noWait
		ctx, cancel := context.WithCancel(context.Background())
		consumer.RegisterHandler(func(context.Context, Event) error {
			cancel()
			return errors.New("handler error")
		})

		consumer.process(ctx, workplaceMessage(t))

		assert.Equal(t, 0, reader.commits())
	})

	t.Run("malformed message is skipped", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		reader := &fakeReader{}
		consumer := newConsumer(reader, zap.New(core))
		called := false
		consumer.RegisterHandler(func(context.Context, Event) error {
			called = true
			return nil
		})

		consumer.process(context.Background(), kafka.Message{Value: []byte("{not json")})

		assert.False(t, called)
		assert.Equal(t, 1, reader.commits())
		assert.Equal(t, 1, recorded.FilterMessage("Failed to parse event").Len())
	})
}

func TestConsumer_StartStopsOnCancel(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{workplaceMessage(t), workplaceMessage(t)}}
	consumer := newConsumer(reader, zaptest.NewLogger(t))

	var wg sync.WaitGroup
	wg.Add(2)
	consumer.RegisterHandler(func(context.Context, Event) error {
		wg.Done()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)
	wg.Wait()
	cancel()
	consumer.Wait()
	consumer.Close()

	assert.Equal(t, 2, reader.commits())
	assert.True(t, reader.closed)
}

func TestConsumer_FetchErrorsBackOff(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	reader := &fakeReader{fetchErrs: 3, queue: []kafka.Message{workplaceMessage(t)}}
	consumer := newConsumer(reader, zap.New(core))
	waits := &countingBackOff{}
	consumer.backOff = func() backoff.BackOff { return waits }

	handled := make(chan struct{})
	consumer.RegisterHandler(func(context.Context, Event) error {
		close(handled)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)
	<-handled
	cancel()
	consumer.Wait()
	consumer.Close()

	assert.Equal(t, 3, waits.count(), "every failed fetch waits before the next attempt")
	assert.Equal(t, 3, recorded.FilterMessage("Failed to fetch message").Len())
	assert.Equal(t, 1, reader.commits())
}
