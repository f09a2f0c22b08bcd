package controller

import (
	"testing"
	"time"

	"github.com/cordigram/directory/internal/directory/db"
	"github.com/cordigram/directory/internal/directory/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// MockProducer is a test double for the Kafka producer.
type MockProducer struct {
	events chan events.Event
}

func newMockProducer() *MockProducer {
	return &MockProducer{events: make(chan events.Event, 32)}
}

// Produce records the event.
func (m *MockProducer) Produce(event events.Event) {
	m.events <- event
}

// next waits for the next produced event.
func (m *MockProducer) next(t *testing.T) events.Event {
	t.Helper()
	select {
	case ev := <-m.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

// newTestRepo opens a private in-memory SQLite repository.
func newTestRepo(t *testing.T) *db.Repository {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	repo, err := db.Open(sqlite.Open(dsn))
	require.NoError(t, err)
	require.NoError(t, repo.SetMaxOpenConns(1))
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}
