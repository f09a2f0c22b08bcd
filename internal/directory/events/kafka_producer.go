// Package events publishes directory events to Kafka and consumes them for
// background bookkeeping.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cordigram/directory/internal/directory/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	CompanyCreated   EventType = "company_created"
	WorkplaceChanged EventType = "workplace_changed"
	ReportFiled      EventType = "report_filed"
	ReportUpdated    EventType = "report_updated"
)

// WorkplaceChange describes a profile moving between companies. A nil side
// means the profile had, or now has, no workplace.
type WorkplaceChange struct {
	UserID        string     `json:"user_id"`
	PrevCompanyID *uuid.UUID `json:"prev_company_id,omitempty"`
	NextCompanyID *uuid.UUID `json:"next_company_id,omitempty"`
}

type Event struct {
	Type      EventType        `json:"type"`
	Company   *models.Company  `json:"company,omitempty"`
	Workplace *WorkplaceChange `json:"workplace,omitempty"`
	Report    *models.Report   `json:"report,omitempty"`
}

// Key returns the partitioning key of the event.
func (e Event) Key() string {
	switch {
	case e.Company != nil:
		return e.Company.ID.String()
	case e.Workplace != nil:
		return e.Workplace.UserID
	case e.Report != nil:
		return e.Report.ID.String()
	default:
		return string(e.Type)
	}
}

type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer    KafkaWriter
	events    chan Event
	logger    *zap.Logger
	closeChan chan struct{}
	done      chan struct{}
}

// NewProducer creates the topic when missing and starts the delivery loop.
func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	topicConfigs := []kafka.TopicConfig{
		{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		},
	}

	err = conn.CreateTopics(topicConfigs...)
	if err != nil {
		logger.Warn("failed to create topic (may already exist)", zap.Error(err))
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}
	return newProducer(writer, logger, 1000), nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, buffer int) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, buffer),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Produce queues an event for delivery. Events are dropped, with a warning,
// when the queue is full.
func (p *Producer) Produce(event Event) {
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("key", event.Key()),
		)
	}
}

func (p *Producer) eventLoop() {
	defer close(p.done)
	for {
		select {
		case event := <-p.events:
			p.sendEvent(context.Background(), event)
		case <-p.closeChan:
			return
		}
	}
}

func (p *Producer) sendEvent(ctx context.Context, event Event) {
	value, err := jsonMarshal(event)
	if err != nil {
		p.logger.Error("Failed to serialize event",
			zap.Error(err),
			zap.String("key", event.Key()),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			zap.String("key", event.Key()),
		)
		return
	}
}

// Close stops the delivery loop and closes the writer. Queued events that
// were not yet picked up are discarded.
func (p *Producer) Close() {
	close(p.closeChan)
	<-p.done
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}

// Discard is a producer that drops every event. It is used when no Kafka
// brokers are configured.
type Discard struct{}

func (Discard) Produce(Event) {}
