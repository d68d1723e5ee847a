// Package events publishes and consumes company change events on Kafka.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var jsonMarshal = json.Marshal

type EventType string

const (
	CompanyCreated EventType = "company_created"
	CompanyUpdated EventType = "company_updated"
	CompanyDeleted EventType = "company_deleted"
	CompaniesReset EventType = "companies_reset"
)

const defaultQueueSize = 1000

// maxWait bounds how long NewProducer keeps retrying the broker.
var maxWait = 30 * time.Second

// Event is the JSON payload written to Kafka. Company is nil for resets.
type Event struct {
	Type       EventType       `json:"type"`
	Company    *models.Company `json:"company,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Key returns the message key: the company id, or empty for resets.
func (e Event) Key() []byte {
	if e.Company == nil {
		return nil
	}
	return []byte(strconv.Itoa(e.Company.ID))
}

func (e Event) companyField() zap.Field {
	if e.Company == nil {
		return zap.Skip()
	}
	return zap.Int("company_id", e.Company.ID)
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

// NewProducer ensures the topic exists and starts the background send loop.
// Broker dialing is retried with exponential backoff.
func NewProducer(brokers []string, logger *zap.Logger, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxWait
	err := backoff.Retry(func() error {
		conn, err := kafka.Dial("tcp", brokers[0])
		if err != nil {
			return err
		}
		defer conn.Close()

		err = conn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     3,
			ReplicationFactor: 1,
		})
		if err != nil {
			logger.Warn("failed to create topic (may already exist)", zap.Error(err))
		}
		return nil
	}, b)
	if err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.Hash{},
		Topic:    topic,
	}
	return newProducer(writer, logger, defaultQueueSize), nil
}

func newProducer(writer KafkaWriter, logger *zap.Logger, queueSize int) *Producer {
	p := &Producer{
		writer:    writer,
		events:    make(chan Event, queueSize),
		logger:    logger.Named("kafka_producer"),
		closeChan: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go p.eventLoop()
	return p
}

// Produce enqueues an event without blocking. Events are dropped with a
// warning when the queue is full.
func (p *Producer) Produce(eventType EventType, company *models.Company) {
	event := Event{Type: eventType, Company: company, OccurredAt: time.Now().UTC()}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("Kafka producer queue full, dropping event",
			zap.String("event_type", string(eventType)),
			event.companyField(),
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
			event.companyField(),
		)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   event.Key(),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to produce event",
			zap.Error(err),
			zap.String("event_type", string(event.Type)),
			event.companyField(),
		)
	}
}

// Close stops the send loop and closes the writer.
func (p *Producer) Close() {
	close(p.closeChan)
	<-p.done
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close Kafka writer", zap.Error(err))
	}
}
