package events

import (
	"github.com/gartstein/companies/internal/company/models"
	"go.uber.org/zap"
)

// Sink receives company events. It is satisfied by *Producer and by the
// audit repository.
type Sink interface {
	Produce(eventType EventType, company *models.Company)
}

// Noop discards every event.
type Noop struct{}

func (Noop) Produce(EventType, *models.Company) {}

// Fanout forwards each event to every sink in order.
type Fanout []Sink

func (f Fanout) Produce(eventType EventType, company *models.Company) {
	for _, s := range f {
		s.Produce(eventType, company)
	}
}

// Async hands events to a wrapped sink from a single goroutine, keeping
// their order without blocking the caller. Events are dropped with a
// warning when the queue is full.
type Async struct {
	sink   Sink
	queue  chan Event
	logger *zap.Logger
	done   chan struct{}
}

// NewAsync starts the dispatch goroutine; Close stops it after draining.
func NewAsync(sink Sink, queueSize int, logger *zap.Logger) *Async {
	a := &Async{
		sink:   sink,
		queue:  make(chan Event, queueSize),
		logger: logger.Named("async_sink"),
		done:   make(chan struct{}),
	}
	go a.loop()
	return a
}

func (a *Async) Produce(eventType EventType, company *models.Company) {
	select {
	case a.queue <- Event{Type: eventType, Company: company}:
	default:
		a.logger.Warn("event queue full, dropping event",
			zap.String("event_type", string(eventType)),
		)
	}
}

func (a *Async) loop() {
	defer close(a.done)
	for event := range a.queue {
		a.sink.Produce(event.Type, event.Company)
	}
}

// Close delivers queued events and waits for the dispatcher to exit.
// Produce must not be called after Close.
func (a *Async) Close() {
	close(a.queue)
	<-a.done
}
