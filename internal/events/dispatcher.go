package events

import (
	"context"
	"sync"

	"github.com/nicscott/assessment-reports/pkg/logging"
)

// Handler consumes a single envelope. Errors are logged, never retried;
// downstream consumers own their own durability.
type Handler func(ctx context.Context, env Envelope) error

// Dispatcher routes envelopes to in-process subscribers by event type.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *logging.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type.
func (d *Dispatcher) Subscribe(eventType string, h Handler) {
	if eventType == "" || h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], h)
}

// Publish wraps the event in an envelope and delivers it synchronously
// to every subscriber. Handler failures do not stop delivery to the
// remaining subscribers.
func (d *Dispatcher) Publish(ctx context.Context, aggregate, correlationID string, evt CanonicalEvent, opts ...EnvelopeOption) error {
	env, err := NewEnvelope(aggregate, correlationID, evt, opts...)
	if err != nil {
		return err
	}

	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers[env.EventType]...)
	d.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, env); err != nil {
			d.logger.Error("event handler failed",
				"event_type", env.EventType,
				"event_id", env.EventID.String(),
				"error", err,
			)
		}
	}
	return nil
}
