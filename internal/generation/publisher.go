package generation

import (
	"context"
	"fmt"

	"github.com/nicscott/assessment-reports/pkg/logging"
)

// Publisher enqueues generation jobs for asynchronous processing.
type Publisher struct {
	queue  Queue
	logger *logging.Logger
}

// NewPublisher creates a queue-backed publisher.
func NewPublisher(queue Queue, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("generation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		queue:  queue,
		logger: logger,
	}
}

// Enqueue publishes a generation job for the entry.
func (p *Publisher) Enqueue(ctx context.Context, entryID int64) error {
	if ctx == nil {
		ctx = context.Background()
	}

	payload, body, err := encodePayload(entryID)
	if err != nil {
		return err
	}

	if err := p.queue.Send(ctx, body); err != nil {
		return fmt.Errorf("generation: failed to enqueue job: %w", err)
	}

	p.logger.Debug("generation job enqueued", "job_id", payload.ID, "entry_id", entryID)
	return nil
}
