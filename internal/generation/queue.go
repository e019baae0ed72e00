package generation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Queue moves generation jobs between the API and the worker.
type Queue interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Message is one received queue entry.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type queuePayload struct {
	ID      string `json:"id"`
	EntryID int64  `json:"entry_id"`
}

func encodePayload(entryID int64) (queuePayload, string, error) {
	payload := queuePayload{
		ID:      uuid.NewString(),
		EntryID: entryID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return queuePayload{}, "", fmt.Errorf("generation: failed to encode payload: %w", err)
	}
	return payload, string(body), nil
}
