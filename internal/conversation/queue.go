package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/seguroja/whatsapp-crm/pkg/logging"
)

// queueClient decouples webhook ingestion from turn processing. The
// in-memory implementation covers single-instance deployments; the
// interface keeps the door open for an external broker.
type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

type queuePayload struct {
	ID      string         `json:"id"`
	Message InboundMessage `json:"message"`
}

// Publisher enqueues inbound turns for the worker pool. The webhook handler
// uses it to acknowledge the gateway quickly.
type Publisher struct {
	queue  queueClient
	logger *logging.Logger
}

// NewPublisher wraps a queue client.
func NewPublisher(queue queueClient, logger *logging.Logger) *Publisher {
	if queue == nil {
		panic("conversation: queue client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{queue: queue, logger: logger}
}

// Enqueue publishes one inbound message.
func (p *Publisher) Enqueue(ctx context.Context, msg InboundMessage) error {
	payload := queuePayload{ID: uuid.NewString(), Message: msg}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("conversation: encode payload: %w", err)
	}
	if err := p.queue.Send(ctx, string(body)); err != nil {
		return fmt.Errorf("conversation: enqueue failed: %w", err)
	}
	p.logger.Debug("turn enqueued", "job_id", payload.ID, "phone", msg.Phone)
	return nil
}
