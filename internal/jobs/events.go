package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/resume-extractor/internal/domain"
)

// messagePublisher is satisfied by the shared RabbitMQ client
type messagePublisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// AMQPPublisher publishes job events as JSON messages
type AMQPPublisher struct {
	client messagePublisher
}

// NewAMQPPublisher creates a publisher on top of a RabbitMQ client
func NewAMQPPublisher(client messagePublisher) *AMQPPublisher {
	return &AMQPPublisher{client: client}
}

// PublishJobEvent serializes and publishes the event
func (p *AMQPPublisher) PublishJobEvent(ctx context.Context, event domain.JobEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	if err := p.client.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}

	return nil
}
