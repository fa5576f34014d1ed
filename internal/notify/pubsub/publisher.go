// Package pubsub publishes order events to Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/wokexpress/storefront/internal/notify"
)

// EventTypeOrderCreated is set as the event_type attribute on published messages.
const EventTypeOrderCreated = "order_created"

// PublisherConfig holds configuration for the Pub/Sub publisher.
type PublisherConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// Publisher is a notify.Notifier backed by a Pub/Sub topic.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewPublisher creates a new Pub/Sub publisher.
func NewPublisher(ctx context.Context, cfg PublisherConfig) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	publisher := client.Publisher(cfg.Topic)
	publisher.PublishSettings.DelayThreshold = 50 * time.Millisecond
	publisher.PublishSettings.CountThreshold = 10

	return &Publisher{
		client:    client,
		publisher: publisher,
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// NotifyOrder publishes event and waits for the server to acknowledge it.
func (p *Publisher) NotifyOrder(ctx context.Context, event notify.OrderEvent) error {
	msg, err := NewMessage(event)
	if err != nil {
		return err
	}

	id, err := p.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing order %s: %w", event.OrderID, err)
	}

	p.logger.Debug().
		Str("order_id", event.OrderID).
		Str("topic", p.topic).
		Str("message_id", id).
		Msg("published order event")
	return nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

// NewMessage encodes event as a Pub/Sub message.
func NewMessage(event notify.OrderEvent) (*pubsub.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding order event: %w", err)
	}
	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": EventTypeOrderCreated,
			"order_id":   event.OrderID,
		},
	}, nil
}

var _ notify.Notifier = (*Publisher)(nil)
