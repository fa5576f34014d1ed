package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Subscriber feeds order events from a Pub/Sub subscription to an OrderHandler.
type Subscriber struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	handler          *OrderHandler
	logger           zerolog.Logger
}

// NewSubscriber creates a new Pub/Sub subscriber.
func NewSubscriber(ctx context.Context, cfg Config, handler *OrderHandler, logger zerolog.Logger) (*Subscriber, error) {
	cfg.applyDefaults()

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstandingMessages
	subscriber.ReceiveSettings.MaxExtension = cfg.MaxExtension

	return &Subscriber{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		handler:          handler,
		logger:           logger,
	}, nil
}

// Start processes messages until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info().
		Str("subscription", s.subscriptionName).
		Msg("starting order subscriber")

	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}

func (s *Subscriber) handleMessage(ctx context.Context, msg *pubsub.Message) {
	logger := s.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	switch s.handler.Handle(logger.WithContext(ctx), msg.Data) {
	case OutcomeRetry:
		msg.Nack()
	default:
		msg.Ack()
	}
}
