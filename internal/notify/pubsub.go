package notify

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// PubSubConfig holds configuration for the Pub/Sub notifier.
type PubSubConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// PubSubNotifier publishes notifications to a Pub/Sub topic so other
// devices or services can fan them out.
type PubSubNotifier struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewPubSubNotifier creates a publisher for cfg.Topic.
func NewPubSubNotifier(ctx context.Context, cfg PubSubConfig) (*PubSubNotifier, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubNotifier{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// Notify publishes n and waits for the server acknowledgement.
func (p *PubSubNotifier) Notify(ctx context.Context, n *Notification) error {
	msg, err := Message(n)
	if err != nil {
		return err
	}

	serverID, err := p.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}

	p.logger.Debug().
		Str("notification_id", n.ID).
		Str("server_id", serverID).
		Str("topic", p.topic).
		Msg("notification published")
	return nil
}

// Name returns "pubsub".
func (p *PubSubNotifier) Name() string { return "pubsub" }

// Available reports whether the publisher is configured.
func (p *PubSubNotifier) Available() bool { return p.publisher != nil }

// Close flushes pending messages and closes the client.
func (p *PubSubNotifier) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

// Message encodes n as a Pub/Sub message.
func Message(n *Notification) (*pubsub.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encoding notification: %w", err)
	}
	return &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"notification_id": n.ID,
			"condition":       n.Condition,
			"source":          n.Source,
		},
	}, nil
}
