package worker

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// TriggerConfig holds configuration for the refresh trigger publisher.
type TriggerConfig struct {
	ProjectID string
	Topic     string
	Logger    zerolog.Logger
}

// TriggerPublisher publishes RefreshMessages for a PubSubHandler to consume.
type TriggerPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
	logger    zerolog.Logger
}

// NewTriggerPublisher creates a publisher for cfg.Topic.
func NewTriggerPublisher(ctx context.Context, cfg TriggerConfig) (*TriggerPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &TriggerPublisher{
		client:    client,
		publisher: client.Publisher(cfg.Topic),
		topic:     cfg.Topic,
		logger:    cfg.Logger,
	}, nil
}

// Publish sends msg and waits for the server acknowledgement.
func (t *TriggerPublisher) Publish(ctx context.Context, msg RefreshMessage) (string, error) {
	m, err := TriggerMessage(msg)
	if err != nil {
		return "", err
	}

	serverID, err := t.publisher.Publish(ctx, m).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publishing %s trigger: %w", msg.JobType, err)
	}

	t.logger.Debug().
		Str("job_type", msg.JobType).
		Str("server_id", serverID).
		Str("topic", t.topic).
		Msg("trigger published")
	return serverID, nil
}

// Close flushes pending messages and closes the client.
func (t *TriggerPublisher) Close() error {
	t.publisher.Stop()
	return t.client.Close()
}

// TriggerMessage encodes msg as a Pub/Sub message.
func TriggerMessage(msg RefreshMessage) (*pubsub.Message, error) {
	switch msg.JobType {
	case JobRefresh, JobHealthCheck:
	case JobSearch:
		if msg.City == "" {
			return nil, fmt.Errorf("%s trigger needs a city", JobSearch)
		}
	default:
		return nil, fmt.Errorf("unknown job type %q", msg.JobType)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding trigger: %w", err)
	}
	return &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"job_type": msg.JobType},
	}, nil
}
