package worker

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Job types accepted on the refresh subscription.
const (
	JobRefresh     = "dashboard_refresh"
	JobSearch      = "dashboard_search"
	JobHealthCheck = "health_check"
)

// PubSubHandler triggers refreshes from Pub/Sub messages.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	refreshJob       *RefreshJob
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	RefreshJob       *RefreshJob
	Logger           zerolog.Logger
}

// RefreshMessage is a refresh trigger.
type RefreshMessage struct {
	JobType string `json:"job_type"`
	City    string `json:"city,omitempty"`
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 1
	subscriber.ReceiveSettings.MaxExtension = 5 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		refreshJob:       cfg.RefreshJob,
		logger:           cfg.Logger,
	}, nil
}

// Start receives messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if h.Handle(ctx, msg.ID, msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// Handle processes one message body and reports whether it should be
// acknowledged. Malformed and unknown messages are acknowledged so they are
// not redelivered.
func (h *PubSubHandler) Handle(ctx context.Context, id string, data []byte) bool {
	start := time.Now()
	logger := h.logger.With().Str("message_id", id).Logger()

	var msg RefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Error().Err(err).Msg("failed to parse message")
		return true
	}

	var err error
	switch msg.JobType {
	case JobRefresh:
		result := h.refreshJob.Run(ctx)
		if result.DashboardError != "" {
			err = fmt.Errorf("dashboard refresh: %s", result.DashboardError)
		}
	case JobSearch:
		if err := h.refreshJob.RunCity(ctx, msg.City); err != nil {
			// A bad city is not worth redelivering.
			logger.Warn().Err(err).Str("city", msg.City).Msg("search trigger failed")
			return ctx.Err() == nil
		}
	case JobHealthCheck:
		logger.Debug().Interface("metrics", h.refreshJob.MetricsSnapshot()).Msg("health check")
	default:
		logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return true
	}

	if err != nil {
		logger.Error().Err(err).Str("job_type", msg.JobType).Msg("job failed")
		return false
	}

	logger.Info().
		Str("job_type", msg.JobType).
		Dur("duration", time.Since(start)).
		Msg("job completed")
	return true
}
