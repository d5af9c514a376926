package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a notifier that logs at info level.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs n.
func (l *LogNotifier) Notify(_ context.Context, n *Notification) error {
	l.logger.Info().
		Str("notification_id", n.ID).
		Str("title", n.Title).
		Str("condition", n.Condition).
		Str("source", n.Source).
		Msg(n.Message)
	return nil
}

// Name returns "log".
func (l *LogNotifier) Name() string { return "log" }

// Available is always true.
func (l *LogNotifier) Available() bool { return true }
