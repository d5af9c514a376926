// Package notify turns alert intents into user-visible effects: the banner
// board, the audible cue and permission-gated system notifications.
package notify

import (
	"context"
	"time"

	"github.com/stormwatch/stormwatch/internal/condition"
)

// Notification is a system notification ready for delivery.
type Notification struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Condition string             `json:"condition"`
	Category  condition.Category `json:"category"`
	Icon      condition.Icon     `json:"icon"`
	Source    string             `json:"source"`
	CreatedAt time.Time          `json:"created_at"`
}

// Notifier delivers notifications to one channel.
type Notifier interface {
	// Notify delivers n.
	Notify(ctx context.Context, n *Notification) error

	// Name returns the channel name (e.g. "log", "pubsub").
	Name() string

	// Available reports whether the channel can be used right now.
	Available() bool
}
