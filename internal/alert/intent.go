// Package alert decides when severe weather warrants a banner, a sound or a
// system notification. It never performs IO itself: decisions are emitted as
// Intents to a Sink.
package alert

import (
	"context"
	"time"

	"github.com/stormwatch/stormwatch/internal/condition"
)

// Kind is the type of side effect an Intent asks for.
type Kind string

// Intent kinds.
const (
	KindShowBanner Kind = "show_banner"
	KindHideBanner Kind = "hide_banner"
	KindPlaySound  Kind = "play_sound"
	KindNotify     Kind = "notify"
)

// Source says which evaluator produced an Intent.
type Source string

// Intent sources.
const (
	SourceUpcoming Source = "upcoming"
	SourceCurrent  Source = "current"
)

// NotificationTitle is the title of every system notification.
const NotificationTitle = "Weather Alert"

// Intent is a declarative request for a user-facing side effect.
type Intent struct {
	Kind      Kind
	Source    Source
	Condition string
	Category  condition.Category
	Icon      condition.Icon
	Title     string
	Message   string
	At        time.Time
}

// Sink consumes intents. Implementations must not block for long and must
// not fail the caller.
type Sink interface {
	Emit(ctx context.Context, intent Intent)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, intent Intent)

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, intent Intent) {
	f(ctx, intent)
}

// Metrics records alert activity. All methods are optional no-ops when nil
// is configured.
type Metrics interface {
	RecordAlarm(ctx context.Context, event string)
	RecordIntent(ctx context.Context, kind string, source string)
}

func upcomingMessage(main string) string {
	return main + " expected in about an hour. Stay prepared!"
}

func currentMessage(main string) string {
	return "Current weather: " + main + ". Stay prepared!"
}

func newIntent(kind Kind, source Source, main, description, message string, at time.Time) Intent {
	c := condition.Classify(main, description)
	in := Intent{
		Kind:      kind,
		Source:    source,
		Condition: main,
		Category:  c.Category,
		Icon:      c.Icon,
		Message:   message,
		At:        at,
	}
	if kind == KindNotify {
		in.Title = NotificationTitle
	}
	return in
}
