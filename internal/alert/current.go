package alert

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stormwatch/stormwatch/internal/condition"
	"github.com/stormwatch/stormwatch/internal/weather"
)

// CurrentMonitorConfig holds configuration for the current-conditions monitor.
type CurrentMonitorConfig struct {
	Sink    Sink
	Clock   Clock
	Metrics Metrics
	Logger  zerolog.Logger
}

// CurrentMonitor shows or hides the banner for current conditions and
// notifies at most once per distinct severe condition per session.
type CurrentMonitor struct {
	sink    Sink
	clock   Clock
	metrics Metrics
	logger  zerolog.Logger

	mu           sync.Mutex
	lastNotified string
}

// NewCurrentMonitor creates a monitor with no notification history.
func NewCurrentMonitor(cfg CurrentMonitorConfig) *CurrentMonitor {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	return &CurrentMonitor{
		sink:    cfg.Sink,
		clock:   clock,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}
}

// Evaluate inspects current conditions. The first severe entry shows the
// banner and, if it differs from the last notified condition, notifies.
// Without a severe entry the banner is hidden; the notification history is
// kept, so a condition that returns after a calm spell is not re-notified.
func (m *CurrentMonitor) Evaluate(ctx context.Context, current *weather.CurrentConditions) {
	if current == nil {
		return
	}

	at := m.clock.Now()

	severe, ok := firstSevereCondition(current.Conditions)
	if !ok {
		m.emit(ctx, Intent{Kind: KindHideBanner, Source: SourceCurrent, At: at})
		return
	}

	msg := currentMessage(severe.Main)
	m.emit(ctx, newIntent(KindShowBanner, SourceCurrent, severe.Main, severe.Description, msg, at))

	m.mu.Lock()
	notify := severe.Main != m.lastNotified
	if notify {
		m.lastNotified = severe.Main
	}
	m.mu.Unlock()

	if !notify {
		m.logger.Debug().Str("condition", severe.Main).Msg("notification already sent for condition")
		return
	}
	m.emit(ctx, newIntent(KindNotify, SourceCurrent, severe.Main, severe.Description, msg, at))
}

// LastNotified returns the condition of the most recent notification.
func (m *CurrentMonitor) LastNotified() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastNotified
}

func (m *CurrentMonitor) emit(ctx context.Context, in Intent) {
	if m.metrics != nil {
		m.metrics.RecordIntent(ctx, string(in.Kind), string(in.Source))
	}
	if m.sink != nil {
		m.sink.Emit(ctx, in)
	}
}

func firstSevereCondition(conds []weather.Condition) (weather.Condition, bool) {
	for _, c := range conds {
		if condition.IsSevere(c.Main) {
			return c, true
		}
	}
	return weather.Condition{}, false
}
