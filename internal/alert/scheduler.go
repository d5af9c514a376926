package alert

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stormwatch/stormwatch/internal/condition"
	"github.com/stormwatch/stormwatch/internal/weather"
)

// Scheduler defaults.
const (
	DefaultLeadTime   = time.Hour
	DefaultHorizon    = 6 * time.Hour
	DefaultScanWindow = 2
)

// State is the scheduler's state.
type State string

// Scheduler states.
const (
	StateIdle  State = "idle"
	StateArmed State = "armed"
)

// Alarm events reported to Metrics.
const (
	AlarmArmed     = "armed"
	AlarmCancelled = "cancelled"
	AlarmFired     = "fired"
)

// PendingAlarm is the single delayed alert a Scheduler may hold.
type PendingAlarm struct {
	FireAt time.Time
	Point  weather.ForecastPoint
}

// SchedulerConfig holds configuration for the alert scheduler.
type SchedulerConfig struct {
	Sink        Sink
	Clock       Clock
	Permissions PermissionGate
	Metrics     Metrics
	Logger      zerolog.Logger

	// LeadTime is how long before a severe interval the alarm fires.
	// Default: 1 hour
	LeadTime time.Duration

	// Horizon bounds how far ahead an alarm may be armed. Default: 6 hours
	Horizon time.Duration

	// ScanWindow is how many leading forecast points are inspected.
	// Default: 2
	ScanWindow int
}

// Scheduler arms at most one delayed "upcoming severe weather" alarm from a
// forecast series. Every evaluation supersedes the previous one.
type Scheduler struct {
	sink        Sink
	clock       Clock
	permissions PermissionGate
	metrics     Metrics
	logger      zerolog.Logger
	leadTime    time.Duration
	horizon     time.Duration
	scanWindow  int

	mu      sync.Mutex
	pending *PendingAlarm
	timer   Timer
	gen     uint64
}

// NewScheduler creates an idle scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock()
	}
	leadTime := cfg.LeadTime
	if leadTime == 0 {
		leadTime = DefaultLeadTime
	}
	horizon := cfg.Horizon
	if horizon == 0 {
		horizon = DefaultHorizon
	}
	scanWindow := cfg.ScanWindow
	if scanWindow == 0 {
		scanWindow = DefaultScanWindow
	}

	return &Scheduler{
		sink:        cfg.Sink,
		clock:       clock,
		permissions: cfg.Permissions,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		leadTime:    leadTime,
		horizon:     horizon,
		scanWindow:  scanWindow,
	}
}

// Evaluate cancels any pending alarm, then arms a new one if one of the
// leading forecast points is severe and its alarm time falls strictly in
// the future and within the horizon. It returns the armed alarm, or nil
// when the scheduler is left idle.
func (s *Scheduler) Evaluate(ctx context.Context, series weather.ForecastSeries, now time.Time) *PendingAlarm {
	EnsureRequested(ctx, s.permissions)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(ctx)

	point, ok := firstSevere(series.Head(s.scanWindow))
	if !ok {
		return nil
	}

	fireAt := point.Time.Add(-s.leadTime)
	delay := fireAt.Sub(now)
	if delay <= 0 || delay >= s.horizon {
		s.logger.Debug().
			Str("condition", point.Main).
			Time("fire_at", fireAt).
			Msg("severe interval outside alarm window")
		return nil
	}

	gen := s.gen
	alarm := &PendingAlarm{FireAt: fireAt, Point: point}
	s.pending = alarm
	emitCtx := context.WithoutCancel(ctx)
	s.timer = s.clock.AfterFunc(delay, func() { s.fire(emitCtx, gen) })

	s.recordAlarm(ctx, AlarmArmed)
	s.logger.Info().
		Str("condition", point.Main).
		Time("fire_at", fireAt).
		Dur("delay", delay).
		Msg("alarm armed")

	copied := *alarm
	return &copied
}

// Cancel discards any pending alarm. After Cancel returns, a callback that
// was already due does nothing.
func (s *Scheduler) Cancel(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(ctx)
}

func (s *Scheduler) cancelLocked(ctx context.Context) {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.pending != nil {
		s.pending = nil
		s.recordAlarm(ctx, AlarmCancelled)
	}
}

// State reports whether an alarm is pending.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return StateArmed
	}
	return StateIdle
}

// Pending returns a copy of the pending alarm, or nil.
func (s *Scheduler) Pending() *PendingAlarm {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	copied := *s.pending
	return &copied
}

func (s *Scheduler) fire(ctx context.Context, gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.pending == nil {
		s.mu.Unlock()
		return
	}
	alarm := *s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	s.recordAlarm(ctx, AlarmFired)

	point := alarm.Point
	msg := upcomingMessage(point.Main)
	at := s.clock.Now()

	s.emit(ctx, newIntent(KindShowBanner, SourceUpcoming, point.Main, point.Description, msg, at))
	if condition.WantsSound(point.Main) {
		s.emit(ctx, newIntent(KindPlaySound, SourceUpcoming, point.Main, point.Description, msg, at))
	}
	s.emit(ctx, newIntent(KindNotify, SourceUpcoming, point.Main, point.Description, msg, at))
}

func (s *Scheduler) emit(ctx context.Context, in Intent) {
	if s.metrics != nil {
		s.metrics.RecordIntent(ctx, string(in.Kind), string(in.Source))
	}
	if s.sink != nil {
		s.sink.Emit(ctx, in)
	}
}

func (s *Scheduler) recordAlarm(ctx context.Context, event string) {
	if s.metrics != nil {
		s.metrics.RecordAlarm(ctx, event)
	}
}

func firstSevere(points weather.ForecastSeries) (weather.ForecastPoint, bool) {
	for _, p := range points {
		if condition.IsSevere(p.Main) {
			return p, true
		}
	}
	return weather.ForecastPoint{}, false
}
