package notify

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/stormwatch/stormwatch/internal/alert"
)

// Reasons a notification was not delivered.
const (
	DropPermission = "permission"
	DropDelivery   = "delivery_failed"
	DropNoChannel  = "no_channel"
)

// DropMetrics counts undelivered notifications.
type DropMetrics interface {
	RecordDropped(ctx context.Context, notifier, reason string)
}

// DispatcherConfig holds configuration for the intent dispatcher.
type DispatcherConfig struct {
	Board       *Board
	Player      Player
	Notifiers   []Notifier
	Permissions alert.PermissionGate
	Metrics     DropMetrics
	Logger      zerolog.Logger

	// NewID generates notification ids. Default: ULID
	NewID func() string
}

// Dispatcher executes alert intents. It implements alert.Sink and never
// returns an error to the evaluator: sound failures are swallowed and
// notifications are dropped unless permission is granted.
type Dispatcher struct {
	board       *Board
	player      Player
	notifiers   []Notifier
	permissions alert.PermissionGate
	metrics     DropMetrics
	logger      zerolog.Logger
	newID       func() string
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	board := cfg.Board
	if board == nil {
		board = NewBoard(0)
	}
	newID := cfg.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	return &Dispatcher{
		board:       board,
		player:      cfg.Player,
		notifiers:   cfg.Notifiers,
		permissions: cfg.Permissions,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		newID:       newID,
	}
}

// Board returns the banner board the dispatcher writes to.
func (d *Dispatcher) Board() *Board {
	return d.board
}

// Emit executes one intent.
func (d *Dispatcher) Emit(ctx context.Context, in alert.Intent) {
	switch in.Kind {
	case alert.KindShowBanner:
		d.board.Show(Banner{
			Source:    string(in.Source),
			Condition: in.Condition,
			Category:  in.Category,
			Icon:      in.Icon,
			Message:   in.Message,
			ShownAt:   in.At,
		})
	case alert.KindHideBanner:
		d.board.Hide()
	case alert.KindPlaySound:
		d.play(ctx, in)
	case alert.KindNotify:
		d.notify(ctx, in)
	default:
		d.logger.Warn().Str("kind", string(in.Kind)).Msg("ignoring unknown intent")
	}
}

func (d *Dispatcher) play(ctx context.Context, in alert.Intent) {
	if d.player == nil {
		return
	}
	if err := d.player.Play(ctx, in.Condition); err != nil {
		d.logger.Debug().Err(err).Str("condition", in.Condition).Msg("sound playback failed")
	}
}

func (d *Dispatcher) notify(ctx context.Context, in alert.Intent) {
	if d.permissions == nil || d.permissions.State() != alert.PermissionGranted {
		d.logger.Debug().Str("condition", in.Condition).Msg("notification suppressed without permission")
		d.recordDropped(ctx, "", DropPermission)
		return
	}

	n := Notification{
		ID:        d.newID(),
		Title:     in.Title,
		Message:   in.Message,
		Condition: in.Condition,
		Category:  in.Category,
		Icon:      in.Icon,
		Source:    string(in.Source),
		CreatedAt: in.At,
	}

	delivered := 0
	for _, notifier := range d.notifiers {
		if !notifier.Available() {
			continue
		}
		if err := notifier.Notify(ctx, &n); err != nil {
			d.logger.Warn().Err(err).Str("notifier", notifier.Name()).Msg("notification delivery failed")
			d.recordDropped(ctx, notifier.Name(), DropDelivery)
			continue
		}
		delivered++
	}

	if delivered == 0 {
		d.recordDropped(ctx, "", DropNoChannel)
	}
	d.logger.Debug().Str("notification_id", n.ID).Int("channels", delivered).Msg("notification dispatched")
	d.board.remember(n)
}

func (d *Dispatcher) recordDropped(ctx context.Context, notifier, reason string) {
	if d.metrics != nil {
		d.metrics.RecordDropped(ctx, notifier, reason)
	}
}

var _ alert.Sink = (*Dispatcher)(nil)
