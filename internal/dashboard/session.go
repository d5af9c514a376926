// Package dashboard is the application state of one weather dashboard: the
// last search, its rendered view, favorites and the alert evaluators fed by
// every successful fetch.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stormwatch/stormwatch/internal/alert"
	"github.com/stormwatch/stormwatch/internal/favorites"
	"github.com/stormwatch/stormwatch/internal/timezone"
	"github.com/stormwatch/stormwatch/internal/weather"
)

// Dashboard errors.
var (
	ErrEmptyCity    = errors.New("empty city name")
	ErrCityNotFound = errors.New("city not found")
)

// User-facing messages.
const (
	MessageEmptyCity = "Please enter a city name"
	MessageNotFound  = "City not found. Please try again."
)

// UserMessage returns the message shown for a Search error.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyCity):
		return MessageEmptyCity
	default:
		return MessageNotFound
	}
}

// WeatherSource fetches current conditions and forecasts.
type WeatherSource interface {
	GetCurrent(ctx context.Context, q weather.Query) (*weather.CurrentConditions, error)
	GetForecast(ctx context.Context, q weather.Query) (*weather.Forecast, error)
}

// Config holds the session's collaborators.
type Config struct {
	Weather   WeatherSource
	Favorites *favorites.Store
	Scheduler *alert.Scheduler
	Monitor   *alert.CurrentMonitor
	Timezones *timezone.Resolver
	Clock     alert.Clock
	Logger    zerolog.Logger

	// DefaultCity is searched by Start. Default: London
	DefaultCity string
}

// Session is the single dashboard of this process. Searches are
// serialized; the last successful one is kept for refreshes.
type Session struct {
	weather     WeatherSource
	favorites   *favorites.Store
	scheduler   *alert.Scheduler
	monitor     *alert.CurrentMonitor
	timezones   *timezone.Resolver
	clock       alert.Clock
	logger      zerolog.Logger
	defaultCity string

	mu        sync.Mutex
	lastQuery *weather.Query
	view      *View
}

// NewSession creates a session. Call Start to load favorites and show the
// default city.
func NewSession(cfg Config) *Session {
	clock := cfg.Clock
	if clock == nil {
		clock = alert.SystemClock()
	}
	defaultCity := cfg.DefaultCity
	if defaultCity == "" {
		defaultCity = "London"
	}
	return &Session{
		weather:     cfg.Weather,
		favorites:   cfg.Favorites,
		scheduler:   cfg.Scheduler,
		monitor:     cfg.Monitor,
		timezones:   cfg.Timezones,
		clock:       clock,
		logger:      cfg.Logger,
		defaultCity: defaultCity,
	}
}

// Start loads favorites and searches the default city.
func (s *Session) Start(ctx context.Context) (*View, error) {
	if s.favorites != nil {
		loaded := s.favorites.Load(ctx)
		s.logger.Info().Int("favorites", len(loaded)).Msg("favorites loaded")
	}
	return s.SearchCity(ctx, s.defaultCity)
}

// SearchCity searches by name. Surrounding whitespace is ignored.
func (s *Session) SearchCity(ctx context.Context, city string) (*View, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrEmptyCity
	}
	return s.Search(ctx, weather.CityQuery(city))
}

// SearchCoordinates searches by position, as a geolocation result would.
func (s *Session) SearchCoordinates(ctx context.Context, lat, lon float64) (*View, error) {
	return s.Search(ctx, weather.CoordinatesQuery(lat, lon))
}

// Search fetches current conditions and the forecast, renders the view and
// runs both alert evaluators. On any fetch failure the previous view stays
// in place, no alert is evaluated and ErrCityNotFound is returned.
func (s *Session) Search(ctx context.Context, q weather.Query) (*View, error) {
	if q.Coordinates == nil && strings.TrimSpace(q.City) == "" {
		return nil, ErrEmptyCity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.weather.GetCurrent(ctx, q)
	if err != nil {
		s.logger.Info().Err(err).Str("query", q.String()).Msg("weather lookup failed")
		return nil, fmt.Errorf("%w: %w", ErrCityNotFound, err)
	}
	fc, err := s.weather.GetForecast(ctx, q)
	if err != nil {
		s.logger.Info().Err(err).Str("query", q.String()).Msg("forecast lookup failed")
		return nil, fmt.Errorf("%w: %w", ErrCityNotFound, err)
	}

	now := s.clock.Now()
	view := buildView(q, cur, fc, s.location(cur), now)
	if s.favorites != nil {
		view.IsFavorite = s.favorites.IsFavorite(view.City)
	}

	if s.scheduler != nil {
		s.scheduler.Evaluate(ctx, fc.Series, now)
	}
	if s.monitor != nil {
		s.monitor.Evaluate(ctx, cur)
	}

	s.lastQuery = &q
	s.view = view

	s.logger.Debug().
		Str("query", q.String()).
		Str("location", view.Location).
		Str("condition", view.Condition).
		Msg("dashboard updated")

	return copyView(view), nil
}

// Refresh repeats the last successful search, or the default city if there
// was none.
func (s *Session) Refresh(ctx context.Context) (*View, error) {
	s.mu.Lock()
	last := s.lastQuery
	s.mu.Unlock()

	if last == nil {
		return s.SearchCity(ctx, s.defaultCity)
	}
	return s.Search(ctx, *last)
}

// Current returns the last rendered view, or nil before the first success.
func (s *Session) Current() *View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return nil
	}
	v := copyView(s.view)
	if s.favorites != nil {
		v.IsFavorite = s.favorites.IsFavorite(v.City)
	}
	return v
}

// ToggleFavorite adds or removes city from favorites.
func (s *Session) ToggleFavorite(ctx context.Context, city string) ([]string, error) {
	if s.favorites == nil {
		return nil, errors.New("favorites are not configured")
	}
	return s.favorites.Toggle(ctx, city)
}

// Favorites returns the favorites in insertion order.
func (s *Session) Favorites() []string {
	if s.favorites == nil {
		return []string{}
	}
	return s.favorites.List()
}

// IsFavorite reports whether city is a favorite.
func (s *Session) IsFavorite(city string) bool {
	return s.favorites != nil && s.favorites.IsFavorite(city)
}

func (s *Session) location(cur *weather.CurrentConditions) *time.Location {
	if s.timezones == nil {
		return timezone.FixedZone(cur.TimezoneOffset)
	}
	return s.timezones.Location(cur.Coordinates.Lat, cur.Coordinates.Lon, cur.TimezoneOffset)
}

func copyView(v *View) *View {
	c := *v
	c.Daily = append([]Day{}, v.Daily...)
	return &c
}
