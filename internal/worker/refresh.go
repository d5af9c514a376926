package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stormwatch/stormwatch/internal/dashboard"
	"github.com/stormwatch/stormwatch/internal/weather"
)

// Dashboard is the part of dashboard.Session the job drives.
type Dashboard interface {
	Refresh(ctx context.Context) (*dashboard.View, error)
	SearchCity(ctx context.Context, city string) (*dashboard.View, error)
	Favorites() []string
}

// RefreshJob re-runs the dashboard's last search and warms favorites.
type RefreshJob struct {
	config    RefreshConfig
	dashboard Dashboard
	weather   dashboard.WeatherSource
	logger    zerolog.Logger
	now       func() time.Time

	// serializes Run
	runMu sync.Mutex

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns          int64
	DashboardRefreshes int64
	DashboardFailures  int64
	FavoritesWarmed    int64
	FavoritesFailed    int64

	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config    RefreshConfig
	Dashboard Dashboard

	// Weather warms favorites. Nil disables warming.
	Weather dashboard.WeatherSource

	Logger zerolog.Logger
	Now    func() time.Time
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &RefreshJob{
		config:    cfg.Config.withDefaults(),
		dashboard: cfg.Dashboard,
		weather:   cfg.Weather,
		logger:    cfg.Logger,
		now:       now,
		metrics:   &RefreshMetrics{},
	}
}

// RefreshResult contains the result of one run.
type RefreshResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Location of the refreshed dashboard view, empty on failure.
	Location       string
	DashboardError string

	Warmed int
	Failed int
	Errors []RefreshError
}

// RefreshError is a failed favorite lookup.
type RefreshError struct {
	City  string
	Error string
}

// Run refreshes the dashboard, which re-evaluates alerts, then warms the
// weather cache for every favorite.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	start := j.now()
	result := &RefreshResult{StartTime: start}

	if j.dashboard != nil {
		dctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
		view, err := j.dashboard.Refresh(dctx)
		cancel()
		if err != nil {
			result.DashboardError = err.Error()
			j.logger.Warn().Err(err).Msg("dashboard refresh failed")
		} else {
			result.Location = view.Location
		}
	}

	if j.config.WarmFavorites && j.weather != nil && j.dashboard != nil {
		j.warm(ctx, j.dashboard.Favorites(), result)
	}

	result.EndTime = j.now()
	result.Duration = result.EndTime.Sub(start)
	j.updateMetrics(result)

	j.logger.Info().
		Str("location", result.Location).
		Dur("duration", result.Duration).
		Int("warmed", result.Warmed).
		Int("failed", result.Failed).
		Msg("refresh completed")

	return result
}

// RunCity switches the dashboard to city, as a remote trigger would.
func (j *RefreshJob) RunCity(ctx context.Context, city string) error {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	_, err := j.dashboard.SearchCity(ctx, city)
	return err
}

type warmResult struct {
	city string
	err  error
}

func (j *RefreshJob) warm(ctx context.Context, cities []string, result *RefreshResult) {
	if len(cities) == 0 {
		return
	}

	work := make(chan string, len(cities))
	results := make(chan warmResult, len(cities))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for city := range work {
				select {
				case <-ctx.Done():
					results <- warmResult{city: city, err: ctx.Err()}
				default:
					results <- warmResult{city: city, err: j.warmCity(ctx, city)}
				}
			}
		}()
	}

	for _, c := range cities {
		work <- c
	}
	close(work)

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		if r.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{City: r.city, Error: r.err.Error()})
			continue
		}
		result.Warmed++
	}
}

func (j *RefreshJob) warmCity(ctx context.Context, city string) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	q := weather.CityQuery(city)
	if _, err := j.weather.GetCurrent(ctx, q); err != nil {
		return err
	}
	_, err := j.weather.GetForecast(ctx, q)
	return err
}

// Loop runs the job every Interval until ctx is done.
func (j *RefreshJob) Loop(ctx context.Context) {
	if j.config.Interval <= 0 {
		j.logger.Info().Msg("scheduled refresh disabled")
		return
	}

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	j.logger.Info().Dur("interval", j.config.Interval).Msg("scheduled refresh started")
	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("scheduled refresh stopped")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	if j.dashboard != nil {
		if result.DashboardError == "" {
			j.metrics.DashboardRefreshes++
		} else {
			j.metrics.DashboardFailures++
		}
	}
	j.metrics.FavoritesWarmed += int64(result.Warmed)
	j.metrics.FavoritesFailed += int64(result.Failed)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		DashboardRefreshes:  j.metrics.DashboardRefreshes,
		DashboardFailures:   j.metrics.DashboardFailures,
		FavoritesWarmed:     j.metrics.FavoritesWarmed,
		FavoritesFailed:     j.metrics.FavoritesFailed,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":            m.TotalRuns,
		"dashboard_refreshes":   m.DashboardRefreshes,
		"dashboard_failures":    m.DashboardFailures,
		"favorites_warmed":      m.FavoritesWarmed,
		"favorites_failed":      m.FavoritesFailed,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
