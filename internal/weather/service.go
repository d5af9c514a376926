package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// GetCurrent fetches current conditions for a location.
	GetCurrent(ctx context.Context, q Query) (*CurrentConditions, error)

	// GetForecast fetches the 3-hourly forecast for a location.
	GetForecast(ctx context.Context, q Query) (*Forecast, error)

	// Name returns the provider name for logging.
	Name() string
}

// Metrics records provider call and cache statistics.
type Metrics interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics is optional.
	Metrics Metrics

	// CacheTTL is how long a response is reused for the same query
	// (default: 10 minutes). Zero-value config uses the default; a negative
	// value disables caching.
	CacheTTL time.Duration

	// CacheGridSize is the size of coordinate cache cells in degrees
	// (default: 0.01).
	CacheGridSize float64

	// Now is the clock used for cache expiry (default: time.Now).
	Now func() time.Time
}

// Service provides weather data with short-lived request coalescing.
// Entries are never served past their TTL, even when the provider fails.
type Service struct {
	provider      Provider
	logger        zerolog.Logger
	metrics       Metrics
	cacheTTL      time.Duration
	cacheGridSize float64
	now           func() time.Time

	mu            sync.RWMutex
	currentCache  map[string]*cachedCurrent
	forecastCache map[string]*cachedForecast
}

type cachedCurrent struct {
	current   *CurrentConditions
	expiresAt time.Time
}

type cachedForecast struct {
	forecast  *Forecast
	expiresAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	gridSize := cfg.CacheGridSize
	if gridSize == 0 {
		gridSize = 0.01
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		provider:      cfg.Provider,
		logger:        cfg.Logger,
		metrics:       cfg.Metrics,
		cacheTTL:      cacheTTL,
		cacheGridSize: gridSize,
		now:           now,
		currentCache:  make(map[string]*cachedCurrent),
		forecastCache: make(map[string]*cachedForecast),
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// GetCurrent returns current conditions for a location.
func (s *Service) GetCurrent(ctx context.Context, q Query) (*CurrentConditions, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	key := s.cacheKey(q)
	if s.cacheTTL > 0 {
		s.mu.RLock()
		cached, ok := s.currentCache[key]
		s.mu.RUnlock()
		if ok && s.now().Before(cached.expiresAt) {
			s.recordCache(true, "current")
			return cached.current, nil
		}
		s.recordCache(false, "current")
	}

	s.logger.Debug().
		Str("query", q.String()).
		Str("provider", s.provider.Name()).
		Msg("fetching current weather from provider")

	start := s.now()
	current, err := s.provider.GetCurrent(ctx, q)
	s.recordRequest("current", start, err)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", q.String()).Msg("failed to fetch current weather")
		return nil, classify(err)
	}

	if s.cacheTTL > 0 {
		s.mu.Lock()
		s.currentCache[key] = &cachedCurrent{current: current, expiresAt: s.now().Add(s.cacheTTL)}
		s.cleanupLocked()
		s.mu.Unlock()
	}

	return current, nil
}

// GetForecast returns the forecast for a location.
func (s *Service) GetForecast(ctx context.Context, q Query) (*Forecast, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	key := s.cacheKey(q)
	if s.cacheTTL > 0 {
		s.mu.RLock()
		cached, ok := s.forecastCache[key]
		s.mu.RUnlock()
		if ok && s.now().Before(cached.expiresAt) {
			s.recordCache(true, "forecast")
			return cached.forecast, nil
		}
		s.recordCache(false, "forecast")
	}

	s.logger.Debug().
		Str("query", q.String()).
		Str("provider", s.provider.Name()).
		Msg("fetching forecast from provider")

	start := s.now()
	forecast, err := s.provider.GetForecast(ctx, q)
	s.recordRequest("forecast", start, err)
	if err != nil {
		s.logger.Warn().Err(err).Str("query", q.String()).Msg("failed to fetch forecast")
		return nil, classify(err)
	}

	if s.cacheTTL > 0 {
		s.mu.Lock()
		s.forecastCache[key] = &cachedForecast{forecast: forecast, expiresAt: s.now().Add(s.cacheTTL)}
		s.cleanupLocked()
		s.mu.Unlock()
	}

	return forecast, nil
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentCache = make(map[string]*cachedCurrent)
	s.forecastCache = make(map[string]*cachedForecast)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CacheStats{
		CurrentEntries:  len(s.currentCache),
		ForecastEntries: len(s.forecastCache),
		Provider:        s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	CurrentEntries  int
	ForecastEntries int
	Provider        string
}

// cacheKey groups coordinate queries into grid cells; city names are
// case-folded.
func (s *Service) cacheKey(q Query) string {
	if q.Coordinates != nil {
		gridLat := math.Floor(q.Coordinates.Lat/s.cacheGridSize) * s.cacheGridSize
		gridLon := math.Floor(q.Coordinates.Lon/s.cacheGridSize) * s.cacheGridSize
		return fmt.Sprintf("geo:%.3f:%.3f", gridLat, gridLon)
	}
	return "city:" + strings.ToLower(strings.TrimSpace(q.City))
}

// cleanupLocked drops expired entries. Callers hold s.mu.
func (s *Service) cleanupLocked() {
	now := s.now()
	for k, c := range s.currentCache {
		if !now.Before(c.expiresAt) {
			delete(s.currentCache, k)
		}
	}
	for k, c := range s.forecastCache {
		if !now.Before(c.expiresAt) {
			delete(s.forecastCache, k)
		}
	}
}

func (s *Service) recordCache(hit bool, op string) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit(s.provider.Name(), op)
		return
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), op)
}

func (s *Service) recordRequest(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordRequest(s.provider.Name(), op, s.now().Sub(start), err)
}

// classify maps provider errors onto the package's two failure kinds.
func classify(err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}
