package weather_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stormwatch/stormwatch/internal/weather"
)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu            sync.Mutex
	currentCalls  int
	forecastCalls int
	err           error
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) GetCurrent(_ context.Context, q weather.Query) (*weather.CurrentConditions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentCalls++

	if m.err != nil {
		return nil, m.err
	}

	return &weather.CurrentConditions{
		City:         q.City,
		CountryCode:  "GB",
		TemperatureC: 20.0,
		Conditions:   []weather.Condition{{Main: "Clear", Description: "clear sky"}},
	}, nil
}

func (m *mockProvider) GetForecast(_ context.Context, q weather.Query) (*weather.Forecast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecastCalls++

	if m.err != nil {
		return nil, m.err
	}

	return &weather.Forecast{
		City: q.City,
		Series: weather.ForecastSeries{
			{Time: time.Unix(1700000000, 0), TemperatureC: 12, Main: "Rain", Description: "light rain"},
		},
	}, nil
}

func (m *mockProvider) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentCalls, m.forecastCalls
}

func (m *mockProvider) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// fakeNow is a settable clock for cache expiry.
type fakeNow struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func TestService_GetCurrent(t *testing.T) {
	provider := &mockProvider{}
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
	})

	current, err := service.GetCurrent(context.Background(), weather.CityQuery("London"))
	require.NoError(t, err)
	require.NotNil(t, current)

	assert.Equal(t, "London", current.City)
	assert.Equal(t, "Clear", current.Main())
	assert.Equal(t, "clear sky", current.Description())
}

func TestService_CachesCaseInsensitiveCity(t *testing.T) {
	provider := &mockProvider{}
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: 5 * time.Minute,
	})

	_, err := service.GetCurrent(context.Background(), weather.CityQuery("London"))
	require.NoError(t, err)
	_, err = service.GetCurrent(context.Background(), weather.CityQuery("  london "))
	require.NoError(t, err)

	currentCalls, _ := provider.calls()
	assert.Equal(t, 1, currentCalls)
}

func TestService_CacheExpires(t *testing.T) {
	clock := &fakeNow{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	provider := &mockProvider{}
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: time.Minute,
		Now:      clock.Now,
	})

	q := weather.CoordinatesQuery(51.5, -0.12)
	_, err := service.GetForecast(context.Background(), q)
	require.NoError(t, err)

	clock.Advance(30 * time.Second)
	_, err = service.GetForecast(context.Background(), q)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = service.GetForecast(context.Background(), q)
	require.NoError(t, err)

	_, forecastCalls := provider.calls()
	assert.Equal(t, 2, forecastCalls)
}

func TestService_NegativeTTLDisablesCache(t *testing.T) {
	provider := &mockProvider{}
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: -1,
	})

	for i := 0; i < 3; i++ {
		_, err := service.GetCurrent(context.Background(), weather.CityQuery("Paris"))
		require.NoError(t, err)
	}

	currentCalls, _ := provider.calls()
	assert.Equal(t, 3, currentCalls)
	assert.Equal(t, 0, service.CacheStats().CurrentEntries)
}

func TestService_InvalidQueries(t *testing.T) {
	service := weather.NewService(weather.ServiceConfig{
		Provider: &mockProvider{},
		Logger:   zerolog.Nop(),
	})

	tests := []struct {
		name string
		q    weather.Query
		want error
	}{
		{"empty city", weather.CityQuery("   "), weather.ErrEmptyQuery},
		{"lat too high", weather.CoordinatesQuery(91, 0), weather.ErrInvalidCoordinates},
		{"lat too low", weather.CoordinatesQuery(-91, 0), weather.ErrInvalidCoordinates},
		{"lon too high", weather.CoordinatesQuery(0, 181), weather.ErrInvalidCoordinates},
		{"lon too low", weather.CoordinatesQuery(0, -181), weather.ErrInvalidCoordinates},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GetCurrent(context.Background(), tt.q)
			assert.ErrorIs(t, err, tt.want)
			_, err = service.GetForecast(context.Background(), tt.q)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_ProviderErrors(t *testing.T) {
	t.Run("not found passes through", func(t *testing.T) {
		provider := &mockProvider{}
		provider.setError(fmt.Errorf("status 404: %w", weather.ErrNotFound))
		service := weather.NewService(weather.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

		_, err := service.GetCurrent(context.Background(), weather.CityQuery("Atlantis"))
		assert.ErrorIs(t, err, weather.ErrNotFound)
		assert.NotErrorIs(t, err, weather.ErrProviderUnavailable)
	})

	t.Run("network error is unavailable", func(t *testing.T) {
		provider := &mockProvider{}
		provider.setError(errors.New("connection refused"))
		service := weather.NewService(weather.ServiceConfig{Provider: provider, Logger: zerolog.Nop()})

		_, err := service.GetForecast(context.Background(), weather.CityQuery("London"))
		assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
	})
}

func TestService_DoesNotServeStaleOnError(t *testing.T) {
	clock := &fakeNow{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	provider := &mockProvider{}
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		CacheTTL: time.Minute,
		Now:      clock.Now,
	})

	_, err := service.GetCurrent(context.Background(), weather.CityQuery("London"))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	provider.setError(errors.New("timeout"))

	_, err = service.GetCurrent(context.Background(), weather.CityQuery("London"))
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

type countingMetrics struct {
	mu       sync.Mutex
	hits     int
	misses   int
	requests int
	failures int
}

func (c *countingMetrics) RecordRequest(_, _ string, _ time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	if err != nil {
		c.failures++
	}
}

func (c *countingMetrics) RecordCacheHit(_, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits++
}

func (c *countingMetrics) RecordCacheMiss(_, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.misses++
}

func TestService_RecordsMetrics(t *testing.T) {
	metrics := &countingMetrics{}
	service := weather.NewService(weather.ServiceConfig{
		Provider: &mockProvider{},
		Logger:   zerolog.Nop(),
		Metrics:  metrics,
	})

	for i := 0; i < 2; i++ {
		_, err := service.GetCurrent(context.Background(), weather.CityQuery("Oslo"))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, metrics.requests)
	assert.Equal(t, 0, metrics.failures)
}
