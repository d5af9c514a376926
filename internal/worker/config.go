// Package worker runs background dashboard refreshes: a periodic loop and an
// optional Pub/Sub trigger.
package worker

import (
	"time"
)

// RefreshConfig holds configuration for the dashboard refresh job.
type RefreshConfig struct {
	// Interval between scheduled refreshes. Zero disables the loop; Run
	// can still be triggered.
	// Default: 15 minutes
	Interval time.Duration

	// Concurrency is the number of favorites warmed in parallel.
	// Default: 3
	Concurrency int

	// Timeout bounds each lookup.
	// Default: 30 seconds
	Timeout time.Duration

	// WarmFavorites pre-fetches every favorite city into the weather cache
	// so switching to one is served without a provider round trip.
	// Default: true
	WarmFavorites bool
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Interval:      15 * time.Minute,
		Concurrency:   3,
		Timeout:       30 * time.Second,
		WarmFavorites: true,
	}
}

func (c RefreshConfig) withDefaults() RefreshConfig {
	d := DefaultRefreshConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}
