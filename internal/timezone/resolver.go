// Package timezone resolves the local time zone of a coordinate so dates can
// be shown as the location sees them.
package timezone

import (
	"fmt"
	"sync"
	"time"

	"github.com/ringsaturn/tzf"
	"github.com/rs/zerolog"
)

// Finder maps a coordinate to an IANA zone name. tzf.F satisfies it.
type Finder interface {
	GetTimezoneName(lng float64, lat float64) string
}

// Resolver turns coordinates into a *time.Location.
type Resolver struct {
	finder Finder
	logger zerolog.Logger

	mu        sync.RWMutex
	locations map[string]*time.Location
}

var (
	defaultFinder    tzf.F
	defaultFinderErr error
	defaultOnce      sync.Once
)

// NewDefaultResolver builds a resolver on the embedded tzf dataset. The
// dataset is loaded once per process.
func NewDefaultResolver(logger zerolog.Logger) (*Resolver, error) {
	defaultOnce.Do(func() {
		defaultFinder, defaultFinderErr = tzf.NewDefaultFinder()
	})
	if defaultFinderErr != nil {
		return nil, fmt.Errorf("initializing timezone finder: %w", defaultFinderErr)
	}
	return NewResolver(defaultFinder, logger), nil
}

// NewResolver creates a resolver over finder. A nil finder always falls back
// to the fixed offset.
func NewResolver(finder Finder, logger zerolog.Logger) *Resolver {
	return &Resolver{
		finder:    finder,
		logger:    logger,
		locations: make(map[string]*time.Location),
	}
}

// Location returns the IANA zone at lat/lon, or a fixed zone with the
// provider-reported offset when the coordinate has no zone (open sea) or the
// zone database lacks it.
func (r *Resolver) Location(lat, lon float64, offset time.Duration) *time.Location {
	if r != nil && r.finder != nil {
		if name := r.finder.GetTimezoneName(lon, lat); name != "" {
			if loc, ok := r.load(name); ok {
				return loc
			}
		}
	}
	return FixedZone(offset)
}

func (r *Resolver) load(name string) (*time.Location, bool) {
	r.mu.RLock()
	loc, ok := r.locations[name]
	r.mu.RUnlock()
	if ok {
		return loc, true
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		r.logger.Warn().Err(err).Str("zone", name).Msg("unknown time zone, using offset")
		return nil, false
	}

	r.mu.Lock()
	r.locations[name] = loc
	r.mu.Unlock()
	return loc, true
}

// FixedZone names an offset like "UTC+05:30".
func FixedZone(offset time.Duration) *time.Location {
	secs := int(offset / time.Second)
	sign := '+'
	abs := secs
	if secs < 0 {
		sign = '-'
		abs = -secs
	}
	name := fmt.Sprintf("UTC%c%02d:%02d", sign, abs/3600, (abs%3600)/60)
	return time.FixedZone(name, secs)
}
