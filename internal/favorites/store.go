// Package favorites keeps the user's ordered list of favorite cities and
// persists it as a JSON array under a single key.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// DefaultKey is the store key holding the serialized list.
const DefaultKey = "weather-favorites"

// ErrEmptyCity is returned when toggling a blank city name.
var ErrEmptyCity = errors.New("city name is empty")

// StoreConfig holds configuration for the favorites store.
type StoreConfig struct {
	KV     KV
	Key    string
	Logger zerolog.Logger
}

// Store is the in-memory favorites list mirrored to a KV.
type Store struct {
	kv     KV
	key    string
	logger zerolog.Logger

	mu     sync.RWMutex
	cities []string
}

// NewStore creates a store. Call Load before use to pick up persisted state.
func NewStore(cfg StoreConfig) *Store {
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		kv:     cfg.KV,
		key:    key,
		logger: cfg.Logger,
	}
}

// Load reads the persisted list. A missing, unreadable or corrupt value
// yields an empty list; Load never fails.
func (s *Store) Load(ctx context.Context) []string {
	cities := s.read(ctx)

	s.mu.Lock()
	s.cities = cities
	s.mu.Unlock()

	return slices.Clone(cities)
}

func (s *Store) read(ctx context.Context) []string {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			s.logger.Warn().Err(err).Str("key", s.key).Msg("failed to read favorites")
		}
		return nil
	}

	var decoded []string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		s.logger.Warn().Err(err).Str("key", s.key).Msg("discarding unparseable favorites")
		return nil
	}

	// Collapse duplicates, keeping first occurrences in order.
	out := make([]string, 0, len(decoded))
	for _, city := range decoded {
		if !slices.Contains(out, city) {
			out = append(out, city)
		}
	}
	return out
}

// Toggle removes city if present, otherwise appends it, then persists the
// whole list. Membership is exact and case-sensitive. If persisting fails
// the list is left as it was and the error is returned.
func (s *Store) Toggle(ctx context.Context, city string) ([]string, error) {
	if strings.TrimSpace(city) == "" {
		return nil, ErrEmptyCity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := slices.Clone(s.cities)
	if i := slices.Index(next, city); i >= 0 {
		next = slices.Delete(next, i, i+1)
	} else {
		next = append(next, city)
	}

	if err := s.write(ctx, next); err != nil {
		return slices.Clone(s.cities), err
	}

	s.cities = next
	return slices.Clone(next), nil
}

func (s *Store) write(ctx context.Context, cities []string) error {
	if cities == nil {
		cities = []string{}
	}
	encoded, err := json.Marshal(cities)
	if err != nil {
		return fmt.Errorf("encoding favorites: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(encoded)); err != nil {
		return fmt.Errorf("persisting favorites: %w", err)
	}
	return nil
}

// IsFavorite reports exact membership.
func (s *Store) IsFavorite(city string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.cities, city)
}

// List returns a copy of the current list in insertion order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.cities)
	if out == nil {
		out = []string{}
	}
	return out
}
