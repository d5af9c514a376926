// Package alerttest provides a manual clock and a recording sink for tests
// of code built on package alert.
package alerttest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stormwatch/stormwatch/internal/alert"
)

// Clock is a manually advanced alert.Clock.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*timer
}

type timer struct {
	clock   *Clock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

// NewClock creates a clock frozen at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run when the clock is advanced past d.
func (c *Clock) AfterFunc(d time.Duration, f func()) alert.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &timer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and runs every due timer in fire-time
// order.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now

	var due []*timer
	remaining := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.stopped:
		case !t.at.After(now):
			t.fired = true
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
	}
	c.timers = remaining
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Sink records every emitted intent.
type Sink struct {
	mu      sync.Mutex
	intents []alert.Intent
}

// Emit records the intent.
func (s *Sink) Emit(_ context.Context, in alert.Intent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents = append(s.intents, in)
}

// Intents returns a copy of everything recorded.
func (s *Sink) Intents() []alert.Intent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]alert.Intent(nil), s.intents...)
}

// Kinds returns the kinds of recorded intents in order.
func (s *Sink) Kinds() []alert.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	kinds := make([]alert.Kind, 0, len(s.intents))
	for _, in := range s.intents {
		kinds = append(kinds, in.Kind)
	}
	return kinds
}

// Count returns how many intents of kind were recorded.
func (s *Sink) Count(kind alert.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, in := range s.intents {
		if in.Kind == kind {
			n++
		}
	}
	return n
}

// Reset forgets recorded intents.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents = nil
}

// Permissions is a scripted alert.PermissionGate.
type Permissions struct {
	mu       sync.Mutex
	state    alert.Permission
	answer   alert.Permission
	requests int
}

// NewPermissions starts in state and answers requests with answer.
func NewPermissions(state, answer alert.Permission) *Permissions {
	return &Permissions{state: state, answer: answer}
}

// State returns the current permission.
func (p *Permissions) State() alert.Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Request records the request and adopts the scripted answer.
func (p *Permissions) Request(context.Context) alert.Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests++
	p.state = p.answer
	return p.state
}

// Requests returns how many times Request was called.
func (p *Permissions) Requests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests
}
