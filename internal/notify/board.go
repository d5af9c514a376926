package notify

import (
	"sync"
	"time"

	"github.com/stormwatch/stormwatch/internal/condition"
)

// Banner is the alert banner currently on screen.
type Banner struct {
	Source    string
	Condition string
	Category  condition.Category
	Icon      condition.Icon
	Message   string
	ShownAt   time.Time
}

// Board holds at most one visible banner.
type Board struct {
	mu      sync.RWMutex
	banner  *Banner
	history []Notification
	limit   int
}

// NewBoard creates an empty board remembering up to limit notifications.
func NewBoard(limit int) *Board {
	if limit <= 0 {
		limit = 20
	}
	return &Board{limit: limit}
}

// Show replaces the visible banner.
func (b *Board) Show(banner Banner) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.banner = &banner
}

// Hide removes the visible banner, if any.
func (b *Board) Hide() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.banner = nil
}

// Current returns the visible banner.
func (b *Board) Current() (Banner, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.banner == nil {
		return Banner{}, false
	}
	return *b.banner, true
}

func (b *Board) remember(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history = append(b.history, n)
	if over := len(b.history) - b.limit; over > 0 {
		b.history = append([]Notification(nil), b.history[over:]...)
	}
}

// Recent returns delivered notifications, newest last.
func (b *Board) Recent() []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Notification{}, b.history...)
}
