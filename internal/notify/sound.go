package notify

import (
	"context"
	"io"
	"sync"
)

// Player plays the audible cue for a condition.
type Player interface {
	Play(ctx context.Context, condition string) error
}

// Chime rings the terminal bell on the configured writer.
type Chime struct {
	mu sync.Mutex
	w  io.Writer
}

// NewChime creates a chime writing to w. A nil writer makes Play a no-op.
func NewChime(w io.Writer) *Chime {
	return &Chime{w: w}
}

// Play writes a BEL character.
func (c *Chime) Play(_ context.Context, _ string) error {
	if c.w == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.w.Write([]byte{'\a'})
	return err
}
