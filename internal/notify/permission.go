package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/stormwatch/stormwatch/internal/alert"
)

// Permissions holds the session's notification permission. Requests made
// while undecided are answered with the configured default.
type Permissions struct {
	mu     sync.RWMutex
	state  alert.Permission
	answer alert.Permission
}

// NewPermissions creates a permission holder starting in state. Request
// resolves an undecided state to answer.
func NewPermissions(state, answer alert.Permission) *Permissions {
	if state == "" {
		state = alert.PermissionDefault
	}
	if !answer.Decided() {
		answer = alert.PermissionDenied
	}
	return &Permissions{state: state, answer: answer}
}

// ParsePermission parses "granted", "denied" or "default".
func ParsePermission(s string) (alert.Permission, error) {
	switch p := alert.Permission(s); p {
	case alert.PermissionGranted, alert.PermissionDenied, alert.PermissionDefault:
		return p, nil
	case "prompt", "":
		return alert.PermissionDefault, nil
	default:
		return "", fmt.Errorf("unknown notification permission %q", s)
	}
}

// State returns the current permission.
func (p *Permissions) State() alert.Permission {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Request resolves an undecided permission and returns the outcome.
func (p *Permissions) Request(_ context.Context) alert.Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.Decided() {
		p.state = p.answer
	}
	return p.state
}

// Set records an explicit user decision.
func (p *Permissions) Set(state alert.Permission) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
}

var _ alert.PermissionGate = (*Permissions)(nil)
