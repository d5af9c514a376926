package alert

import "context"

// Permission is the user's decision about system notifications.
type Permission string

// Permission states.
const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Decided reports whether the user has granted or denied.
func (p Permission) Decided() bool {
	return p == PermissionGranted || p == PermissionDenied
}

// PermissionGate reads and requests notification permission.
type PermissionGate interface {
	State() Permission
	// Request asks the user if still undecided and returns the outcome.
	Request(ctx context.Context) Permission
}

// EnsureRequested asks for permission once if it is still undecided.
func EnsureRequested(ctx context.Context, gate PermissionGate) Permission {
	if gate == nil {
		return PermissionDefault
	}
	if p := gate.State(); p.Decided() {
		return p
	}
	return gate.Request(ctx)
}
