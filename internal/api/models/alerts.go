package models

// Permission is the notification permission state.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// AlertStatus is the alert state of the dashboard.
type AlertStatus struct {
	Permission    Permission     `json:"permission"`
	Banner        *Banner        `json:"banner,omitempty"`
	Pending       *PendingAlarm  `json:"pending,omitempty"`
	LastNotified  string         `json:"lastNotified,omitempty"`
	Notifications []Notification `json:"notifications"`
}

// Banner is the visible alert banner.
type Banner struct {
	Source    string    `json:"source" jsonschema:"enum=upcoming,enum=current"`
	Condition string    `json:"condition"`
	Category  string    `json:"category"`
	Icon      string    `json:"icon"`
	Message   string    `json:"message"`
	ShownAt   Timestamp `json:"shownAt"`
}

// PendingAlarm is the scheduled upcoming-weather alert.
type PendingAlarm struct {
	FireAt    Timestamp `json:"fireAt"`
	StartsAt  Timestamp `json:"startsAt"`
	Condition string    `json:"condition"`
}

// Notification is a delivered system notification.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Condition string    `json:"condition"`
	Source    string    `json:"source"`
	CreatedAt Timestamp `json:"createdAt"`
}

// PermissionUpdate sets the notification permission.
type PermissionUpdate struct {
	State Permission `json:"state" jsonschema:"enum=granted,enum=denied"`
}
