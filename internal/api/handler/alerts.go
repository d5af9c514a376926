package handler

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/stormwatch/stormwatch/internal/alert"
	"github.com/stormwatch/stormwatch/internal/api/models"
	"github.com/stormwatch/stormwatch/internal/api/response"
	"github.com/stormwatch/stormwatch/internal/notify"
)

// AlertsHandlerConfig holds the alert components exposed over HTTP.
type AlertsHandlerConfig struct {
	Scheduler   *alert.Scheduler
	Monitor     *alert.CurrentMonitor
	Board       *notify.Board
	Permissions *notify.Permissions
}

// AlertsHandler handles alert endpoints.
type AlertsHandler struct {
	scheduler   *alert.Scheduler
	monitor     *alert.CurrentMonitor
	board       *notify.Board
	permissions *notify.Permissions
}

// NewAlertsHandler creates a new AlertsHandler.
func NewAlertsHandler(cfg AlertsHandlerConfig) *AlertsHandler {
	return &AlertsHandler{
		scheduler:   cfg.Scheduler,
		monitor:     cfg.Monitor,
		board:       cfg.Board,
		permissions: cfg.Permissions,
	}
}

// GetAlerts handles GET /v1/alerts.
func (h *AlertsHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	status := models.AlertStatus{
		Permission:    models.Permission(h.permissions.State()),
		LastNotified:  h.monitor.LastNotified(),
		Notifications: []models.Notification{},
	}

	if b, ok := h.board.Current(); ok {
		status.Banner = &models.Banner{
			Source:    b.Source,
			Condition: b.Condition,
			Category:  string(b.Category),
			Icon:      string(b.Icon),
			Message:   b.Message,
			ShownAt:   models.Timestamp(b.ShownAt),
		}
	}

	if p := h.scheduler.Pending(); p != nil {
		status.Pending = &models.PendingAlarm{
			FireAt:    models.Timestamp(p.FireAt),
			StartsAt:  models.Timestamp(p.Point.Time),
			Condition: p.Point.Main,
		}
	}

	for _, n := range h.board.Recent() {
		status.Notifications = append(status.Notifications, models.Notification{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Condition: n.Condition,
			Source:    n.Source,
			CreatedAt: models.Timestamp(n.CreatedAt),
		})
	}

	response.JSON(w, r, http.StatusOK, status)
}

// UpdatePermission handles PUT /v1/alerts/permission.
func (h *AlertsHandler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	var input models.PermissionUpdate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	state, err := notify.ParsePermission(string(input.State))
	if err != nil || !state.Decided() {
		response.BadRequest(w, r, "invalid permission", []models.FieldError{
			{Field: "state", Message: "must be granted or denied", Code: "INVALID"},
		})
		return
	}

	h.permissions.Set(state)
	h.GetAlerts(w, r)
}

// CancelPending handles DELETE /v1/alerts/pending.
func (h *AlertsHandler) CancelPending(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Cancel(r.Context())
	response.NoContent(w, r)
}

// DismissBanner handles DELETE /v1/alerts/banner.
func (h *AlertsHandler) DismissBanner(w http.ResponseWriter, r *http.Request) {
	h.board.Hide()
	response.NoContent(w, r)
}
