package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/stormwatch/stormwatch/internal/api/models"
	"github.com/stormwatch/stormwatch/internal/api/response"
	"github.com/stormwatch/stormwatch/internal/provider/resilience"
	"github.com/stormwatch/stormwatch/internal/weather"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// OpsHandlerConfig holds configuration for the ops endpoints.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string

	// Providers reports circuit state per upstream provider.
	Providers *resilience.Registry

	// CacheStats reports weather cache occupancy (optional).
	CacheStats func() weather.CacheStats

	// RefreshStats reports background refresh counters (optional).
	RefreshStats func() map[string]interface{}

	// Checks run on readiness and status, keyed by subsystem name.
	Checks map[string]ReadinessCheck
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version      string
	buildTime    string
	providers    *resilience.Registry
	cacheStats   func() weather.CacheStats
	refreshStats func() map[string]interface{}
	checks       map[string]ReadinessCheck
	now          func() time.Time
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:      cfg.Version,
		buildTime:    cfg.BuildTime,
		providers:    cfg.Providers,
		cacheStats:   cfg.CacheStats,
		refreshStats: cfg.RefreshStats,
		checks:       cfg.Checks,
		now:          time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready. It fails when any dependency
// check fails.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())

	status := models.HealthStatusOK
	for _, s := range subsystems {
		if s.Status != models.HealthStatusOK {
			status = models.HealthStatusFail
		}
	}

	code := http.StatusOK
	if status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, models.Health{
		Status: status,
		Time:   models.Timestamp(h.now()),
	})
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.now()),
		Subsystems: h.runChecks(r.Context()),
		Providers:  []models.ProviderStatus{},
	}

	for _, s := range status.Subsystems {
		if s.Status != models.HealthStatusOK {
			status.Status = models.HealthStatusDegraded
		}
	}

	if h.providers != nil {
		for _, p := range h.providers.GetAllHealth() {
			ps := models.ProviderStatus{
				Provider:     p.Name,
				Status:       models.HealthStatusOK,
				CircuitState: p.CircuitState.String(),
			}
			switch {
			case p.IsUnhealthy():
				ps.Status = models.HealthStatusFail
				status.Status = models.HealthStatusDegraded
			case p.IsDegraded():
				ps.Status = models.HealthStatusDegraded
				status.Status = models.HealthStatusDegraded
			}
			if p.LastSuccessAt != nil {
				ts := models.Timestamp(*p.LastSuccessAt)
				ps.LastSuccessAt = &ts
			}
			if p.LastFailureAt != nil {
				ts := models.Timestamp(*p.LastFailureAt)
				ps.LastFailureAt = &ts
			}
			if p.LastError != "" {
				msg := p.LastError
				ps.Message = &msg
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	if h.cacheStats != nil {
		stats := h.cacheStats()
		status.Cache = &models.CacheStatus{
			CurrentEntries:  stats.CurrentEntries,
			ForecastEntries: stats.ForecastEntries,
		}
	}
	if h.refreshStats != nil {
		status.Refresh = h.refreshStats()
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.SubsystemStatus, 0, len(names))
	for _, name := range names {
		s := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := h.checks[name](ctx); err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}
