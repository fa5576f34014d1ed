// Package handler provides HTTP handlers for the storefront API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/wokexpress/storefront/internal/api/models"
	"github.com/wokexpress/storefront/internal/api/response"
	"github.com/wokexpress/storefront/internal/provider/resilience"
)

// Pinger is implemented by dependencies the readiness check must reach,
// such as *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	database  Pinger
}

// NewOpsHandler creates a new OpsHandler. registry and database may be nil.
func NewOpsHandler(version, buildTime string, registry *resilience.Registry, database Pinger) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		registry:  registry,
		database:  database,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
// The service is not ready while the order database is unreachable.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	if h.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.database.Ping(ctx); err != nil {
			health.Status = models.HealthStatusFail
			health.Details = map[string]interface{}{"database": err.Error()}
			response.JSON(w, r, http.StatusServiceUnavailable, health)
			return
		}
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{h.databaseStatus(r.Context())},
		Providers:  []models.ProviderStatus{},
	}
	if status.Subsystems[0].Status == models.HealthStatusFail {
		status.Status = models.HealthStatusDegraded
	}

	if h.registry != nil {
		for _, ph := range h.registry.GetAllHealth() {
			ps := providerStatus(ph)
			if ps.Status != models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) databaseStatus(ctx context.Context) models.SubsystemStatus {
	if h.database == nil {
		detail := "in-memory order store"
		return models.SubsystemStatus{Name: "orders-db", Status: models.HealthStatusOK, Detail: &detail}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.database.Ping(ctx); err != nil {
		detail := err.Error()
		return models.SubsystemStatus{Name: "orders-db", Status: models.HealthStatusFail, Detail: &detail}
	}
	return models.SubsystemStatus{Name: "orders-db", Status: models.HealthStatusOK}
}

func providerStatus(ph *resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{
		Provider:            ph.Name,
		Status:              models.HealthStatusOK,
		CircuitState:        ph.CircuitState.String(),
		ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
	}
	switch {
	case ph.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case ph.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if ph.LastSuccessAt != nil {
		t := models.Timestamp(*ph.LastSuccessAt)
		ps.LastSuccessAt = &t
	}
	if ph.LastFailureAt != nil {
		t := models.Timestamp(*ph.LastFailureAt)
		ps.LastFailureAt = &t
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}
