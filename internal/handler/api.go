package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/healthlayer/pkg/api"
	"go.uber.org/zap"
)

// Pinger checks a backing store. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// APIHandler implements api.ServerInterface by delegating to the individual handlers
type APIHandler struct {
	*HealthHandler
	*ReportHandler

	platform string
	db       Pinger
	logger   *zap.Logger
}

var _ api.ServerInterface = (*APIHandler)(nil)

// NewAPIHandler creates a new APIHandler. db may be nil when auditing is disabled.
func NewAPIHandler(health *HealthHandler, report *ReportHandler, platform string, db Pinger, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		HealthHandler: health,
		ReportHandler: report,
		platform:      platform,
		db:            db,
		logger:        logger,
	}
}

// GetHealth implements the liveness endpoint
func (h *APIHandler) GetHealth(c *gin.Context) {
	status := api.HealthStatus{
		Status:   "healthy",
		Platform: h.platform,
		Audit:    "disabled",
	}

	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			h.logger.Error("health check failed: audit database unreachable", zap.Error(err))
			status.Status = "unhealthy"
			status.Audit = "disconnected"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status.Audit = "connected"
	}

	c.JSON(http.StatusOK, status)
}
