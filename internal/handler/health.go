package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/healthlayer/internal/service"
	"github.com/vcscsvcscs/healthlayer/pkg/api"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
)

// HealthHandler implements the health data API endpoints
type HealthHandler struct {
	service *service.HealthDataService
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. Query dates are read as calendar days in loc.
func NewHealthHandler(service *service.HealthDataService, loc *time.Location, logger *zap.Logger) *HealthHandler {
	if loc == nil {
		loc = time.Local
	}
	return &HealthHandler{
		service: service,
		loc:     loc,
		now:     time.Now,
		logger:  logger,
	}
}

// toPermissionRequest validates metric names and converts the API body
func toPermissionRequest(metrics map[string]api.MetricAccess) (model.PermissionRequest, error) {
	req := make(model.PermissionRequest, len(metrics))
	for name, access := range metrics {
		metric := model.Metric(name)
		if !metric.IsValid() {
			return nil, validationErrorf("unknown metric %q", name)
		}
		var p model.MetricPermission
		if access.Read != nil {
			p.Read = *access.Read
		}
		if access.Write != nil {
			p.Write = *access.Write
		}
		req[metric] = p
	}
	return req, nil
}

// PostApiV1HealthPermissions prompts for access to the requested metrics
func (h *HealthHandler) PostApiV1HealthPermissions(c *gin.Context) {
	var body api.PermissionsRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		writeValidationError(c, "Invalid request body", err)
		return
	}

	req, err := toPermissionRequest(body.Metrics)
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	resp, err := h.service.EnsurePermissions(c.Request.Context(), actorOf(c), req)
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetApiV1HealthPermissions reports the best known permission state. All
// metrics are queried for read access when none are named.
func (h *HealthHandler) GetApiV1HealthPermissions(c *gin.Context, params api.GetApiV1HealthPermissionsParams) {
	names := make([]string, 0, len(model.Metrics))
	if params.Metrics != nil {
		names = *params.Metrics
	} else {
		for _, m := range model.Metrics {
			names = append(names, string(m))
		}
	}

	metrics := make(map[string]api.MetricAccess, len(names))
	read := true
	for _, name := range names {
		metrics[name] = api.MetricAccess{Read: &read}
	}

	req, err := toPermissionRequest(metrics)
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	resp, err := h.service.GetPermissionStatus(c.Request.Context(), actorOf(c), req)
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetApiV1HealthStepsDaily returns step totals per local day
func (h *HealthHandler) GetApiV1HealthStepsDaily(c *gin.Context, params api.GetApiV1HealthStepsDailyParams) {
	r, err := resolveRange(params, h.loc, h.now())
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	days, err := h.service.DailySteps(c.Request.Context(), actorOf(c), r)
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, days)
}

// GetApiV1HealthActivityDaily returns active calories and distance per local day
func (h *HealthHandler) GetApiV1HealthActivityDaily(c *gin.Context, params api.GetApiV1HealthActivityDailyParams) {
	r, err := resolveRange(params, h.loc, h.now())
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	days, err := h.service.DailyActivity(c.Request.Context(), actorOf(c), r)
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, days)
}

// GetApiV1HealthStepsHourly returns the 24 hourly step totals of one day
func (h *HealthHandler) GetApiV1HealthStepsHourly(c *gin.Context, params api.GetApiV1HealthStepsHourlyParams) {
	hours, err := h.service.HourlySteps(c.Request.Context(), actorOf(c), localDay(params.Date, h.loc))
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, hours)
}

// GetApiV1HealthActivityHourly returns the 24 hourly activity summaries of one day
func (h *HealthHandler) GetApiV1HealthActivityHourly(c *gin.Context, params api.GetApiV1HealthActivityHourlyParams) {
	hours, err := h.service.HourlyActivity(c.Request.Context(), actorOf(c), localDay(params.Date, h.loc))
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, hours)
}

// GetApiV1HealthGlucose returns blood glucose samples in mg/dL
func (h *HealthHandler) GetApiV1HealthGlucose(c *gin.Context, params api.GetApiV1HealthGlucoseParams) {
	r, err := resolveRange(params, h.loc, h.now())
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	samples, err := h.service.GlucoseSamples(c.Request.Context(), actorOf(c), r)
	if err != nil {
		writeHealthError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, samples)
}
