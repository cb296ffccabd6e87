package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vcscsvcscs/healthlayer/internal/azure"
	"github.com/vcscsvcscs/healthlayer/internal/daterange"
	"github.com/vcscsvcscs/healthlayer/internal/service"
	"github.com/vcscsvcscs/healthlayer/pkg/api"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
)

// ReportHandler implements report API endpoints
type ReportHandler struct {
	service *service.ReportService
	loc     *time.Location
	logger  *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service *service.ReportService, loc *time.Location, logger *zap.Logger) *ReportHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReportHandler{
		service: service,
		loc:     loc,
		logger:  logger,
	}
}

// PostApiV1HealthReports renders and stores an activity report for a date range
func (h *ReportHandler) PostApiV1HealthReports(c *gin.Context) {
	var req api.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("invalid request body", zap.Error(err))
		writeValidationError(c, "Invalid request body", err)
		return
	}

	r := model.DateRange{
		StartDate: localDay(req.Start, h.loc),
		EndDate:   daterange.EndOfDay(localDay(req.End, h.loc)),
	}
	if r.StartDate.After(r.EndDate) {
		writeValidationError(c, "Start date must be before or equal to end date", nil)
		return
	}

	info, err := h.service.GenerateReport(c.Request.Context(), actorOf(c), r)
	if err != nil {
		var healthErr *model.HealthError
		if errors.As(err, &healthErr) {
			writeHealthError(c, h.logger, err)
			return
		}
		h.logger.Error("failed to generate report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to generate report",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.JSON(http.StatusCreated, api.ReportResponse{
		Name:  info.Name,
		Size:  info.Size,
		Start: daterange.LocalDateKey(info.Range.StartDate),
		End:   daterange.LocalDateKey(info.Range.EndDate),
	})
}

// GetApiV1HealthReportsName downloads a stored report
func (h *ReportHandler) GetApiV1HealthReportsName(c *gin.Context, name string) {
	pdfBytes, err := h.service.GetReport(c.Request.Context(), name)
	switch {
	case errors.Is(err, service.ErrInvalidReportName):
		writeValidationError(c, "Invalid report name", err)
		return
	case errors.Is(err, azure.ErrReportNotFound):
		c.JSON(http.StatusNotFound, api.ErrorResponse{
			Code:    "NOT_FOUND",
			Message: "Report not found",
		})
		return
	case err != nil:
		h.logger.Error("failed to get report", zap.Error(err), zap.String("name", name))
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "Failed to get report",
			Details: stringPtr(err.Error()),
		})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	c.Data(http.StatusOK, "application/pdf", pdfBytes)

	h.logger.Info("report downloaded",
		zap.String("name", name),
		zap.Int("size_bytes", len(pdfBytes)),
	)
}
