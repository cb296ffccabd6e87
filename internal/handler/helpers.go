package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/healthlayer/internal/daterange"
	"github.com/vcscsvcscs/healthlayer/internal/middleware"
	"github.com/vcscsvcscs/healthlayer/pkg/api"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
)

// defaultRangeDays is used when a range read carries neither start/end nor days
const defaultRangeDays = 7

const codeValidation = "VALIDATION_ERROR"

// errValidation marks bad client input
var errValidation = errors.New("validation error")

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errValidation}, args...)...)
}

// statusForCode maps a health error code to its HTTP status
func statusForCode(code model.ErrorCode) int {
	switch code {
	case model.ErrCodeNotAvailable:
		return http.StatusServiceUnavailable
	case model.ErrCodePermissionDenied:
		return http.StatusForbidden
	case model.ErrCodeNoData:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeValidationError renders a 400 VALIDATION_ERROR response
func writeValidationError(c *gin.Context, message string, err error) {
	resp := api.ErrorResponse{
		Code:    codeValidation,
		Message: message,
	}
	if err != nil {
		resp.Details = stringPtr(err.Error())
	}
	c.JSON(http.StatusBadRequest, resp)
}

// writeHealthError renders a health layer failure. The message is always the
// user-facing sentence for the code; the technical text goes into details.
func writeHealthError(c *gin.Context, logger *zap.Logger, err error) {
	if errors.Is(err, errValidation) {
		writeValidationError(c, "Invalid request parameters", err)
		return
	}

	info := model.NormalizeError(err)
	status := statusForCode(info.Code)

	fields := []zap.Field{
		zap.Error(err),
		zap.String("code", string(info.Code)),
		zap.String("path", c.Request.URL.Path),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("health request failed", fields...)
	} else {
		logger.Info("health request rejected", fields...)
	}

	resp := api.ErrorResponse{
		Code:    string(info.Code),
		Message: model.UserMessage(info),
	}
	if info.Message != "" {
		resp.Details = stringPtr(info.Message)
	}
	c.JSON(status, resp)
}

// ParameterErrorHandler renders parameter binding failures of the API router
func ParameterErrorHandler(c *gin.Context, err error, statusCode int) {
	c.JSON(statusCode, api.ErrorResponse{
		Code:    codeValidation,
		Message: "Invalid request parameters",
		Details: stringPtr(err.Error()),
	})
}

// localDay reinterprets a calendar date in loc
func localDay(d openapi_types.Date, loc *time.Location) time.Time {
	y, m, day := d.Time.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, loc)
}

// resolveRange turns range query parameters into a local day range.
// Explicit start/end win over days; neither means the last seven days.
func resolveRange(params api.RangeParams, loc *time.Location, now time.Time) (model.DateRange, error) {
	if params.Start != nil || params.End != nil {
		if params.Start == nil || params.End == nil {
			return model.DateRange{}, validationErrorf("start and end must be given together")
		}
		r := model.DateRange{
			StartDate: localDay(*params.Start, loc),
			EndDate:   daterange.EndOfDay(localDay(*params.End, loc)),
		}
		if r.StartDate.After(r.EndDate) {
			return model.DateRange{}, validationErrorf("start %s is after end %s",
				params.Start.String(), params.End.String())
		}
		return r, nil
	}

	days := defaultRangeDays
	if params.Days != nil {
		if *params.Days < 1 {
			return model.DateRange{}, validationErrorf("days must be at least 1, got %d", *params.Days)
		}
		days = *params.Days
	}
	return daterange.DateRangeForLastDays(days, now.In(loc)), nil
}

// actorOf returns the caller identity recorded in the audit trail
func actorOf(c *gin.Context) string {
	return middleware.ActorFrom(c)
}
