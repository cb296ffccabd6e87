// Package api holds the HTTP contract of the service: request and response
// types, the server interface and its gin route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// MetricAccess defines model for MetricAccess.
type MetricAccess struct {
	Read  *bool `json:"read,omitempty"`
	Write *bool `json:"write,omitempty"`
}

// PermissionsRequest defines model for PermissionsRequest.
type PermissionsRequest struct {
	Metrics map[string]MetricAccess `json:"metrics"`
}

// GenerateReportRequest defines model for GenerateReportRequest.
type GenerateReportRequest struct {
	Start openapi_types.Date `json:"start"`
	End   openapi_types.Date `json:"end"`
}

// ReportResponse defines model for ReportResponse.
type ReportResponse struct {
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// HealthStatus defines model for HealthStatus.
type HealthStatus struct {
	Status   string `json:"status"`
	Platform string `json:"platform"`
	Audit    string `json:"audit"`
}

// RangeParams are the query parameters shared by every range read.
// Start and End win over Days when both are present.
type RangeParams struct {
	Start *openapi_types.Date `form:"start,omitempty" json:"start,omitempty"`
	End   *openapi_types.Date `form:"end,omitempty" json:"end,omitempty"`
	Days  *int                `form:"days,omitempty" json:"days,omitempty"`
}

// GetApiV1HealthStepsDailyParams defines parameters for GetApiV1HealthStepsDaily.
type GetApiV1HealthStepsDailyParams = RangeParams

// GetApiV1HealthActivityDailyParams defines parameters for GetApiV1HealthActivityDaily.
type GetApiV1HealthActivityDailyParams = RangeParams

// GetApiV1HealthGlucoseParams defines parameters for GetApiV1HealthGlucose.
type GetApiV1HealthGlucoseParams = RangeParams

// DayParams select one calendar day.
type DayParams struct {
	Date openapi_types.Date `form:"date" json:"date"`
}

// GetApiV1HealthStepsHourlyParams defines parameters for GetApiV1HealthStepsHourly.
type GetApiV1HealthStepsHourlyParams = DayParams

// GetApiV1HealthActivityHourlyParams defines parameters for GetApiV1HealthActivityHourly.
type GetApiV1HealthActivityHourlyParams = DayParams

// GetApiV1HealthPermissionsParams defines parameters for GetApiV1HealthPermissions.
type GetApiV1HealthPermissionsParams struct {
	Metrics *[]string `form:"metrics,omitempty" json:"metrics,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /health)
	GetHealth(c *gin.Context)
	// (GET /api/v1/health/permissions)
	GetApiV1HealthPermissions(c *gin.Context, params GetApiV1HealthPermissionsParams)
	// (POST /api/v1/health/permissions)
	PostApiV1HealthPermissions(c *gin.Context)
	// (GET /api/v1/health/steps/daily)
	GetApiV1HealthStepsDaily(c *gin.Context, params GetApiV1HealthStepsDailyParams)
	// (GET /api/v1/health/activity/daily)
	GetApiV1HealthActivityDaily(c *gin.Context, params GetApiV1HealthActivityDailyParams)
	// (GET /api/v1/health/steps/hourly)
	GetApiV1HealthStepsHourly(c *gin.Context, params GetApiV1HealthStepsHourlyParams)
	// (GET /api/v1/health/activity/hourly)
	GetApiV1HealthActivityHourly(c *gin.Context, params GetApiV1HealthActivityHourlyParams)
	// (GET /api/v1/health/glucose)
	GetApiV1HealthGlucose(c *gin.Context, params GetApiV1HealthGlucoseParams)
	// (POST /api/v1/health/reports)
	PostApiV1HealthReports(c *gin.Context)
	// (GET /api/v1/health/reports/{name})
	GetApiV1HealthReportsName(c *gin.Context, name string)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandler       func(*gin.Context, error, int)
}

type MiddlewareFunc func(c *gin.Context)

func (siw *ServerInterfaceWrapper) run(c *gin.Context, handle func()) {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}
	handle()
}

func (siw *ServerInterfaceWrapper) bindRange(c *gin.Context) (RangeParams, bool) {
	var params RangeParams
	query := c.Request.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "start", query, &params.Start); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter start: %w", err), http.StatusBadRequest)
		return params, false
	}
	if err := runtime.BindQueryParameter("form", true, false, "end", query, &params.End); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter end: %w", err), http.StatusBadRequest)
		return params, false
	}
	if err := runtime.BindQueryParameter("form", true, false, "days", query, &params.Days); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter days: %w", err), http.StatusBadRequest)
		return params, false
	}
	return params, true
}

func (siw *ServerInterfaceWrapper) bindDay(c *gin.Context) (DayParams, bool) {
	var params DayParams

	if _, ok := c.GetQuery("date"); !ok {
		siw.ErrorHandler(c, fmt.Errorf("Query argument date is required, but not found"), http.StatusBadRequest)
		return params, false
	}
	if err := runtime.BindQueryParameter("form", true, true, "date", c.Request.URL.Query(), &params.Date); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter date: %w", err), http.StatusBadRequest)
		return params, false
	}
	return params, true
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(c *gin.Context) {
	siw.run(c, func() { siw.Handler.GetHealth(c) })
}

// GetApiV1HealthPermissions operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1HealthPermissions(c *gin.Context) {
	var params GetApiV1HealthPermissionsParams

	if err := runtime.BindQueryParameter("form", false, false, "metrics", c.Request.URL.Query(), &params.Metrics); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter metrics: %w", err), http.StatusBadRequest)
		return
	}

	siw.run(c, func() { siw.Handler.GetApiV1HealthPermissions(c, params) })
}

// PostApiV1HealthPermissions operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1HealthPermissions(c *gin.Context) {
	siw.run(c, func() { siw.Handler.PostApiV1HealthPermissions(c) })
}

// GetApiV1HealthStepsDaily operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1HealthStepsDaily(c *gin.Context) {
	params, ok := siw.bindRange(c)
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.GetApiV1HealthStepsDaily(c, params) })
}

// GetApiV1HealthActivityDaily operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1HealthActivityDaily(c *gin.Context) {
	params, ok := siw.bindRange(c)
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.GetApiV1HealthActivityDaily(c, params) })
}

// GetApiV1HealthStepsHourly operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1HealthStepsHourly(c *gin.Context) {
	params, ok := siw.bindDay(c)
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.GetApiV1HealthStepsHourly(c, params) })
}

// GetApiV1HealthActivityHourly operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1HealthActivityHourly(c *gin.Context) {
	params, ok := siw.bindDay(c)
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.GetApiV1HealthActivityHourly(c, params) })
}

// GetApiV1HealthGlucose operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1HealthGlucose(c *gin.Context) {
	params, ok := siw.bindRange(c)
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.GetApiV1HealthGlucose(c, params) })
}

// PostApiV1HealthReports operation middleware
func (siw *ServerInterfaceWrapper) PostApiV1HealthReports(c *gin.Context) {
	siw.run(c, func() { siw.Handler.PostApiV1HealthReports(c) })
}

// GetApiV1HealthReportsName operation middleware
func (siw *ServerInterfaceWrapper) GetApiV1HealthReportsName(c *gin.Context) {
	var name string

	err := runtime.BindStyledParameterWithOptions("simple", "name", c.Param("name"), &name,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter name: %w", err), http.StatusBadRequest)
		return
	}

	siw.run(c, func() { siw.Handler.GetApiV1HealthReportsName(c, name) })
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	Middlewares  []MiddlewareFunc
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching OpenAPI spec.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, gin.H{"msg": err.Error()})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandler:       errorHandler,
	}

	router.GET(options.BaseURL+"/health", wrapper.GetHealth)
	router.GET(options.BaseURL+"/api/v1/health/permissions", wrapper.GetApiV1HealthPermissions)
	router.POST(options.BaseURL+"/api/v1/health/permissions", wrapper.PostApiV1HealthPermissions)
	router.GET(options.BaseURL+"/api/v1/health/steps/daily", wrapper.GetApiV1HealthStepsDaily)
	router.GET(options.BaseURL+"/api/v1/health/activity/daily", wrapper.GetApiV1HealthActivityDaily)
	router.GET(options.BaseURL+"/api/v1/health/steps/hourly", wrapper.GetApiV1HealthStepsHourly)
	router.GET(options.BaseURL+"/api/v1/health/activity/hourly", wrapper.GetApiV1HealthActivityHourly)
	router.GET(options.BaseURL+"/api/v1/health/glucose", wrapper.GetApiV1HealthGlucose)
	router.POST(options.BaseURL+"/api/v1/health/reports", wrapper.PostApiV1HealthReports)
	router.GET(options.BaseURL+"/api/v1/health/reports/:name", wrapper.GetApiV1HealthReportsName)
}
