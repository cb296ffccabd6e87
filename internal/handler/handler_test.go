package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/healthlayer/internal/azure"
	"github.com/vcscsvcscs/healthlayer/internal/middleware"
	"github.com/vcscsvcscs/healthlayer/internal/pdf"
	"github.com/vcscsvcscs/healthlayer/internal/service"
	"github.com/vcscsvcscs/healthlayer/pkg/api"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
)

type MockHealthProvider struct {
	mock.Mock
}

func (m *MockHealthProvider) EnsurePermissions(ctx context.Context, req model.PermissionRequest) (*model.PermissionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PermissionResponse), args.Error(1)
}

func (m *MockHealthProvider) GetPermissionStatus(ctx context.Context, req model.PermissionRequest) (*model.PermissionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PermissionResponse), args.Error(1)
}

func (m *MockHealthProvider) ReadDailySteps(ctx context.Context, r model.DateRange) ([]model.DailySteps, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DailySteps), args.Error(1)
}

func (m *MockHealthProvider) ReadDailyActivity(ctx context.Context, r model.DateRange) ([]model.DailyActivitySummary, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DailyActivitySummary), args.Error(1)
}

func (m *MockHealthProvider) ReadHourlySteps(ctx context.Context, day time.Time) ([]model.HourlySteps, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HourlySteps), args.Error(1)
}

func (m *MockHealthProvider) ReadHourlyActivity(ctx context.Context, day time.Time) ([]model.HourlyActivitySummary, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HourlyActivitySummary), args.Error(1)
}

func (m *MockHealthProvider) ReadGlucoseSamples(ctx context.Context, r model.DateRange) ([]model.GlucoseSample, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.GlucoseSample), args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

var budapest = mustLoad("Europe/Budapest")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type testServer struct {
	router  *gin.Engine
	health  *MockHealthProvider
	storage *azure.MockBlobStorageClient
}

func newTestServer(t *testing.T, db Pinger) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	health := new(MockHealthProvider)
	storage := azure.NewMockBlobStorageClient(logger)

	healthHandler := NewHealthHandler(service.NewHealthDataService(health, nil, logger), budapest, logger)
	healthHandler.now = func() time.Time { return time.Date(2024, 3, 6, 15, 0, 0, 0, budapest) }
	reportHandler := NewReportHandler(
		service.NewReportService(health, storage, pdf.NewPDFGenerator(logger), nil, "android", logger),
		budapest, logger)

	router := gin.New()
	router.Use(middleware.ActorMiddleware())
	api.RegisterHandlersWithOptions(router, NewAPIHandler(healthHandler, reportHandler, "android", db, logger),
		api.GinServerOptions{ErrorHandler: ParameterErrorHandler})

	return &testServer{router: router, health: health, storage: storage}
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set(middleware.ActorHeader, "device-1")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestGetApiV1HealthStepsDaily_ExplicitRange(t *testing.T) {
	s := newTestServer(t, nil)

	want := model.DateRange{
		StartDate: time.Date(2024, 3, 4, 0, 0, 0, 0, budapest),
		EndDate:   time.Date(2024, 3, 6, 23, 59, 59, 999000000, budapest),
	}
	days := []model.DailySteps{{Date: "2024-03-04", Steps: 10}, {Date: "2024-03-05", Steps: 0}, {Date: "2024-03-06", Steps: 5}}
	s.health.On("ReadDailySteps", mock.Anything, mock.MatchedBy(func(r model.DateRange) bool {
		return r.StartDate.Equal(want.StartDate) && r.EndDate.Equal(want.EndDate)
	})).Return(days, nil)

	w := s.do(http.MethodGet, "/api/v1/health/steps/daily?start=2024-03-04&end=2024-03-06", "")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got []model.DailySteps
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, days, got)
	s.health.AssertExpectations(t)
}

func TestGetApiV1HealthStepsDaily_DaysAndDefault(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantStart time.Time
	}{
		{"days", "?days=3", time.Date(2024, 3, 4, 0, 0, 0, 0, budapest)},
		{"default seven days", "", time.Date(2024, 2, 29, 0, 0, 0, 0, budapest)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			s.health.On("ReadDailySteps", mock.Anything, mock.MatchedBy(func(r model.DateRange) bool {
				return r.StartDate.Equal(tt.wantStart) &&
					r.EndDate.Equal(time.Date(2024, 3, 6, 23, 59, 59, 999000000, budapest))
			})).Return([]model.DailySteps{}, nil)

			w := s.do(http.MethodGet, "/api/v1/health/steps/daily"+tt.query, "")

			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
			s.health.AssertExpectations(t)
		})
	}
}

func TestRangeValidation(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"only start", "?start=2024-03-04"},
		{"inverted", "?start=2024-03-06&end=2024-03-04"},
		{"zero days", "?days=0"},
		{"malformed date", "?start=yesterday&end=2024-03-04"},
		{"malformed days", "?days=many"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)

			w := s.do(http.MethodGet, "/api/v1/health/glucose"+tt.query, "")

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
			s.health.AssertNotCalled(t, "ReadGlucoseSamples", mock.Anything, mock.Anything)
		})
	}
}

func TestHealthErrorMapping(t *testing.T) {
	tests := []struct {
		code   model.ErrorCode
		status int
	}{
		{model.ErrCodeNotAvailable, http.StatusServiceUnavailable},
		{model.ErrCodePermissionDenied, http.StatusForbidden},
		{model.ErrCodeNoData, http.StatusNotFound},
		{model.ErrCodeUnknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			s := newTestServer(t, nil)
			s.health.On("ReadDailyActivity", mock.Anything, mock.Anything).
				Return(nil, model.NewHealthError(tt.code, "vendor said no"))

			w := s.do(http.MethodGet, "/api/v1/health/activity/daily?days=2", "")

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, string(tt.code), resp.Code)
			assert.Equal(t, model.UserMessage(model.HealthErrorInfo{Code: tt.code}), resp.Message)
			require.NotNil(t, resp.Details)
			assert.Equal(t, "vendor said no", *resp.Details)
		})
	}
}

func TestHourlyEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	day := time.Date(2024, 3, 31, 0, 0, 0, 0, budapest)

	s.health.On("ReadHourlySteps", mock.Anything, mock.MatchedBy(day.Equal)).Return(make([]model.HourlySteps, 24), nil)
	s.health.On("ReadHourlyActivity", mock.Anything, mock.MatchedBy(day.Equal)).
		Return(nil, model.NewHealthError(model.ErrCodeNoData, "No activity data in range"))

	w := s.do(http.MethodGet, "/api/v1/health/steps/hourly?date=2024-03-31", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var hours []model.HourlySteps
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hours))
	assert.Len(t, hours, 24)

	w = s.do(http.MethodGet, "/api/v1/health/activity/hourly?date=2024-03-31", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/health/activity/hourly", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostApiV1HealthPermissions(t *testing.T) {
	s := newTestServer(t, nil)

	expected := model.PermissionRequest{
		model.MetricSteps:        {Read: true},
		model.MetricBloodGlucose: {Read: true, Write: true},
	}
	s.health.On("EnsurePermissions", mock.Anything, expected).Return(&model.PermissionResponse{
		Status: model.PermissionGranted,
		PerMetric: map[model.Metric]model.PermissionState{
			model.MetricSteps:        model.PermissionGranted,
			model.MetricBloodGlucose: model.PermissionGranted,
		},
	}, nil)

	w := s.do(http.MethodPost, "/api/v1/health/permissions",
		`{"metrics":{"steps":{"read":true},"bloodGlucose":{"read":true,"write":true}}}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp model.PermissionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.PermissionGranted, resp.Status)
	assert.Len(t, resp.PerMetric, 2)
}

func TestPostApiV1HealthPermissions_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"metrics":`},
		{"unknown metric", `{"metrics":{"heartRate":{"read":true}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)

			w := s.do(http.MethodPost, "/api/v1/health/permissions", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)
		})
	}
}

func TestGetApiV1HealthPermissions(t *testing.T) {
	t.Run("named metrics", func(t *testing.T) {
		s := newTestServer(t, nil)
		expected := model.PermissionRequest{
			model.MetricSteps:    {Read: true},
			model.MetricDistance: {Read: true},
		}
		s.health.On("GetPermissionStatus", mock.Anything, expected).Return(&model.PermissionResponse{
			Status: model.PermissionUnknown,
			PerMetric: map[model.Metric]model.PermissionState{
				model.MetricSteps:    model.PermissionUnknown,
				model.MetricDistance: model.PermissionUnknown,
			},
		}, nil)

		w := s.do(http.MethodGet, "/api/v1/health/permissions?metrics=steps,distance", "")

		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		s.health.AssertExpectations(t)
	})

	t.Run("all metrics by default", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.health.On("GetPermissionStatus", mock.Anything, mock.MatchedBy(func(req model.PermissionRequest) bool {
			return len(req.Requested()) == len(model.Metrics)
		})).Return(&model.PermissionResponse{Status: model.PermissionUnknown}, nil)

		w := s.do(http.MethodGet, "/api/v1/health/permissions", "")

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unavailable platform", func(t *testing.T) {
		s := newTestServer(t, nil)
		s.health.On("GetPermissionStatus", mock.Anything, mock.Anything).
			Return(nil, model.NewHealthError(model.ErrCodeNotAvailable, "Health platform not supported"))

		w := s.do(http.MethodGet, "/api/v1/health/permissions?metrics=steps", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestReports(t *testing.T) {
	s := newTestServer(t, nil)
	s.health.On("ReadDailySteps", mock.Anything, mock.Anything).Return([]model.DailySteps{{Date: "2024-03-04", Steps: 900}}, nil)
	s.health.On("ReadDailyActivity", mock.Anything, mock.Anything).Return(nil, model.NewHealthError(model.ErrCodeNoData, "none"))
	s.health.On("ReadGlucoseSamples", mock.Anything, mock.Anything).Return(nil, model.NewHealthError(model.ErrCodeNoData, "none"))

	w := s.do(http.MethodPost, "/api/v1/health/reports", `{"start":"2024-03-04","end":"2024-03-05"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var report api.ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "2024-03-04", report.Start)
	assert.Equal(t, "2024-03-05", report.End)
	assert.Greater(t, report.Size, 0)

	w = s.do(http.MethodGet, "/api/v1/health/reports/"+report.Name, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, report.Size, w.Body.Len())

	w = s.do(http.MethodGet, "/api/v1/health/reports/activity_20240304_20240305_0b7f6f2e-3c4d-4a8e-9f21-6f1f6c0a9b11.pdf", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/health/reports/passwd", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReports_Invalid(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/v1/health/reports", `{"start":"2024-03-06","end":"2024-03-04"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/health/reports", `{"start":"March"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReports_PermissionDenied(t *testing.T) {
	s := newTestServer(t, nil)
	denied := model.NewHealthError(model.ErrCodePermissionDenied, "denied")
	s.health.On("ReadDailySteps", mock.Anything, mock.Anything).Return(nil, denied)
	s.health.On("ReadDailyActivity", mock.Anything, mock.Anything).Return([]model.DailyActivitySummary{}, nil)
	s.health.On("ReadGlucoseSamples", mock.Anything, mock.Anything).Return([]model.GlucoseSample{}, nil)

	w := s.do(http.MethodPost, "/api/v1/health/reports", `{"start":"2024-03-04","end":"2024-03-05"}`)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, s.storage.ListBlobs())
}

func TestGetHealth(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status int
		audit  string
	}{
		{"no database", nil, http.StatusOK, "disabled"},
		{"database up", stubPinger{}, http.StatusOK, "connected"},
		{"database down", stubPinger{err: errors.New("refused")}, http.StatusServiceUnavailable, "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.db)

			w := s.do(http.MethodGet, "/health", "")

			assert.Equal(t, tt.status, w.Code)
			var resp api.HealthStatus
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.audit, resp.Audit)
			assert.Equal(t, "android", resp.Platform)
		})
	}
}
