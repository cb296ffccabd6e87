package integration_tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/healthlayer/internal/audit"
	"github.com/vcscsvcscs/healthlayer/internal/azure"
	"github.com/vcscsvcscs/healthlayer/internal/bridge"
	"github.com/vcscsvcscs/healthlayer/internal/handler"
	"github.com/vcscsvcscs/healthlayer/internal/healthlayer"
	"github.com/vcscsvcscs/healthlayer/internal/middleware"
	"github.com/vcscsvcscs/healthlayer/internal/pdf"
	"github.com/vcscsvcscs/healthlayer/internal/service"
	"github.com/vcscsvcscs/healthlayer/pkg/api"
	"go.uber.org/zap"
)

// stack is the full HTTP service wired the way main wires it, pointed at a fake bridge
type stack struct {
	router  *gin.Engine
	storage *azure.MockBlobStorageClient
}

func newStack(t *testing.T, platform, bridgeURL string, loc *time.Location, recorder audit.Recorder, db handler.Pinger) *stack {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	opts := bridge.Options{BaseURL: bridgeURL, Timeout: 5 * time.Second}
	hc, err := bridge.NewHealthConnectClient(opts, logger)
	require.NoError(t, err)
	hk, err := bridge.NewHealthKitClient(opts, logger)
	require.NoError(t, err)

	layer := healthlayer.New(
		healthlayer.Runtime{OS: platform},
		healthlayer.Backends{HealthConnect: hc, HealthKit: hk, Location: loc},
		logger,
	)

	storage := azure.NewMockBlobStorageClient(logger)
	healthService := service.NewHealthDataService(layer, recorder, logger)
	reportService := service.NewReportService(layer, storage, pdf.NewPDFGenerator(logger), recorder, layer.Platform(), logger)

	doc, err := api.GetSwagger()
	require.NoError(t, err)
	validator, err := middleware.OpenAPIValidator(doc, logger)
	require.NoError(t, err)

	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ActorMiddleware())
	router.Use(middleware.RequestLoggingMiddleware(logger))
	router.Use(validator)
	api.RegisterHandlersWithOptions(router, handler.NewAPIHandler(
		handler.NewHealthHandler(healthService, loc, logger),
		handler.NewReportHandler(reportService, loc, logger),
		layer.Platform(), db, logger,
	), api.GinServerOptions{ErrorHandler: handler.ParameterErrorHandler})

	return &stack{router: router, storage: storage}
}

func (s *stack) request(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(middleware.ActorHeader, "integration-device")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

// rawRecord is a vendor record as the device bridge would serialize it
type rawRecord struct {
	at   time.Time
	body map[string]any
}

// fakeBridge emulates the companion app for both vendors. Records are
// filtered by the time window of each read, like the real SDKs do.
type fakeBridge struct {
	t *testing.T

	mu        sync.Mutex
	available bool
	records   map[string][]rawRecord
	failures  map[string]failure
	reads     map[string]int
	prompts   []json.RawMessage
}

type failure struct {
	status  int
	code    string
	message string
}

func newFakeBridge(t *testing.T) (*fakeBridge, string) {
	fb := &fakeBridge{
		t:         t,
		available: true,
		records:   make(map[string][]rawRecord),
		failures:  make(map[string]failure),
		reads:     make(map[string]int),
	}
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return fb, srv.URL
}

func (fb *fakeBridge) add(kind string, at time.Time, body map[string]any) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.records[kind] = append(fb.records[kind], rawRecord{at: at, body: body})
}

func (fb *fakeBridge) fail(kind string, f failure) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.failures[kind] = f
}

func (fb *fakeBridge) readCount(kind string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.reads[kind]
}

func (fb *fakeBridge) lastPrompt() json.RawMessage {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.prompts) == 0 {
		return nil
	}
	return fb.prompts[len(fb.prompts)-1]
}

func (fb *fakeBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	switch {
	case r.URL.Path == "/health-connect/initialize":
		writeJSON(w, map[string]bool{"initialized": fb.available})
	case r.URL.Path == "/healthkit/available":
		writeJSON(w, map[string]bool{"available": fb.available})
	case r.URL.Path == "/health-connect/permissions", r.URL.Path == "/healthkit/authorization":
		var body json.RawMessage
		assert.NoError(fb.t, json.NewDecoder(r.Body).Decode(&body))
		fb.prompts = append(fb.prompts, body)
		w.WriteHeader(http.StatusNoContent)
	case strings.HasPrefix(r.URL.Path, "/health-connect/records/"):
		kind := strings.TrimPrefix(r.URL.Path, "/health-connect/records/")
		var opts struct {
			TimeRangeFilter struct {
				StartTime string `json:"startTime"`
				EndTime   string `json:"endTime"`
			} `json:"timeRangeFilter"`
		}
		assert.NoError(fb.t, json.NewDecoder(r.Body).Decode(&opts))
		start, errStart := time.Parse(time.RFC3339Nano, opts.TimeRangeFilter.StartTime)
		end, errEnd := time.Parse(time.RFC3339Nano, opts.TimeRangeFilter.EndTime)
		assert.NoError(fb.t, errStart)
		assert.NoError(fb.t, errEnd)
		if fb.writeFailure(w, kind) {
			return
		}
		writeJSON(w, map[string]any{"records": fb.within(kind, start, end)})
	case strings.HasPrefix(r.URL.Path, "/healthkit/samples/"):
		kind := strings.TrimPrefix(r.URL.Path, "/healthkit/samples/")
		var opts struct {
			Filter struct {
				Date struct {
					StartDate time.Time `json:"startDate"`
					EndDate   time.Time `json:"endDate"`
				} `json:"date"`
			} `json:"filter"`
		}
		assert.NoError(fb.t, json.NewDecoder(r.Body).Decode(&opts))
		if fb.writeFailure(w, kind) {
			return
		}
		writeJSON(w, fb.within(kind, opts.Filter.Date.StartDate, opts.Filter.Date.EndDate))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (fb *fakeBridge) writeFailure(w http.ResponseWriter, kind string) bool {
	fb.reads[kind]++
	f, ok := fb.failures[kind]
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": f.code, "message": f.message})
	return true
}

func (fb *fakeBridge) within(kind string, start, end time.Time) []map[string]any {
	out := []map[string]any{}
	for _, rec := range fb.records[kind] {
		if !rec.at.Before(start) && !rec.at.After(end) {
			out = append(out, rec.body)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
