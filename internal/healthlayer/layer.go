// Package healthlayer is the single entry point to health data. It picks the
// provider matching the configured runtime platform and forwards every call
// to it.
package healthlayer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vcscsvcscs/healthlayer/internal/provider"
	"github.com/vcscsvcscs/healthlayer/internal/provider/healthconnect"
	"github.com/vcscsvcscs/healthlayer/internal/provider/healthkit"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
)

const (
	OSAndroid = "android"
	OSiOS     = "ios"
)

// Runtime describes the platform the layer runs against
type Runtime struct {
	OS string
}

// Backends holds the vendor clients and the time zone used for bucketing.
// A nil client makes its provider report not available.
type Backends struct {
	HealthConnect healthconnect.Client
	HealthKit     healthkit.Client
	Location      *time.Location
}

// Select returns the provider for rt. It performs no I/O.
func Select(rt Runtime, backends Backends, logger *zap.Logger) (provider.HealthProvider, error) {
	switch strings.ToLower(strings.TrimSpace(rt.OS)) {
	case OSiOS:
		return healthkit.NewProvider(backends.HealthKit, backends.Location, logger.Named("healthkit")), nil
	case OSAndroid:
		return healthconnect.NewProvider(backends.HealthConnect, backends.Location, logger.Named("healthconnect")), nil
	default:
		return nil, model.NewHealthError(model.ErrCodeNotAvailable, "Health platform not supported")
	}
}

// Layer implements provider.HealthProvider by delegating to the provider
// selected for its runtime. The selection, including a failed one, is made
// once and reused for the lifetime of the Layer.
type Layer struct {
	runtime  Runtime
	backends Backends
	logger   *zap.Logger

	once     sync.Once
	resolved provider.HealthProvider
	err      error
}

// New creates a Layer for rt
func New(rt Runtime, backends Backends, logger *zap.Logger) *Layer {
	return &Layer{
		runtime:  rt,
		backends: backends,
		logger:   logger,
	}
}

var _ provider.HealthProvider = (*Layer)(nil)

func (l *Layer) resolve() (provider.HealthProvider, error) {
	l.once.Do(func() {
		l.resolved, l.err = Select(l.runtime, l.backends, l.logger)
		if l.err != nil {
			l.logger.Warn("no health provider for platform", zap.String("os", l.runtime.OS))
			return
		}
		l.logger.Info("health provider selected", zap.String("os", l.runtime.OS))
	})
	return l.resolved, l.err
}

// Platform returns the configured runtime OS
func (l *Layer) Platform() string {
	return l.runtime.OS
}

func (l *Layer) EnsurePermissions(ctx context.Context, req model.PermissionRequest) (*model.PermissionResponse, error) {
	p, err := l.resolve()
	if err != nil {
		return nil, err
	}
	return p.EnsurePermissions(ctx, req)
}

func (l *Layer) GetPermissionStatus(ctx context.Context, req model.PermissionRequest) (*model.PermissionResponse, error) {
	p, err := l.resolve()
	if err != nil {
		return nil, err
	}
	return p.GetPermissionStatus(ctx, req)
}

func (l *Layer) ReadDailySteps(ctx context.Context, r model.DateRange) ([]model.DailySteps, error) {
	p, err := l.resolve()
	if err != nil {
		return nil, err
	}
	return p.ReadDailySteps(ctx, r)
}

func (l *Layer) ReadDailyActivity(ctx context.Context, r model.DateRange) ([]model.DailyActivitySummary, error) {
	p, err := l.resolve()
	if err != nil {
		return nil, err
	}
	return p.ReadDailyActivity(ctx, r)
}

func (l *Layer) ReadHourlySteps(ctx context.Context, day time.Time) ([]model.HourlySteps, error) {
	p, err := l.resolve()
	if err != nil {
		return nil, err
	}
	return p.ReadHourlySteps(ctx, day)
}

func (l *Layer) ReadHourlyActivity(ctx context.Context, day time.Time) ([]model.HourlyActivitySummary, error) {
	p, err := l.resolve()
	if err != nil {
		return nil, err
	}
	return p.ReadHourlyActivity(ctx, day)
}

func (l *Layer) ReadGlucoseSamples(ctx context.Context, r model.DateRange) ([]model.GlucoseSample, error) {
	p, err := l.resolve()
	if err != nil {
		return nil, err
	}
	return p.ReadGlucoseSamples(ctx, r)
}
