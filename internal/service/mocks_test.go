package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vcscsvcscs/healthlayer/internal/audit"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
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

// recordingAuditor keeps entries in memory
type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
	err     error
}

func (r *recordingAuditor) Record(_ context.Context, entry audit.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return r.err
}

func (r *recordingAuditor) Entries() []audit.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]audit.Entry(nil), r.entries...)
}
