// Package provider defines the capability contract every vendor backend
// satisfies, and the bucketing helpers the backends share.
package provider

import (
	"context"
	"time"

	"github.com/vcscsvcscs/healthlayer/pkg/model"
)

// HealthProvider is the unified health-data contract of one vendor backend
type HealthProvider interface {
	// EnsurePermissions prompts for the requested access. An unavailable SDK
	// is reported as not_available per metric rather than as an error.
	EnsurePermissions(ctx context.Context, req model.PermissionRequest) (*model.PermissionResponse, error)
	// GetPermissionStatus is best effort and may always answer unknown.
	GetPermissionStatus(ctx context.Context, req model.PermissionRequest) (*model.PermissionResponse, error)
	ReadDailySteps(ctx context.Context, r model.DateRange) ([]model.DailySteps, error)
	ReadDailyActivity(ctx context.Context, r model.DateRange) ([]model.DailyActivitySummary, error)
	ReadHourlySteps(ctx context.Context, day time.Time) ([]model.HourlySteps, error)
	ReadHourlyActivity(ctx context.Context, day time.Time) ([]model.HourlyActivitySummary, error)
	ReadGlucoseSamples(ctx context.Context, r model.DateRange) ([]model.GlucoseSample, error)
}

// BuildPermissionResponse reports state for every requested metric
func BuildPermissionResponse(req model.PermissionRequest, state model.PermissionState) *model.PermissionResponse {
	perMetric := make(map[model.Metric]model.PermissionState)
	for _, m := range req.Requested() {
		perMetric[m] = state
	}
	return &model.PermissionResponse{
		Status:    model.AggregatePermissionStatus(perMetric),
		PerMetric: perMetric,
	}
}

// AuthorizationFailed classifies a failed authorization prompt. An
// unclassifiable failure at that point means the user said no.
func AuthorizationFailed(err error) *model.HealthError {
	he := model.Classify(err)
	if he.Code == model.ErrCodeUnknown {
		he.Code = model.ErrCodePermissionDenied
	}
	return he
}

// RecordTime picks the instant a raw record is bucketed by: start, else end
func RecordTime(start, end *time.Time) (time.Time, bool) {
	if start != nil && !start.IsZero() {
		return *start, true
	}
	if end != nil && !end.IsZero() {
		return *end, true
	}
	return time.Time{}, false
}
