package service

import (
	"context"
	"time"

	"github.com/vcscsvcscs/healthlayer/internal/audit"
	"github.com/vcscsvcscs/healthlayer/internal/jsonutil"
	"github.com/vcscsvcscs/healthlayer/internal/provider"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
)

// debugPayloadLimit bounds result dumps in debug logs
const debugPayloadLimit = 2000

// HealthDataService exposes the health layer to the API with logging and an access audit trail
type HealthDataService struct {
	health   provider.HealthProvider
	recorder audit.Recorder
	logger   *zap.Logger
}

// NewHealthDataService creates a new HealthDataService. A nil recorder disables auditing.
func NewHealthDataService(health provider.HealthProvider, recorder audit.Recorder, logger *zap.Logger) *HealthDataService {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &HealthDataService{
		health:   health,
		recorder: recorder,
		logger:   logger,
	}
}

// record writes an audit entry. Audit failures are logged and never returned.
func (s *HealthDataService) record(ctx context.Context, actor string, op audit.Operation, metrics []model.Metric, r *model.DateRange, err error) {
	entry := audit.Entry{
		Actor:     actor,
		Operation: op,
		Metrics:   make([]string, len(metrics)),
		Outcome:   audit.OutcomeOK,
	}
	for i, m := range metrics {
		entry.Metrics[i] = string(m)
	}
	if r != nil {
		start, end := r.StartDate, r.EndDate
		entry.RangeStart, entry.RangeEnd = &start, &end
	}
	if err != nil {
		entry.Outcome = string(model.CodeOf(err))
	}

	if auditErr := s.recorder.Record(ctx, entry); auditErr != nil {
		s.logger.Warn("failed to record health access",
			zap.Error(auditErr),
			zap.String("operation", string(op)),
			zap.String("actor", actor),
		)
	}
}

// logResult logs the outcome of a read. NO_DATA is expected and logged at info.
func (s *HealthDataService) logResult(op audit.Operation, count int, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("operation", string(op)))
	if err == nil {
		s.logger.Info("health data read", append(fields, zap.Int("count", count))...)
		return
	}

	code := model.CodeOf(err)
	fields = append(fields, zap.String("code", string(code)), zap.Error(err))
	switch code {
	case model.ErrCodeNoData:
		s.logger.Info("no health data in range", fields...)
	case model.ErrCodeUnknown:
		s.logger.Error("health data read failed", fields...)
	default:
		s.logger.Warn("health data read failed", fields...)
	}
}

func (s *HealthDataService) debugPayload(msg string, v any) {
	if ce := s.logger.Check(zap.DebugLevel, msg); ce != nil {
		ce.Write(zap.String("payload", jsonutil.SafeStringify(v, debugPayloadLimit)))
	}
}

func rangeFields(r model.DateRange) []zap.Field {
	return []zap.Field{
		zap.Time("start_date", r.StartDate),
		zap.Time("end_date", r.EndDate),
	}
}

// EnsurePermissions prompts for the requested access
func (s *HealthDataService) EnsurePermissions(ctx context.Context, actor string, req model.PermissionRequest) (*model.PermissionResponse, error) {
	resp, err := s.health.EnsurePermissions(ctx, req)
	s.record(ctx, actor, audit.OperationEnsurePermissions, req.Requested(), nil, err)

	if err != nil {
		s.logger.Warn("permission request failed",
			zap.Error(err),
			zap.String("code", string(model.CodeOf(err))),
		)
		return nil, err
	}

	s.logger.Info("permissions requested",
		zap.String("status", string(resp.Status)),
		zap.Int("metrics", len(resp.PerMetric)),
	)
	return resp, nil
}

// GetPermissionStatus reports the best known permission state
func (s *HealthDataService) GetPermissionStatus(ctx context.Context, actor string, req model.PermissionRequest) (*model.PermissionResponse, error) {
	resp, err := s.health.GetPermissionStatus(ctx, req)
	s.record(ctx, actor, audit.OperationPermissionStatus, req.Requested(), nil, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// DailySteps reads step totals per local day
func (s *HealthDataService) DailySteps(ctx context.Context, actor string, r model.DateRange) ([]model.DailySteps, error) {
	days, err := s.health.ReadDailySteps(ctx, r)
	s.record(ctx, actor, audit.OperationReadDailySteps, []model.Metric{model.MetricSteps}, &r, err)
	s.logResult(audit.OperationReadDailySteps, len(days), err, rangeFields(r)...)
	if err != nil {
		return nil, err
	}
	s.debugPayload("daily steps", days)
	return days, nil
}

// DailyActivity reads active calories and distance per local day
func (s *HealthDataService) DailyActivity(ctx context.Context, actor string, r model.DateRange) ([]model.DailyActivitySummary, error) {
	days, err := s.health.ReadDailyActivity(ctx, r)
	s.record(ctx, actor, audit.OperationReadDailyActivity,
		[]model.Metric{model.MetricActiveCaloriesBurned, model.MetricDistance}, &r, err)
	s.logResult(audit.OperationReadDailyActivity, len(days), err, rangeFields(r)...)
	if err != nil {
		return nil, err
	}
	s.debugPayload("daily activity", days)
	return days, nil
}

func dayRange(day time.Time) *model.DateRange {
	return &model.DateRange{StartDate: day, EndDate: day}
}

// HourlySteps reads step totals for the 24 hours of day
func (s *HealthDataService) HourlySteps(ctx context.Context, actor string, day time.Time) ([]model.HourlySteps, error) {
	hours, err := s.health.ReadHourlySteps(ctx, day)
	s.record(ctx, actor, audit.OperationReadHourlySteps, []model.Metric{model.MetricSteps}, dayRange(day), err)
	s.logResult(audit.OperationReadHourlySteps, len(hours), err, zap.Time("day", day))
	if err != nil {
		return nil, err
	}
	return hours, nil
}

// HourlyActivity reads active calories and distance for the 24 hours of day
func (s *HealthDataService) HourlyActivity(ctx context.Context, actor string, day time.Time) ([]model.HourlyActivitySummary, error) {
	hours, err := s.health.ReadHourlyActivity(ctx, day)
	s.record(ctx, actor, audit.OperationReadHourlyActivity,
		[]model.Metric{model.MetricActiveCaloriesBurned, model.MetricDistance}, dayRange(day), err)
	s.logResult(audit.OperationReadHourlyActivity, len(hours), err, zap.Time("day", day))
	if err != nil {
		return nil, err
	}
	return hours, nil
}

// GlucoseSamples reads blood glucose samples in mg/dL
func (s *HealthDataService) GlucoseSamples(ctx context.Context, actor string, r model.DateRange) ([]model.GlucoseSample, error) {
	samples, err := s.health.ReadGlucoseSamples(ctx, r)
	s.record(ctx, actor, audit.OperationReadGlucose, []model.Metric{model.MetricBloodGlucose}, &r, err)
	s.logResult(audit.OperationReadGlucose, len(samples), err, rangeFields(r)...)
	if err != nil {
		return nil, err
	}
	s.debugPayload("glucose samples", samples)
	return samples, nil
}
