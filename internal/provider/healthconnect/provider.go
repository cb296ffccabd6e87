// Package healthconnect implements the health provider contract on top of
// Android Health Connect.
package healthconnect

import (
	"context"
	"time"

	"github.com/vcscsvcscs/healthlayer/internal/provider"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// recordTypes maps each metric onto the record type that carries it
var recordTypes = map[model.Metric]RecordType{
	model.MetricSteps:                RecordSteps,
	model.MetricActiveCaloriesBurned: RecordActiveCaloriesBurned,
	model.MetricDistance:             RecordDistance,
	model.MetricBloodGlucose:         RecordBloodGlucose,
}

// Provider reads health data from Health Connect
type Provider struct {
	client Client
	loc    *time.Location
	logger *zap.Logger
}

// NewProvider creates a Health Connect provider bucketing in loc
func NewProvider(client Client, loc *time.Location, logger *zap.Logger) *Provider {
	if loc == nil {
		loc = time.Local
	}
	return &Provider{
		client: client,
		loc:    loc,
		logger: logger,
	}
}

var _ provider.HealthProvider = (*Provider)(nil)

// initialized reports whether Health Connect is usable. Initialization
// errors count as unavailable.
func (p *Provider) initialized(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	ok, err := p.client.Initialize(ctx)
	if err != nil {
		p.logger.Warn("health connect initialization failed", zap.Error(err))
		return false
	}
	return ok
}

func (p *Provider) requireInitialized(ctx context.Context) error {
	if !p.initialized(ctx) {
		return model.NewHealthError(model.ErrCodeNotAvailable, "Health Connect not available")
	}
	return nil
}

// EnsurePermissions requests read/write access for every requested metric
func (p *Provider) EnsurePermissions(ctx context.Context, req model.PermissionRequest) (*model.PermissionResponse, error) {
	if len(req.Requested()) == 0 {
		return provider.BuildPermissionResponse(req, model.PermissionUnknown), nil
	}
	if !p.initialized(ctx) {
		return provider.BuildPermissionResponse(req, model.PermissionNotAvailable), nil
	}

	var permissions []Permission
	for _, m := range req.Requested() {
		recordType := recordTypes[m]
		if req[m].Read {
			permissions = append(permissions, Permission{AccessType: AccessRead, RecordType: recordType})
		}
		if req[m].Write {
			permissions = append(permissions, Permission{AccessType: AccessWrite, RecordType: recordType})
		}
	}

	if len(permissions) == 0 {
		return provider.BuildPermissionResponse(req, model.PermissionUnknown), nil
	}

	if err := p.client.RequestPermission(ctx, permissions); err != nil {
		p.logger.Warn("health connect permission request failed",
			zap.Error(err),
			zap.Int("permission_count", len(permissions)),
		)
		return nil, provider.AuthorizationFailed(err)
	}

	return provider.BuildPermissionResponse(req, model.PermissionGranted), nil
}

// GetPermissionStatus is best effort: Health Connect's grant query differs
// across SDK versions, so a usable SDK always answers unknown.
func (p *Provider) GetPermissionStatus(ctx context.Context, req model.PermissionRequest) (*model.PermissionResponse, error) {
	if len(req.Requested()) == 0 {
		return provider.BuildPermissionResponse(req, model.PermissionUnknown), nil
	}
	if !p.initialized(ctx) {
		return provider.BuildPermissionResponse(req, model.PermissionNotAvailable), nil
	}
	return provider.BuildPermissionResponse(req, model.PermissionUnknown), nil
}

func (p *Provider) readRecords(ctx context.Context, recordType RecordType, window model.DateRange) ([]Record, error) {
	result, err := p.client.ReadRecords(ctx, recordType, Between(window.StartDate, window.EndDate))
	if err != nil {
		p.logger.Error("health connect read failed",
			zap.Error(err),
			zap.String("record_type", string(recordType)),
		)
		return nil, model.Classify(err)
	}
	if result == nil {
		return nil, nil
	}
	return result.Records, nil
}

// addSteps sums step records into b and reports how many were dropped
func addSteps(b *provider.Buckets, records []Record) int {
	dropped := 0
	for _, r := range records {
		at, ok := provider.RecordTime(r.StartTime, r.EndTime)
		if !ok {
			dropped++
			continue
		}
		count := r.StepCount()
		if !b.Add(at, func(bk *provider.Bucket) { bk.Steps += count }) {
			dropped++
		}
	}
	return dropped
}

func addActivity(b *provider.Buckets, calories, distance []Record) int {
	dropped := 0
	for _, r := range calories {
		at, ok := provider.RecordTime(r.StartTime, r.EndTime)
		kcal := r.Kilocalories()
		if !ok || !b.Add(at, func(bk *provider.Bucket) { bk.Calories += kcal }) {
			dropped++
		}
	}
	for _, r := range distance {
		at, ok := provider.RecordTime(r.StartTime, r.EndTime)
		meters := r.Meters()
		if !ok || !b.Add(at, func(bk *provider.Bucket) { bk.Distance += meters }) {
			dropped++
		}
	}
	return dropped
}

// ReadDailySteps sums step records into local calendar days
func (p *Provider) ReadDailySteps(ctx context.Context, r model.DateRange) ([]model.DailySteps, error) {
	if err := p.requireInitialized(ctx); err != nil {
		return nil, err
	}

	buckets, window, err := provider.DayBuckets(r, p.loc)
	if err != nil {
		return nil, err
	}

	records, err := p.readRecords(ctx, RecordSteps, window)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, model.NewHealthError(model.ErrCodeNoData, "No step data available")
	}

	if dropped := addSteps(buckets, records); dropped > 0 {
		p.logger.Debug("dropped step records outside range", zap.Int("dropped", dropped))
	}
	return buckets.DailySteps(), nil
}

// readActivity queries calories and distance concurrently over window
func (p *Provider) readActivity(ctx context.Context, window model.DateRange) (calories, distance []Record, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		calories, err = p.readRecords(gctx, RecordActiveCaloriesBurned, window)
		return err
	})
	g.Go(func() error {
		var err error
		distance, err = p.readRecords(gctx, RecordDistance, window)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if len(calories) == 0 && len(distance) == 0 {
		return nil, nil, model.NewHealthError(model.ErrCodeNoData, "No activity data available")
	}
	return calories, distance, nil
}

// ReadDailyActivity merges active calories and distance into local calendar days
func (p *Provider) ReadDailyActivity(ctx context.Context, r model.DateRange) ([]model.DailyActivitySummary, error) {
	if err := p.requireInitialized(ctx); err != nil {
		return nil, err
	}

	buckets, window, err := provider.DayBuckets(r, p.loc)
	if err != nil {
		return nil, err
	}

	calories, distance, err := p.readActivity(ctx, window)
	if err != nil {
		return nil, err
	}

	if dropped := addActivity(buckets, calories, distance); dropped > 0 {
		p.logger.Debug("dropped activity records outside range", zap.Int("dropped", dropped))
	}
	return buckets.DailyActivity(), nil
}

// ReadHourlySteps sums step records into the 24 local hours of day
func (p *Provider) ReadHourlySteps(ctx context.Context, day time.Time) ([]model.HourlySteps, error) {
	if err := p.requireInitialized(ctx); err != nil {
		return nil, err
	}

	buckets, window := provider.HourBuckets(day, p.loc)

	records, err := p.readRecords(ctx, RecordSteps, window)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, model.NewHealthError(model.ErrCodeNoData, "No step data available")
	}

	addSteps(buckets, records)
	return buckets.HourlySteps(), nil
}

// ReadHourlyActivity merges active calories and distance into the 24 local hours of day
func (p *Provider) ReadHourlyActivity(ctx context.Context, day time.Time) ([]model.HourlyActivitySummary, error) {
	if err := p.requireInitialized(ctx); err != nil {
		return nil, err
	}

	buckets, window := provider.HourBuckets(day, p.loc)

	calories, distance, err := p.readActivity(ctx, window)
	if err != nil {
		return nil, err
	}

	addActivity(buckets, calories, distance)
	return buckets.HourlyActivity(), nil
}

// ReadGlucoseSamples returns one sample per blood glucose record, in mg/dL
func (p *Provider) ReadGlucoseSamples(ctx context.Context, r model.DateRange) ([]model.GlucoseSample, error) {
	if err := p.requireInitialized(ctx); err != nil {
		return nil, err
	}

	_, window, err := provider.DayBuckets(r, p.loc)
	if err != nil {
		return nil, err
	}

	records, err := p.readRecords(ctx, RecordBloodGlucose, window)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, model.NewHealthError(model.ErrCodeNoData, "No glucose data available")
	}

	var samples provider.GlucoseSamples
	for i, rec := range records {
		at, ok := provider.RecordTime(rec.Time, rec.StartTime)
		if !ok {
			continue
		}
		value, unit := glucoseReading(rec)
		var id, source string
		if rec.Metadata != nil {
			id, source = rec.Metadata.ID, rec.Metadata.DataOrigin
		}
		samples.Add(i, id, at, value, unit, source)
	}

	return samples.Sorted(), nil
}

// glucoseReading prefers the structured level, then a raw value+unit pair
func glucoseReading(r Record) (float64, model.GlucoseUnit) {
	if r.Level != nil {
		if r.Level.InMilligramsPerDeciliter != nil {
			return *r.Level.InMilligramsPerDeciliter, model.GlucoseUnitMgdl
		}
		if r.Level.InMillimolesPerLiter != nil {
			return *r.Level.InMillimolesPerLiter, model.GlucoseUnitMmolL
		}
	}
	if r.Value != nil {
		return *r.Value, model.ParseGlucoseUnit(r.Unit)
	}
	return 0, model.GlucoseUnitMgdl
}
