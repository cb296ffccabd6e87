// Package healthkit implements the health provider contract on top of
// Apple HealthKit.
package healthkit

import (
	"context"
	"time"

	"github.com/vcscsvcscs/healthlayer/internal/provider"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var readTypes = map[model.Metric]TypeIdentifier{
	model.MetricSteps:                StepCount,
	model.MetricActiveCaloriesBurned: ActiveEnergyBurned,
	model.MetricDistance:             DistanceWalkingRunning,
	model.MetricBloodGlucose:         BloodGlucose,
}

// shareTypes holds the metrics the app may write; only steps are shared
var shareTypes = map[model.Metric]TypeIdentifier{
	model.MetricSteps: StepCount,
}

// Provider reads health data from HealthKit
type Provider struct {
	client Client
	loc    *time.Location
	logger *zap.Logger
}

// NewProvider creates a HealthKit provider bucketing in loc
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

func (p *Provider) available(ctx context.Context) bool {
	if p.client == nil {
		return false
	}
	ok, err := p.client.IsHealthDataAvailable(ctx)
	if err != nil {
		p.logger.Warn("healthkit availability check failed", zap.Error(err))
		return false
	}
	return ok
}

func (p *Provider) requireAvailable(ctx context.Context) error {
	if !p.available(ctx) {
		return model.NewHealthError(model.ErrCodeNotAvailable, "HealthKit not available")
	}
	return nil
}

// EnsurePermissions requests authorization for every requested metric
func (p *Provider) EnsurePermissions(ctx context.Context, req model.PermissionRequest) (*model.PermissionResponse, error) {
	if len(req.Requested()) == 0 {
		return provider.BuildPermissionResponse(req, model.PermissionUnknown), nil
	}
	if !p.available(ctx) {
		return provider.BuildPermissionResponse(req, model.PermissionNotAvailable), nil
	}

	auth := AuthorizationRequest{ToRead: []TypeIdentifier{}, ToShare: []TypeIdentifier{}}
	for _, m := range req.Requested() {
		if req[m].Read {
			auth.ToRead = append(auth.ToRead, readTypes[m])
		}
		if id, ok := shareTypes[m]; ok && req[m].Write {
			auth.ToShare = append(auth.ToShare, id)
		}
	}

	if len(auth.ToRead) == 0 && len(auth.ToShare) == 0 {
		return provider.BuildPermissionResponse(req, model.PermissionUnknown), nil
	}

	if err := p.client.RequestAuthorization(ctx, auth); err != nil {
		p.logger.Warn("healthkit authorization failed",
			zap.Error(err),
			zap.Int("read_types", len(auth.ToRead)),
			zap.Int("share_types", len(auth.ToShare)),
		)
		return nil, provider.AuthorizationFailed(err)
	}

	return provider.BuildPermissionResponse(req, model.PermissionGranted), nil
}

// GetPermissionStatus is best effort. HealthKit hides read authorization
// from apps, so an available store always answers unknown.
func (p *Provider) GetPermissionStatus(ctx context.Context, req model.PermissionRequest) (*model.PermissionResponse, error) {
	if len(req.Requested()) == 0 {
		return provider.BuildPermissionResponse(req, model.PermissionUnknown), nil
	}
	if !p.available(ctx) {
		return provider.BuildPermissionResponse(req, model.PermissionNotAvailable), nil
	}
	return provider.BuildPermissionResponse(req, model.PermissionUnknown), nil
}

func (p *Provider) query(ctx context.Context, identifier TypeIdentifier, window model.DateRange) ([]QuantitySample, error) {
	samples, err := p.client.QueryQuantitySamples(ctx, identifier, Within(window.StartDate, window.EndDate))
	if err != nil {
		p.logger.Error("healthkit query failed",
			zap.Error(err),
			zap.String("type_identifier", string(identifier)),
		)
		return nil, model.Classify(err)
	}
	return samples, nil
}

func addSteps(b *provider.Buckets, samples []QuantitySample) int {
	dropped := 0
	for _, s := range samples {
		at, ok := provider.RecordTime(s.StartDate, s.EndDate)
		count := s.Amount()
		if !ok || !b.Add(at, func(bk *provider.Bucket) { bk.Steps += count }) {
			dropped++
		}
	}
	return dropped
}

func addActivity(b *provider.Buckets, calories, distance []QuantitySample) int {
	dropped := 0
	for _, s := range calories {
		at, ok := provider.RecordTime(s.StartDate, s.EndDate)
		kcal := s.Amount()
		if !ok || !b.Add(at, func(bk *provider.Bucket) { bk.Calories += kcal }) {
			dropped++
		}
	}
	for _, s := range distance {
		at, ok := provider.RecordTime(s.StartDate, s.EndDate)
		meters := s.Amount()
		if !ok || !b.Add(at, func(bk *provider.Bucket) { bk.Distance += meters }) {
			dropped++
		}
	}
	return dropped
}

// ReadDailySteps sums step samples into local calendar days
func (p *Provider) ReadDailySteps(ctx context.Context, r model.DateRange) ([]model.DailySteps, error) {
	if err := p.requireAvailable(ctx); err != nil {
		return nil, err
	}

	buckets, window, err := provider.DayBuckets(r, p.loc)
	if err != nil {
		return nil, err
	}

	samples, err := p.query(ctx, StepCount, window)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, model.NewHealthError(model.ErrCodeNoData, "No step data available")
	}

	if dropped := addSteps(buckets, samples); dropped > 0 {
		p.logger.Debug("dropped step samples outside range", zap.Int("dropped", dropped))
	}
	return buckets.DailySteps(), nil
}

func (p *Provider) queryActivity(ctx context.Context, window model.DateRange) (calories, distance []QuantitySample, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		calories, err = p.query(gctx, ActiveEnergyBurned, window)
		return err
	})
	g.Go(func() error {
		var err error
		distance, err = p.query(gctx, DistanceWalkingRunning, window)
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

// ReadDailyActivity merges active energy and walking/running distance into local calendar days
func (p *Provider) ReadDailyActivity(ctx context.Context, r model.DateRange) ([]model.DailyActivitySummary, error) {
	if err := p.requireAvailable(ctx); err != nil {
		return nil, err
	}

	buckets, window, err := provider.DayBuckets(r, p.loc)
	if err != nil {
		return nil, err
	}

	calories, distance, err := p.queryActivity(ctx, window)
	if err != nil {
		return nil, err
	}

	if dropped := addActivity(buckets, calories, distance); dropped > 0 {
		p.logger.Debug("dropped activity samples outside range", zap.Int("dropped", dropped))
	}
	return buckets.DailyActivity(), nil
}

// ReadHourlySteps sums step samples into the 24 local hours of day
func (p *Provider) ReadHourlySteps(ctx context.Context, day time.Time) ([]model.HourlySteps, error) {
	if err := p.requireAvailable(ctx); err != nil {
		return nil, err
	}

	buckets, window := provider.HourBuckets(day, p.loc)

	samples, err := p.query(ctx, StepCount, window)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, model.NewHealthError(model.ErrCodeNoData, "No step data available")
	}

	addSteps(buckets, samples)
	return buckets.HourlySteps(), nil
}

// ReadHourlyActivity merges active energy and distance into the 24 local hours of day
func (p *Provider) ReadHourlyActivity(ctx context.Context, day time.Time) ([]model.HourlyActivitySummary, error) {
	if err := p.requireAvailable(ctx); err != nil {
		return nil, err
	}

	buckets, window := provider.HourBuckets(day, p.loc)

	calories, distance, err := p.queryActivity(ctx, window)
	if err != nil {
		return nil, err
	}

	addActivity(buckets, calories, distance)
	return buckets.HourlyActivity(), nil
}

// ReadGlucoseSamples returns one sample per blood glucose quantity sample, in mg/dL
func (p *Provider) ReadGlucoseSamples(ctx context.Context, r model.DateRange) ([]model.GlucoseSample, error) {
	if err := p.requireAvailable(ctx); err != nil {
		return nil, err
	}

	_, window, err := provider.DayBuckets(r, p.loc)
	if err != nil {
		return nil, err
	}

	raw, err := p.query(ctx, BloodGlucose, window)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, model.NewHealthError(model.ErrCodeNoData, "No glucose data available")
	}

	var samples provider.GlucoseSamples
	for i, s := range raw {
		at, ok := provider.RecordTime(s.StartDate, s.EndDate)
		if !ok {
			continue
		}
		samples.Add(i, s.UUID, at, s.Amount(), model.ParseGlucoseUnit(s.UnitString()), s.SourceName)
	}

	return samples.Sorted(), nil
}
