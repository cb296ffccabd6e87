package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/vcscsvcscs/healthlayer/internal/audit"
	"github.com/vcscsvcscs/healthlayer/internal/azure"
	"github.com/vcscsvcscs/healthlayer/internal/pdf"
	"github.com/vcscsvcscs/healthlayer/internal/provider"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidReportName is returned for names that could not have been issued by GenerateReport
var ErrInvalidReportName = errors.New("invalid report name")

var reportNamePattern = regexp.MustCompile(`^activity_\d{8}_\d{8}_[0-9a-f-]{36}\.pdf$`)

// ReportInfo describes a stored report
type ReportInfo struct {
	Name     string          `json:"name"`
	BlobPath string          `json:"blob_path"`
	Size     int             `json:"size"`
	Range    model.DateRange `json:"range"`
}

// ReportService exports health data as PDF reports
type ReportService struct {
	health   provider.HealthProvider
	storage  azure.ReportStorage
	pdfGen   *pdf.PDFGenerator
	recorder audit.Recorder
	platform string
	logger   *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	health provider.HealthProvider,
	storage azure.ReportStorage,
	pdfGen *pdf.PDFGenerator,
	recorder audit.Recorder,
	platform string,
	logger *zap.Logger,
) *ReportService {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &ReportService{
		health:   health,
		storage:  storage,
		pdfGen:   pdfGen,
		recorder: recorder,
		platform: platform,
		logger:   logger,
	}
}

// section runs read and treats NO_DATA as an empty section
func section[T any](ctx context.Context, read func(context.Context, model.DateRange) ([]T, error), r model.DateRange, out *[]T) func() error {
	return func() error {
		data, err := read(ctx, r)
		if err != nil {
			if model.CodeOf(err) == model.ErrCodeNoData {
				*out = []T{}
				return nil
			}
			return err
		}
		*out = data
		return nil
	}
}

// GenerateReport reads steps, activity and glucose for r, renders them and stores the PDF
func (s *ReportService) GenerateReport(ctx context.Context, actor string, r model.DateRange) (*ReportInfo, error) {
	s.logger.Info("generating health report",
		zap.Time("start_date", r.StartDate),
		zap.Time("end_date", r.EndDate),
	)

	data := &pdf.ReportData{Platform: s.platform, Period: r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(section(gctx, s.health.ReadDailySteps, r, &data.Steps))
	g.Go(section(gctx, s.health.ReadDailyActivity, r, &data.Activity))
	g.Go(section(gctx, s.health.ReadGlucoseSamples, r, &data.Glucose))
	err := g.Wait()

	s.recordExport(ctx, actor, r, err)
	if err != nil {
		s.logger.Warn("failed to read health data for report",
			zap.Error(err),
			zap.String("code", string(model.CodeOf(err))),
		)
		return nil, err
	}

	pdfBytes, err := s.pdfGen.Generate(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	name := fmt.Sprintf("activity_%s_%s_%s.pdf",
		r.StartDate.Format("20060102"), r.EndDate.Format("20060102"), uuid.New().String())

	blobPath, err := s.storage.UploadReport(ctx, name, pdfBytes)
	if err != nil {
		s.logger.Error("failed to upload report",
			zap.Error(err),
			zap.String("name", name),
		)
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}

	s.logger.Info("health report generated successfully",
		zap.String("name", name),
		zap.String("blob_path", blobPath),
		zap.Int("size_bytes", len(pdfBytes)),
	)

	return &ReportInfo{
		Name:     name,
		BlobPath: blobPath,
		Size:     len(pdfBytes),
		Range:    r,
	}, nil
}

func (s *ReportService) recordExport(ctx context.Context, actor string, r model.DateRange, err error) {
	start, end := r.StartDate, r.EndDate
	entry := audit.Entry{
		Actor:     actor,
		Operation: audit.OperationExportReport,
		Metrics: []string{
			string(model.MetricSteps),
			string(model.MetricActiveCaloriesBurned),
			string(model.MetricDistance),
			string(model.MetricBloodGlucose),
		},
		RangeStart: &start,
		RangeEnd:   &end,
		Outcome:    audit.OutcomeOK,
		Timestamp:  time.Now(),
	}
	if err != nil {
		entry.Outcome = string(model.CodeOf(err))
	}
	if auditErr := s.recorder.Record(ctx, entry); auditErr != nil {
		s.logger.Warn("failed to record report export", zap.Error(auditErr))
	}
}

// GetReport returns the PDF bytes of a previously generated report
func (s *ReportService) GetReport(ctx context.Context, name string) ([]byte, error) {
	if !reportNamePattern.MatchString(name) {
		return nil, ErrInvalidReportName
	}

	data, err := s.storage.DownloadReport(ctx, name)
	if err != nil {
		if !errors.Is(err, azure.ErrReportNotFound) {
			s.logger.Error("failed to download report",
				zap.Error(err),
				zap.String("name", name),
			)
		}
		return nil, err
	}

	return data, nil
}
