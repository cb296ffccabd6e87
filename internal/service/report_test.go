package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vcscsvcscs/healthlayer/internal/audit"
	"github.com/vcscsvcscs/healthlayer/internal/azure"
	"github.com/vcscsvcscs/healthlayer/internal/pdf"
	"github.com/vcscsvcscs/healthlayer/pkg/model"
	"go.uber.org/zap"
)

func newReportService(health *MockHealthProvider, auditor audit.Recorder) (*ReportService, *azure.MockBlobStorageClient) {
	logger := zap.NewNop()
	storage := azure.NewMockBlobStorageClient(logger)
	return NewReportService(health, storage, pdf.NewPDFGenerator(logger), auditor, "android", logger), storage
}

func noData() error {
	return model.NewHealthError(model.ErrCodeNoData, "No data in range")
}

func TestReportService_GenerateReport_Success(t *testing.T) {
	health := new(MockHealthProvider)
	auditor := &recordingAuditor{}
	svc, storage := newReportService(health, auditor)
	r := testRange()

	health.On("ReadDailySteps", mock.Anything, r).Return([]model.DailySteps{{Date: "2024-03-04", Steps: 5000}}, nil)
	health.On("ReadDailyActivity", mock.Anything, r).Return([]model.DailyActivitySummary{{Date: "2024-03-04", ActiveCaloriesBurned: 300, Distance: 4200}}, nil)
	health.On("ReadGlucoseSamples", mock.Anything, r).Return(nil, noData())

	info, err := svc.GenerateReport(context.Background(), "device-1", r)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(info.Name, "activity_20240304_20240306_"))
	assert.True(t, reportNamePattern.MatchString(info.Name))
	assert.Equal(t, "reports/"+info.Name, info.BlobPath)
	assert.Greater(t, info.Size, 0)
	assert.Equal(t, []string{info.BlobPath}, storage.ListBlobs())

	data, err := svc.GetReport(context.Background(), info.Name)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(data[:4]))
	assert.Len(t, data, info.Size)

	entries := auditor.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OperationExportReport, entries[0].Operation)
	assert.Equal(t, audit.OutcomeOK, entries[0].Outcome)
}

func TestReportService_GenerateReport_AllSectionsEmpty(t *testing.T) {
	health := new(MockHealthProvider)
	svc, _ := newReportService(health, nil)

	health.On("ReadDailySteps", mock.Anything, mock.Anything).Return(nil, noData())
	health.On("ReadDailyActivity", mock.Anything, mock.Anything).Return(nil, noData())
	health.On("ReadGlucoseSamples", mock.Anything, mock.Anything).Return(nil, noData())

	info, err := svc.GenerateReport(context.Background(), "device-1", testRange())

	require.NoError(t, err)
	assert.Greater(t, info.Size, 0)
}

func TestReportService_GenerateReport_ReadFailureAborts(t *testing.T) {
	health := new(MockHealthProvider)
	auditor := &recordingAuditor{}
	svc, storage := newReportService(health, auditor)

	denied := model.NewHealthError(model.ErrCodePermissionDenied, "denied")
	health.On("ReadDailySteps", mock.Anything, mock.Anything).Return(nil, denied)
	health.On("ReadDailyActivity", mock.Anything, mock.Anything).Return([]model.DailyActivitySummary{}, nil)
	health.On("ReadGlucoseSamples", mock.Anything, mock.Anything).Return(nil, noData())

	info, err := svc.GenerateReport(context.Background(), "device-1", testRange())

	assert.Nil(t, info)
	assert.Equal(t, model.ErrCodePermissionDenied, model.CodeOf(err))
	assert.Empty(t, storage.ListBlobs())
	assert.Equal(t, "PERMISSION_DENIED", auditor.Entries()[0].Outcome)
}

type failingStorage struct{}

func (failingStorage) UploadReport(context.Context, string, []byte) (string, error) {
	return "", errors.New("storage unavailable")
}

func (failingStorage) DownloadReport(context.Context, string) ([]byte, error) {
	return nil, errors.New("storage unavailable")
}

func TestReportService_GenerateReport_UploadFailure(t *testing.T) {
	health := new(MockHealthProvider)
	logger := zap.NewNop()
	svc := NewReportService(health, failingStorage{}, pdf.NewPDFGenerator(logger), nil, "ios", logger)

	health.On("ReadDailySteps", mock.Anything, mock.Anything).Return([]model.DailySteps{}, nil)
	health.On("ReadDailyActivity", mock.Anything, mock.Anything).Return([]model.DailyActivitySummary{}, nil)
	health.On("ReadGlucoseSamples", mock.Anything, mock.Anything).Return([]model.GlucoseSample{}, nil)

	_, err := svc.GenerateReport(context.Background(), "device-1", testRange())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to upload report")
}

func TestReportService_GetReport_RejectsBadNames(t *testing.T) {
	svc, _ := newReportService(new(MockHealthProvider), nil)

	names := []string{
		"",
		"../secrets.pdf",
		"activity_20240304_20240306_../../x.pdf",
		"report.pdf",
		"activity_20240304_20240306_0b7f6f2e-3c4d-4a8e-9f21-6f1f6c0a9b11.txt",
	}
	for _, name := range names {
		_, err := svc.GetReport(context.Background(), name)
		assert.ErrorIs(t, err, ErrInvalidReportName, name)
	}
}

func TestReportService_GetReport_NotFound(t *testing.T) {
	svc, _ := newReportService(new(MockHealthProvider), nil)

	_, err := svc.GetReport(context.Background(), "activity_20240304_20240306_0b7f6f2e-3c4d-4a8e-9f21-6f1f6c0a9b11.pdf")

	assert.ErrorIs(t, err, azure.ErrReportNotFound)
}
