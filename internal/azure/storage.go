package azure

import (
	"context"
	"errors"
)

// ErrReportNotFound is returned when a requested report blob does not exist
var ErrReportNotFound = errors.New("report not found")

// ReportStorage stores exported health reports.
// The interface lets tests run against the in-memory implementation.
type ReportStorage interface {
	UploadReport(ctx context.Context, name string, data []byte) (string, error)
	DownloadReport(ctx context.Context, name string) ([]byte, error)
}

var (
	_ ReportStorage = (*BlobStorageClient)(nil)
	_ ReportStorage = (*MockBlobStorageClient)(nil)
)

// reportBlobName maps a report name onto its blob path
func reportBlobName(name string) string {
	return "reports/" + name
}
