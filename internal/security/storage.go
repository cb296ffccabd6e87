package security

import (
	"context"
	"fmt"

	"github.com/vcscsvcscs/healthlayer/internal/azure"
	"go.uber.org/zap"
)

// SealedStorage encrypts reports before they reach the wrapped storage and
// decrypts them on the way back. Callers only ever see plaintext PDFs.
type SealedStorage struct {
	inner  azure.ReportStorage
	enc    *Encryptor
	logger *zap.Logger
}

// NewSealedStorage wraps inner with report encryption
func NewSealedStorage(inner azure.ReportStorage, enc *Encryptor, logger *zap.Logger) *SealedStorage {
	return &SealedStorage{
		inner:  inner,
		enc:    enc,
		logger: logger,
	}
}

var _ azure.ReportStorage = (*SealedStorage)(nil)

// UploadReport seals data and stores it under name
func (s *SealedStorage) UploadReport(ctx context.Context, name string, data []byte) (string, error) {
	sealed, err := s.enc.Seal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt report: %w", err)
	}

	s.logger.Debug("report sealed",
		zap.String("name", name),
		zap.Int("plain_bytes", len(data)),
		zap.Int("sealed_bytes", len(sealed)),
	)

	return s.inner.UploadReport(ctx, name, sealed)
}

// DownloadReport fetches and opens the report stored under name
func (s *SealedStorage) DownloadReport(ctx context.Context, name string) ([]byte, error) {
	sealed, err := s.inner.DownloadReport(ctx, name)
	if err != nil {
		return nil, err
	}

	data, err := s.enc.Open(sealed)
	if err != nil {
		s.logger.Error("failed to decrypt report", zap.Error(err), zap.String("name", name))
		return nil, fmt.Errorf("failed to decrypt report %s: %w", name, err)
	}
	return data, nil
}
