package bridge

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vcscsvcscs/healthlayer/internal/provider/healthconnect"
	"go.uber.org/zap"
)

// HealthConnectClient reaches Health Connect through the bridge
type HealthConnectClient struct {
	t *transport
}

// NewHealthConnectClient creates a Health Connect bridge client
func NewHealthConnectClient(opts Options, logger *zap.Logger) (*HealthConnectClient, error) {
	t, err := newTransport(opts, logger)
	if err != nil {
		return nil, err
	}
	return &HealthConnectClient{t: t}, nil
}

var _ healthconnect.Client = (*HealthConnectClient)(nil)

func (c *HealthConnectClient) Initialize(ctx context.Context) (bool, error) {
	var out struct {
		Initialized bool `json:"initialized"`
	}
	if err := c.t.do(ctx, http.MethodPost, "/health-connect/initialize", nil, &out); err != nil {
		return false, err
	}
	return out.Initialized, nil
}

func (c *HealthConnectClient) RequestPermission(ctx context.Context, permissions []healthconnect.Permission) error {
	in := struct {
		Permissions []healthconnect.Permission `json:"permissions"`
	}{permissions}
	return c.t.do(ctx, http.MethodPost, "/health-connect/permissions", in, nil)
}

func (c *HealthConnectClient) ReadRecords(ctx context.Context, recordType healthconnect.RecordType, opts healthconnect.ReadRecordsOptions) (*healthconnect.ReadRecordsResult, error) {
	var out healthconnect.ReadRecordsResult
	path := "/health-connect/records/" + url.PathEscape(string(recordType))
	if err := c.t.do(ctx, http.MethodPost, path, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
