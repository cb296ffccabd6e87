package bridge

import (
	"context"
	"net/http"
	"net/url"

	"github.com/vcscsvcscs/healthlayer/internal/provider/healthkit"
	"go.uber.org/zap"
)

// HealthKitClient reaches HealthKit through the bridge
type HealthKitClient struct {
	t *transport
}

// NewHealthKitClient creates a HealthKit bridge client
func NewHealthKitClient(opts Options, logger *zap.Logger) (*HealthKitClient, error) {
	t, err := newTransport(opts, logger)
	if err != nil {
		return nil, err
	}
	return &HealthKitClient{t: t}, nil
}

var _ healthkit.Client = (*HealthKitClient)(nil)

func (c *HealthKitClient) IsHealthDataAvailable(ctx context.Context) (bool, error) {
	var out struct {
		Available bool `json:"available"`
	}
	if err := c.t.do(ctx, http.MethodGet, "/healthkit/available", nil, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

func (c *HealthKitClient) RequestAuthorization(ctx context.Context, req healthkit.AuthorizationRequest) error {
	return c.t.do(ctx, http.MethodPost, "/healthkit/authorization", req, nil)
}

func (c *HealthKitClient) QueryQuantitySamples(ctx context.Context, identifier healthkit.TypeIdentifier, opts healthkit.QueryOptions) ([]healthkit.QuantitySample, error) {
	var out []healthkit.QuantitySample
	path := "/healthkit/samples/" + url.PathEscape(string(identifier))
	if err := c.t.do(ctx, http.MethodPost, path, opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}
