// Package bridge talks to the companion app that exposes the phone's health
// SDKs as JSON over HTTP.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of a failed response is read
const maxErrorBody = 64 << 10

// Error is a non-2xx answer from the bridge
type Error struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("bridge returned HTTP %d", e.StatusCode)
}

// Code returns the vendor error code reported by the bridge, if any
func (e *Error) Code() string {
	return e.ErrorCode
}

// Options configures a bridge client
type Options struct {
	BaseURL string
	// Timeout bounds each HTTP call; zero means 30s
	Timeout    time.Duration
	HTTPClient *http.Client
}

type transport struct {
	base   *url.URL
	client *http.Client
	logger *zap.Logger
}

func newTransport(opts Options, logger *zap.Logger) (*transport, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("bridge base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid bridge base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid bridge base URL %q: scheme must be http or https", opts.BaseURL)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &transport{base: base, client: client, logger: logger}, nil
}

// do sends in as the JSON body (when non-nil) and decodes the answer into out (when non-nil)
func (t *transport) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding bridge request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	endpoint := t.base.String() + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building bridge request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Error("bridge call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("calling bridge %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	t.logger.Debug("bridge call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding bridge response from %s: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	bridgeErr := &Error{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return bridgeErr
	}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		bridgeErr.Message = strings.TrimSpace(string(raw))
		return bridgeErr
	}
	bridgeErr.ErrorCode = payload.Code
	bridgeErr.Message = payload.Message
	return bridgeErr
}
