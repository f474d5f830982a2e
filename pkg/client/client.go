// Package client provides a typed HTTP client SDK for the driver-capture
// local API. It is used by launchers and integration tests.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/oscarchatwin1/microsearch-driver-capture/pkg/types"
)

const (
	defaultTimeout = 30 * time.Second

	samplesPath    = "/capture/v1/samples"
	countsPath     = "/capture/v1/samples/counts"
	syncRunPath    = "/capture/v1/sync/run"
	syncStatusPath = "/capture/v1/sync/status"
	lookupPath     = "/capture/v1/lookup"
)

// Config holds client configuration.
type Config struct {
	// BaseURL is the root URL of the capture API (for example:
	// http://localhost:8470).
	BaseURL string
	// Timeout is the per-request timeout. Defaults to 30s.
	Timeout time.Duration
	// HTTPClient optionally replaces the default http.Client.
	HTTPClient *http.Client
}

// Client is the typed HTTP SDK for the capture API.
type Client struct {
	baseURL string
	client  *http.Client
}

// APIError is a non-2xx response decoded from the API problem body.
type APIError struct {
	StatusCode int
	Problem    types.Problem
}

func (e *APIError) Error() string {
	if len(e.Problem.Violations) > 0 {
		return fmt.Sprintf("capture API %d: %s (%s)", e.StatusCode, e.Problem.Detail, strings.Join(e.Problem.Violations, "; "))
	}
	return fmt.Sprintf("capture API %d: %s", e.StatusCode, e.Problem.Detail)
}

// ListSamplesOptions configures sample listing.
type ListSamplesOptions struct {
	Status string
	Limit  int
}

// New creates a new capture client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{baseURL: baseURL, client: httpClient}, nil
}

// ListSamples retrieves samples newest-first.
func (c *Client) ListSamples(ctx context.Context, opts ListSamplesOptions) (*types.SampleList, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := samplesPath
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out types.SampleList
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSample retrieves one sample by ID.
func (c *Client) GetSample(ctx context.Context, id string) (*types.Sample, error) {
	var out types.Sample
	if err := c.do(ctx, http.MethodGet, samplesPath+"/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSample submits a candidate record.
func (c *Client) CreateSample(ctx context.Context, in types.SampleInput) (*types.Sample, error) {
	var out types.Sample
	if err := c.do(ctx, http.MethodPost, samplesPath, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSample overwrites the mutable fields of an existing sample.
func (c *Client) UpdateSample(ctx context.Context, id string, in types.SampleInput) (*types.Sample, error) {
	var out types.Sample
	if err := c.do(ctx, http.MethodPut, samplesPath+"/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSample removes a pending sample.
func (c *Client) DeleteSample(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, samplesPath+"/"+url.PathEscape(id), nil, nil)
}

// Counts retrieves the per-status sample counts.
func (c *Client) Counts(ctx context.Context) (*types.StatusCounts, error) {
	var out types.StatusCounts
	if err := c.do(ctx, http.MethodGet, countsPath, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunSync triggers one synchronization run and waits for its result.
func (c *Client) RunSync(ctx context.Context) (*types.SyncResult, error) {
	var out types.SyncResult
	if err := c.do(ctx, http.MethodPost, syncRunPath, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SyncStatus retrieves the live sync-status view.
func (c *Client) SyncStatus(ctx context.Context) (*types.SyncStatus, error) {
	var out types.SyncStatus
	if err := c.do(ctx, http.MethodGet, syncStatusPath, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LookupOptions retrieves the suggested values for a form field.
func (c *Client) LookupOptions(ctx context.Context, field string) (*types.LookupOptions, error) {
	var out types.LookupOptions
	if err := c.do(ctx, http.MethodGet, lookupPath+"/"+url.PathEscape(field), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling capture API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr.Problem); decodeErr != nil {
			apiErr.Problem = types.Problem{Status: resp.StatusCode, Detail: resp.Status}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}
