package fleetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"ecoroute-dashboard/internal/models"
)

// FleetService is the remote optimization service as seen by the dashboard.
// The clustering and routing run entirely on the other side of this boundary.
type FleetService interface {
	FetchBins(ctx context.Context) ([]byte, error)
	Optimize(ctx context.Context, req models.OptimizeRequest) (models.RouteSet, error)
}

// StatusError is returned when the remote service answers with a non-2xx status
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: API returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Client talks to the optimization service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service rooted at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the configured service root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchBins returns the raw GET /bins payload. The payload is checked to be JSON
// but its shape is left to the caller.
func (c *Client) FetchBins(ctx context.Context) ([]byte, error) {
	body, err := c.do(ctx, "fetch bins", http.MethodGet, "/bins", nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("fetch bins: response is not valid JSON")
	}

	log.Printf("📦 Fetched bin snapshot (%d bytes)", len(body))
	return body, nil
}

// Optimize submits POST /optimize and returns the routes in response order
func (c *Client) Optimize(ctx context.Context, req models.OptimizeRequest) (models.RouteSet, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("optimize: failed to encode request: %w", err)
	}

	body, err := c.do(ctx, "optimize", http.MethodPost, "/optimize", payload)
	if err != nil {
		return nil, err
	}

	var resp models.OptimizeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("optimize: failed to parse response: %w", err)
	}
	if resp.Routes == nil {
		resp.Routes = models.RouteSet{}
	}

	log.Printf("🛣️  Optimize returned %d routes for %s (%d trucks)", len(resp.Routes), req.Date, req.TruckCount)
	return resp.Routes, nil
}

// Ping checks that the service root answers
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "ping", http.MethodGet, "/", nil)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: API request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
