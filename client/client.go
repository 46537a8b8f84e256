package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/introlix/deskflow/logging"
)

// APIError carries a non-2xx backend response.
type APIError struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// HTTPClient used for every request. The default carries a generous
	// timeout; streamed turns override it with a per-request context.
	HTTPClient *http.Client
	// Logger receives request/response records. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Client talks to the research-desk backend. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// New constructs a Client for the given base URL with optional overrides.
func New(baseURL string, optFns ...func(o *Options)) *Client {
	opts := Options{
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}
}

// doJSON issues a request with an optional JSON body and decodes a JSON
// response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.logger.Debug("backend request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// decodeAPIError reads the backend's {"detail": ...} error shape, falling
// back to the raw body when it does not match.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		apiErr.Detail = resp.Status
		return apiErr
	}

	var payload struct {
		Detail string `json:"detail"`
	}
	if jsonErr := json.Unmarshal(data, &payload); jsonErr == nil && payload.Detail != "" {
		apiErr.Detail = payload.Detail
	} else {
		apiErr.Detail = strings.TrimSpace(string(data))
	}

	return apiErr
}
