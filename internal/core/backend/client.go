package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

const (
	infoPath     = "/api/info"
	downloadPath = "/api/download"

	// DefaultInfoError is used when the backend rejects an info request without a detail
	DefaultInfoError = "Failed to process video"
	// DefaultDownloadError is used when the backend rejects a download request without a detail
	DefaultDownloadError = "Failed to get video URL"
)

// ErrInvalidResponse means the backend answered 2xx with a body that is not JSON
var ErrInvalidResponse = errors.New("backend returned invalid JSON")

// RejectionError is a non-2xx answer from the backend
type RejectionError struct {
	Status  int
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("backend rejected request (%d): %s", e.Status, e.Message)
}

// ConnectionError means the backend could not be reached or its response could not be read
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Client talks to the external extraction backend. Both endpoints share one base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a backend client. No timeout is configured; callers cancel through ctx.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 0,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
		},
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the configured backend address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Info asks the backend for title, thumbnail, duration and formats of url.
// The JSON body is returned as received.
func (c *Client) Info(ctx context.Context, url string) ([]byte, error) {
	return c.post(ctx, infoPath, map[string]string{"url": url}, DefaultInfoError)
}

// ResolveDownload asks the backend for a direct media URL for one format.
// The JSON body is returned as received.
func (c *Client) ResolveDownload(ctx context.Context, url, formatID string) ([]byte, error) {
	return c.post(ctx, downloadPath, map[string]string{"url": url, "format_id": formatID}, DefaultDownloadError)
}

func (c *Client) post(ctx context.Context, path string, payload any, fallback string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("backend error: %s", data)
		return nil, &RejectionError{
			Status:  resp.StatusCode,
			Message: detailMessage(data, fallback),
		}
	}

	if !json.Valid(data) {
		return nil, &ConnectionError{Err: ErrInvalidResponse}
	}
	return data, nil
}

// detailMessage extracts a string "detail" field from an error body
func detailMessage(body []byte, fallback string) string {
	var errBody struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &errBody); err != nil {
		return fallback
	}
	if msg, ok := errBody.Detail.(string); ok && msg != "" {
		return msg
	}
	return fallback
}
