package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/grouprk/vdl/internal/core/media"
)

const (
	infoFailedMessage     = "Failed to process video"
	downloadFailedMessage = "Failed to get video URL"
)

// APIError is a non-2xx answer from the gateway, carrying its {error} message
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client resolves metadata and direct download URLs through a vdl gateway
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a gateway client. token may be empty when the gateway has no API key.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// Info fetches title, thumbnail, duration and formats for url
func (c *Client) Info(ctx context.Context, url string) (*media.VideoInfo, error) {
	var info media.VideoInfo
	if err := c.post(ctx, "/api/info", media.InfoRequest{URL: url}, infoFailedMessage, &info); err != nil {
		return nil, err
	}
	if info.Formats == nil {
		info.Formats = []media.FormatInfo{}
	}
	return &info, nil
}

// Resolve fetches a fresh direct media URL for one format
func (c *Client) Resolve(ctx context.Context, url, formatID string) (*media.ResolvedDownload, error) {
	var resolved media.ResolvedDownload
	req := media.DownloadRequest{URL: url, FormatID: formatID}
	if err := c.post(ctx, "/api/download", req, downloadFailedMessage, &resolved); err != nil {
		return nil, err
	}
	return &resolved, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, fallback string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to gateway failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		msg := fallback
		if json.NewDecoder(resp.Body).Decode(&errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
