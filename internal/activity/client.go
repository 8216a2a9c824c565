// Package activity fetches the current activity from the remote activity service.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"userfeed/internal/domain"
)

const (
	DefaultEndpoint = "https://api.example.com/activity"

	activityField   = "activity"
	maxResponseSize = 1 << 20
)

var errMissingActivity = errors.New("response has no activity field")

// Client performs single, uncached GET requests against a fixed endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient builds a Client. A zero timeout leaves requests unbounded.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns the raw activity value. The value is not tied to any user.
func (c *Client) Fetch(ctx context.Context) (domain.Activity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, &FetchError{Kind: NetworkError, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: NetworkError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, &FetchError{Kind: NetworkError, Status: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &FetchError{Kind: NetworkError, Err: fmt.Errorf("read body: %w", err)}
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &FetchError{Kind: MalformedResponse, Err: fmt.Errorf("decode body: %w", err)}
	}
	value, ok := payload[activityField]
	if !ok {
		return nil, &FetchError{Kind: MalformedResponse, Err: errMissingActivity}
	}
	return domain.Activity(value), nil
}
