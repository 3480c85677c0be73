package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout          = 60 * time.Second
	defaultMaxResponseBytes = 4 * 1024 * 1024
)

// jsonClient is the shared POST-JSON plumbing for providers.
type jsonClient struct {
	name             string
	apiKey           string
	client           *http.Client
	maxResponseBytes int64
}

func newJSONClient(name, apiKey string, timeout time.Duration, maxResponseBytes int64) jsonClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxResponseBytes <= 0 {
		maxResponseBytes = defaultMaxResponseBytes
	}
	return jsonClient{
		name:             name,
		apiKey:           apiKey,
		client:           &http.Client{Timeout: timeout},
		maxResponseBytes: maxResponseBytes,
	}
}

// post sends payload as JSON and returns the status, content type and a
// size-limited body.
func (c jsonClient) post(ctx context.Context, url string, payload any) (int, string, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", nil, fmt.Errorf("marshal %s request: %w", c.name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", nil, fmt.Errorf("create %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, "", nil, fmt.Errorf("call %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return resp.StatusCode, "", nil, fmt.Errorf("read %s response (status %d): %w", c.name, resp.StatusCode, err)
	}
	if int64(len(respBody)) > c.maxResponseBytes {
		return resp.StatusCode, "", nil, fmt.Errorf("%s response exceeded limit (%d bytes)", c.name, c.maxResponseBytes)
	}
	return resp.StatusCode, resp.Header.Get("Content-Type"), respBody, nil
}
