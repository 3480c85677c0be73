package activation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookSink POSTs each event once to an HTTP endpoint. Failed deliveries
// are counted and logged by the emitter, never retried.
type WebhookSink struct {
	url     string
	headers map[string]string
	client  *http.Client
}

func NewWebhookSink(url string, headers map[string]string, timeout time.Duration) (*WebhookSink, error) {
	if url == "" {
		return nil, errors.New("webhook url is empty")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	hdr := make(map[string]string, len(headers))
	for k, v := range headers {
		hdr[k] = v
	}
	return &WebhookSink{
		url:     url,
		headers: hdr,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (s *WebhookSink) Name() string { return "webhook:" + s.url }

func (s *WebhookSink) Deliver(ctx context.Context, ev *Event) error {
	if ev == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", ev.RequestID)
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d body=%q", resp.StatusCode, truncateBody(body))
	}
	return nil
}

func (s *WebhookSink) Close(context.Context) error {
	s.client.CloseIdleConnections()
	return nil
}

func truncateBody(b []byte) string {
	const limit = 200
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
