package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient calls a remote OCR endpoint speaking the Result wire shape.
type HTTPClient struct {
	url              string
	client           *http.Client
	maxResponseBytes int64
}

func NewHTTP(url string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		url:              url,
		client:           &http.Client{Timeout: timeout},
		maxResponseBytes: 1 << 20,
	}
}

type extractRequest struct {
	ImageData string `json:"imageData"`
}

func (c *HTTPClient) Extract(ctx context.Context, imageData string) (string, error) {
	if strings.TrimSpace(imageData) == "" {
		return "", ErrNoImage
	}
	body, err := json.Marshal(extractRequest{ImageData: imageData})
	if err != nil {
		return "", fmt.Errorf("marshal ocr request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call ocr service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("ocr service status %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return "", fmt.Errorf("read ocr response: %w", err)
	}
	if int64(len(raw)) > c.maxResponseBytes {
		return "", fmt.Errorf("ocr response exceeded limit (%d bytes)", c.maxResponseBytes)
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	if !res.Success {
		if res.Error == "" {
			return "", errors.New("ocr failed")
		}
		return "", errors.New(res.Error)
	}
	return res.Text, nil
}
