package model

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
)

const (
	DefaultBaseURL = "https://api-inference.huggingface.co"
	DefaultModelID = "r3ddkahili/final-complete-malicious-url-model"
)

// StatusError is returned for non-2xx inference responses.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "Hugging Face API error: " + e.Status
}

// HTTPOptions configures an HTTPClassifier.
type HTTPOptions struct {
	BaseURL          string
	ModelID          string
	APIKey           string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// HTTPClassifier calls a hosted text-classification endpoint.
type HTTPClassifier struct {
	endpoint         string
	apiKey           string
	client           *http.Client
	maxResponseBytes int64
}

// NewHTTP builds an HTTP backend. A missing or placeholder key is allowed;
// Classify then reports Unavailable.
func NewHTTP(opts HTTPOptions) *HTTPClassifier {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	modelID := strings.Trim(opts.ModelID, "/")
	if modelID == "" {
		modelID = DefaultModelID
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := opts.MaxResponseBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	return &HTTPClassifier{
		endpoint:         base + "/models/" + modelID,
		apiKey:           strings.TrimSpace(opts.APIKey),
		client:           &http.Client{Timeout: timeout},
		maxResponseBytes: limit,
	}
}

// Available reports whether a usable credential is configured.
func (c *HTTPClassifier) Available() bool {
	return c != nil && UsableKey(c.apiKey)
}

type inferenceRequest struct {
	Inputs  string           `json:"inputs"`
	Options inferenceOptions `json:"options"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, rawURL string) Outcome {
	if !c.Available() {
		return Outcome{Kind: Unavailable, Err: ErrNoCredential}
	}

	body, err := json.Marshal(inferenceRequest{Inputs: rawURL, Options: inferenceOptions{WaitForModel: true}})
	if err != nil {
		return Outcome{Kind: Transport, Err: fmt.Errorf("marshal inference request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{Kind: Transport, Err: fmt.Errorf("create inference request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Outcome{Kind: Transport, Err: fmt.Errorf("Hugging Face API request failed: %w", stripURL(err))}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxResponseBytes))
		return Outcome{Kind: Transport, Err: &StatusError{Code: resp.StatusCode, Status: resp.Status}}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return Outcome{Kind: Transport, Err: fmt.Errorf("read inference response: %w", err)}
	}
	if int64(len(respBody)) > c.maxResponseBytes {
		return Outcome{Kind: Transport, Err: fmt.Errorf("inference response exceeded limit (%d bytes)", c.maxResponseBytes)}
	}
	return OutcomeFromBody(respBody)
}

// stripURL drops the request URL from client errors so summaries do not echo
// the endpoint.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
