package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finguard-ai/finguard/internal/inference"
	"github.com/finguard-ai/finguard/internal/model"
)

// huggingFaceProvider drives a hosted text-generation model with a plain
// role-prefixed transcript.
type huggingFaceProvider struct {
	baseURL string
	http    jsonClient
}

// NewHuggingFace creates a provider for the Hugging Face inference API.
func NewHuggingFace(baseURL, apiKey string, timeout time.Duration, maxResponseBytes int64) Provider {
	if baseURL == "" {
		baseURL = model.DefaultBaseURL
	}
	return &huggingFaceProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newJSONClient("huggingface", apiKey, timeout, maxResponseBytes),
	}
}

type hfGenerateRequest struct {
	Inputs  string            `json:"inputs"`
	Options hfGenerateOptions `json:"options"`
}

type hfGenerateOptions struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

func (p *huggingFaceProvider) ChatCompletion(ctx context.Context, req *inference.Request) (*inference.Response, error) {
	if strings.TrimSpace(req.Model) == "" {
		return nil, errors.New("huggingface: model is required")
	}
	payload := hfGenerateRequest{
		Inputs:  RenderTranscript(req.Messages),
		Options: hfGenerateOptions{WaitForModel: true, UseCache: false},
	}

	status, contentType, body, err := p.http.post(ctx, p.baseURL+"/models/"+strings.Trim(req.Model, "/"), payload)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("huggingface error status %d", status)
	}

	text, err := generatedText(contentType, body)
	if err != nil {
		return nil, err
	}
	return &inference.Response{
		Message: inference.Message{Role: "assistant", Content: text},
	}, nil
}

// generatedText pulls the completion out of the response body. Bodies that
// are not JSON are returned verbatim; JSON of an unknown shape is returned as
// its raw text.
func generatedText(contentType string, body []byte) (string, error) {
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		return string(body), nil
	}
	d, err := model.Decode(body)
	if err != nil {
		return string(body), nil
	}
	switch d.Shape {
	case model.ShapeText:
		return d.Text, nil
	case model.ShapeError:
		return "", fmt.Errorf("huggingface: %s", d.Error)
	default:
		return strings.TrimSpace(string(body)), nil
	}
}

// RenderTranscript flattens messages into "Role: content" lines and leaves a
// trailing "Assistant:" cue for the model to complete.
func RenderTranscript(msgs []inference.Message) string {
	lines := make([]string, 0, len(msgs)+1)
	for _, m := range msgs {
		lines = append(lines, roleName(m.Role)+": "+m.Content)
	}
	lines = append(lines, "Assistant:")
	return strings.Join(lines, "\n")
}

func roleName(role string) string {
	switch role {
	case "system":
		return "System"
	case "user":
		return "User"
	case "assistant":
		return "Assistant"
	default:
		return role
	}
}
