package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finguard-ai/finguard/internal/inference"
)

// Provider is the interface for upstream chat completion services.
type Provider interface {
	ChatCompletion(ctx context.Context, req *inference.Request) (*inference.Response, error)
}

// Options selects and configures a provider.
type Options struct {
	Type             string // huggingface | openai
	BaseURL          string
	APIKey           string
	Timeout          time.Duration
	MaxResponseBytes int64
}

// New builds the provider named by opts.Type.
func New(opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Type)) {
	case "", "huggingface":
		return NewHuggingFace(opts.BaseURL, opts.APIKey, opts.Timeout, opts.MaxResponseBytes), nil
	case "openai":
		return NewOpenAI(opts.BaseURL, opts.APIKey, opts.Timeout, opts.MaxResponseBytes), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", opts.Type)
	}
}
