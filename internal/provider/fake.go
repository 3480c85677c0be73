package provider

import (
	"context"
	"sync"

	"github.com/finguard-ai/finguard/internal/inference"
)

// FakeProvider returns a canned reply and records the requests it sees.
type FakeProvider struct {
	ResponseText string
	Error        error

	mu       sync.Mutex
	requests []inference.Request
}

func (f *FakeProvider) ChatCompletion(ctx context.Context, req *inference.Request) (*inference.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, *req)
	f.mu.Unlock()

	if f.Error != nil {
		return nil, f.Error
	}
	return &inference.Response{
		Message: inference.Message{
			Role:    "assistant",
			Content: f.ResponseText,
		},
	}, nil
}

// Requests returns a copy of the requests received so far.
func (f *FakeProvider) Requests() []inference.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]inference.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

func NewFake(response string) *FakeProvider {
	return &FakeProvider{ResponseText: response}
}
