package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/finguard-ai/finguard/internal/inference"
)

// openAIProvider implements Provider for OpenAI-compatible Chat Completions APIs.
type openAIProvider struct {
	baseURL string
	http    jsonClient
}

// NewOpenAI creates an OpenAI-compatible provider.
func NewOpenAI(baseURL, apiKey string, timeout time.Duration, maxResponseBytes int64) Provider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAIProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newJSONClient("openai", apiKey, timeout, maxResponseBytes),
	}
}

type openAIChatRequest struct {
	Model    string              `json:"model"`
	Messages []openAIChatMessage `json:"messages"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message openAIChatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *openAIProvider) ChatCompletion(ctx context.Context, req *inference.Request) (*inference.Response, error) {
	oaiReq := openAIChatRequest{
		Model:    req.Model,
		Messages: make([]openAIChatMessage, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		oaiReq.Messages = append(oaiReq.Messages, openAIChatMessage{Role: m.Role, Content: m.Content})
	}

	status, _, body, err := p.http.post(ctx, p.baseURL+"/chat/completions", oaiReq)
	if err != nil {
		return nil, err
	}

	if status >= 400 {
		var errBody openAIErrorResponse
		if err := json.Unmarshal(body, &errBody); err != nil || errBody.Error.Message == "" {
			return nil, fmt.Errorf("openai error status %d", status)
		}
		return nil, fmt.Errorf("openai error: %s (type=%s)", errBody.Error.Message, errBody.Error.Type)
	}

	var oaiResp openAIChatResponse
	if err := json.Unmarshal(body, &oaiResp); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(oaiResp.Choices) == 0 {
		return nil, fmt.Errorf("openai response had no choices")
	}

	first := oaiResp.Choices[0].Message
	role := first.Role
	if role == "" {
		role = "assistant"
	}
	return &inference.Response{
		Message: inference.Message{Role: role, Content: first.Content},
		Usage: inference.Usage{
			PromptTokens:     oaiResp.Usage.PromptTokens,
			CompletionTokens: oaiResp.Usage.CompletionTokens,
			TotalTokens:      oaiResp.Usage.TotalTokens,
		},
	}, nil
}
