package inference

// Message is a normalized chat message.
type Message struct {
	Role    string
	Content string
}

// Request is a provider-neutral chat completion request.
type Request struct {
	Model    string
	Messages []Message
}

// Usage holds token accounting when the upstream reports it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a provider-neutral chat completion response.
type Response struct {
	Message Message
	Usage   Usage
}

// LastUserMessage returns the content of the most recent user turn.
func (r *Request) LastUserMessage() string {
	if r == nil {
		return ""
	}
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	return ""
}
