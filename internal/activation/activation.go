package activation

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finguard-ai/finguard/internal/classify"
	"github.com/finguard-ai/finguard/internal/verdict"
)

// EventVersion is bumped whenever the event schema changes shape.
const EventVersion = "1"

const (
	KindClassification = "classification"
	KindChat           = "chat"
)

// ClassificationPayload describes one call of the classification endpoint.
// It never carries the input itself.
type ClassificationPayload struct {
	Channel        string  `json:"channel"`
	Method         string  `json:"method"`
	Label          string  `json:"label"`
	Verdict        string  `json:"verdict"`
	Confidence     float64 `json:"confidence"`
	Domain         string  `json:"domain,omitempty"`
	IndicatorCount int     `json:"indicator_count"`
	ModelOutcome   string  `json:"model_outcome,omitempty"`
}

// ChatPayload describes one assistant turn.
type ChatPayload struct {
	Provider  string `json:"provider"`
	Model     string `json:"model,omitempty"`
	Turns     int    `json:"turns"`
	Citations int    `json:"citations"`
	Failed    bool   `json:"failed"`
}

type TimingMs struct {
	Total float64 `json:"total"`
}

// Event is the canonical activation payload.
type Event struct {
	Version        string                 `json:"version"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id"`
	Kind           string                 `json:"kind"`
	Classification *ClassificationPayload `json:"classification,omitempty"`
	Chat           *ChatPayload           `json:"chat,omitempty"`
	TimingMs       TimingMs               `json:"timing_ms"`
}

// ClassificationParams collects what BuildClassification needs.
type ClassificationParams struct {
	RequestID string
	Decision  classify.Decision
	Latency   time.Duration
}

// BuildClassification creates an event from a dispatcher decision.
func BuildClassification(p ClassificationParams) *Event {
	res := p.Decision.Result
	return &Event{
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		RequestID: ensureRequestID(p.RequestID),
		Kind:      KindClassification,
		Classification: &ClassificationPayload{
			Channel:        string(p.Decision.Channel),
			Method:         string(p.Decision.Method),
			Label:          res.Label,
			Verdict:        string(verdict.Of(res.Label)),
			Confidence:     res.Confidence,
			Domain:         p.Decision.Domain,
			IndicatorCount: p.Decision.Indicators,
			ModelOutcome:   p.Decision.ModelKind,
		},
		TimingMs: TimingMs{Total: durationMillis(p.Latency)},
	}
}

// ChatParams collects what BuildChat needs.
type ChatParams struct {
	RequestID string
	Provider  string
	Model     string
	Turns     int
	Citations int
	Failed    bool
	Latency   time.Duration
}

// BuildChat creates an event for an assistant turn.
func BuildChat(p ChatParams) *Event {
	return &Event{
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		RequestID: ensureRequestID(p.RequestID),
		Kind:      KindChat,
		Chat: &ChatPayload{
			Provider:  p.Provider,
			Model:     p.Model,
			Turns:     p.Turns,
			Citations: p.Citations,
			Failed:    p.Failed,
		},
		TimingMs: TimingMs{Total: durationMillis(p.Latency)},
	}
}

func ensureRequestID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

func durationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
