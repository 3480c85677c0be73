package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/finguard-ai/finguard/internal/inference"
	"github.com/finguard-ai/finguard/internal/provider"
)

// Turn is one message of the conversation as sent by the client.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Citation is a link attached to a reply.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Reply is the response body of the chat endpoint.
type Reply struct {
	Message   string     `json:"message"`
	Citations []Citation `json:"citations"`
}

// SystemPrompt frames the assistant persona.
var SystemPrompt = strings.Join([]string{
	"You are Secure FinBot, a friendly, concise financial assistant specialized in banking, loans, and fraud alerts.",
	"Answer clearly in simple language. Use short bullet lists when helpful. Do not give legal or financial advice; suggest official sources or a professional.",
	"When asked about scams or fraud, include at least one reputable source where the user can read more.",
}, "\n")

// FTCCitation is attached whenever a keyword mentions phishing or scams.
var FTCCitation = Citation{
	Title: "FTC: Recognizing and Avoiding Phishing Scams",
	URL:   "https://consumer.ftc.gov/articles/how-recognize-and-avoid-phishing-scams",
}

var nonKeywordChars = regexp.MustCompile(`[^a-z0-9\s]`)

// Searcher looks up one reference for a keyword. ok is false when nothing
// was found.
type Searcher interface {
	Search(ctx context.Context, keyword string) (c Citation, ok bool, err error)
}

// Options tunes the assistant.
type Options struct {
	Model            string
	CitationsEnabled bool
	MaxKeywords      int
	MaxCitations     int
	LookupTimeout    time.Duration
}

// Assistant answers finance and fraud questions through a chat provider and
// decorates answers with citations.
type Assistant struct {
	provider provider.Provider
	searcher Searcher
	opts     Options
}

func New(p provider.Provider, s Searcher, opts Options) *Assistant {
	if opts.MaxKeywords <= 0 {
		opts.MaxKeywords = 6
	}
	if opts.MaxCitations <= 0 {
		opts.MaxCitations = 3
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 5 * time.Second
	}
	return &Assistant{provider: p, searcher: s, opts: opts}
}

// BuildMessages prefixes the conversation with the system prompt.
func BuildMessages(turns []Turn) []inference.Message {
	msgs := make([]inference.Message, 0, len(turns)+1)
	msgs = append(msgs, inference.Message{Role: "system", Content: SystemPrompt})
	for _, t := range turns {
		msgs = append(msgs, inference.Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}

// Keywords lowercases text, blanks out everything but ASCII letters, digits
// and whitespace, and returns the first max words.
func Keywords(text string, max int) []string {
	cleaned := nonKeywordChars.ReplaceAllString(strings.ToLower(text), " ")
	words := strings.Fields(cleaned)
	if max >= 0 && len(words) > max {
		words = words[:max]
	}
	return words
}

// Respond runs one chat turn. Provider failures are returned; citation
// lookups never fail the reply.
func (a *Assistant) Respond(ctx context.Context, turns []Turn) (Reply, error) {
	if a == nil || a.provider == nil {
		return Reply{}, errors.New("chat provider not configured")
	}
	req := &inference.Request{Model: a.opts.Model, Messages: BuildMessages(turns)}
	resp, err := a.provider.ChatCompletion(ctx, req)
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion: %w", err)
	}

	reply := Reply{Message: resp.Message.Content, Citations: []Citation{}}
	if a.opts.CitationsEnabled {
		reply.Citations = a.Citations(ctx, req.LastUserMessage())
	}
	return reply, nil
}

// Citations derives up to MaxCitations unique links from the keywords of
// text. Lookups run one after another; failures are skipped.
func (a *Assistant) Citations(ctx context.Context, text string) []Citation {
	out := []Citation{}
	seen := make(map[string]struct{})
	add := func(c Citation) bool {
		if _, dup := seen[c.URL]; !dup {
			seen[c.URL] = struct{}{}
			out = append(out, c)
		}
		return len(out) >= a.opts.MaxCitations
	}

	for _, k := range Keywords(text, a.opts.MaxKeywords) {
		if strings.Contains(k, "phishing") || strings.Contains(k, "scam") {
			if add(FTCCitation) {
				break
			}
		}
		if a.searcher == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		c, ok := a.lookup(ctx, k)
		if ok && add(c) {
			break
		}
	}
	return out
}

func (a *Assistant) lookup(ctx context.Context, keyword string) (Citation, bool) {
	lctx, cancel := context.WithTimeout(ctx, a.opts.LookupTimeout)
	defer cancel()
	c, ok, err := a.searcher.Search(lctx, keyword)
	if err != nil || !ok {
		return Citation{}, false
	}
	return c, true
}
