package verdict

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/finguard-ai/finguard/internal/catalog"
)

// Verdict is the leading part of every result label.
type Verdict string

const (
	Safe           Verdict = "Safe"
	Unsafe         Verdict = "Unsafe"
	Invalid        Verdict = "Invalid"
	InvalidURL     Verdict = "Invalid URL"
	Error          Verdict = "Error"
	APIError       Verdict = "API Error"
	ParseError     Verdict = "Parse Error"
	NoTextDetected Verdict = "No Text Detected"
)

// Threshold is the confidence a rule path must exceed to be Unsafe.
const Threshold = 0.5

// Result is the response body for every classification.
type Result struct {
	Label         string   `json:"label"`
	Confidence    float64  `json:"confidence"`
	Summary       string   `json:"summary,omitempty"`
	Details       []string `json:"details"`
	Type          string   `json:"type,omitempty"`
	ExtractedText string   `json:"extractedText,omitempty"`
}

// Evidence is what a scorer hands to Aggregate.
type Evidence struct {
	Score      float64
	Indicators []string
	// Screenshot only.
	TextLength int
	URLCount   int
}

// Assessment is the aggregated outcome of a rule path.
type Assessment struct {
	Confidence float64
	Verdict    Verdict
	Summary    string
	Details    []string
}

// Confidence clamps a raw score to [0,1]. A NaN or negative score is a caller
// bug and panics.
func Confidence(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		panic(fmt.Sprintf("verdict: invalid raw score %v", score))
	}
	return math.Min(score, 1)
}

// Decide maps a confidence onto Safe or Unsafe.
func Decide(confidence float64) Verdict {
	if confidence > Threshold {
		return Unsafe
	}
	return Safe
}

// Percent renders a confidence as a percentage with the given precision.
func Percent(confidence float64, prec int) string {
	return strconv.FormatFloat(confidence*100, 'f', prec, 64) + "%"
}

// Aggregate turns raw evidence into confidence, verdict, summary and details.
func Aggregate(ch catalog.Channel, ev Evidence) Assessment {
	conf := Confidence(ev.Score)
	v := Decide(conf)
	a := Assessment{Confidence: conf, Verdict: v}

	n := len(ev.Indicators)
	switch ch {
	case catalog.ChannelURL:
		if v == Unsafe {
			a.Summary = fmt.Sprintf("Rule-based analysis detected %d suspicious indicators with %s confidence.", n, Percent(conf, 1))
		} else {
			a.Summary = fmt.Sprintf("Rule-based analysis suggests the URL is likely safe (%s confidence).", Percent(conf, 1))
		}
		a.Details = append([]string{}, ev.Indicators...)
		return a
	}

	name := channelName(ch)
	if v == Unsafe {
		a.Summary = fmt.Sprintf("%s contains %d suspicious patterns with %s confidence.", name, n, Percent(conf, 1))
	} else {
		a.Summary = fmt.Sprintf("%s appears legitimate with %s confidence.", name, Percent(conf, 1))
	}

	matched := strings.Join(ev.Indicators, ", ")
	if ch == catalog.ChannelScreenshot {
		shown := ev.Indicators
		if len(shown) > 3 {
			shown = shown[:3]
		}
		matched = strings.Join(shown, ", ")
		if n > 3 {
			matched += "..."
		}
		a.Details = append(a.Details, fmt.Sprintf("Text extracted: %d characters", ev.TextLength))
	}
	a.Details = append(a.Details,
		fmt.Sprintf("Suspicious patterns detected: %d", n),
		"Matched patterns: "+matched,
		"Confidence score: "+Percent(conf, 2),
	)
	if ch == catalog.ChannelScreenshot && ev.URLCount > 0 {
		a.Details = append(a.Details, fmt.Sprintf("URLs found: %d", ev.URLCount))
	}
	return a
}

// Result renders the assessment in the response shape for a channel.
func (a Assessment) Result(ch catalog.Channel) Result {
	return Result{
		Label:      fmt.Sprintf("%s (%s)", a.Verdict, Tag(ch)),
		Confidence: a.Confidence,
		Summary:    a.Summary,
		Details:    a.Details,
		Type:       string(ch),
	}
}

// Tag is the parenthesised method tag of a rule-path label.
func Tag(ch catalog.Channel) string {
	if ch == catalog.ChannelURL {
		return "Rule-based"
	}
	return channelName(ch)
}

func channelName(ch catalog.Channel) string {
	switch ch {
	case catalog.ChannelEmail:
		return "Email"
	case catalog.ChannelMessage:
		return "Message"
	case catalog.ChannelScreenshot:
		return "Screenshot"
	default:
		s := string(ch)
		if s == "" {
			return "Input"
		}
		return strings.ToUpper(s[:1]) + s[1:]
	}
}

// Failure builds a terminal result with zero confidence.
func Failure(v Verdict, ch catalog.Channel, summary string, details ...string) Result {
	if details == nil {
		details = []string{}
	}
	return Result{
		Label:      string(v),
		Confidence: 0,
		Summary:    summary,
		Details:    details,
		Type:       string(ch),
	}
}

// Truncate cuts s to n runes and appends "..." when it was longer.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Of recovers the verdict from a rendered label such as "Unsafe (Email)".
func Of(label string) Verdict {
	if i := strings.Index(label, " ("); i >= 0 {
		return Verdict(label[:i])
	}
	return Verdict(label)
}
