package verdict

import (
	"math"
	"strings"
	"testing"

	"github.com/finguard-ai/finguard/internal/catalog"
)

func TestConfidenceClampsAndDecides(t *testing.T) {
	cases := []struct {
		score float64
		conf  float64
		want  Verdict
	}{
		{0, 0, Safe},
		{0.5, 0.5, Safe},
		{0.51, 0.51, Unsafe},
		{1.0, 1.0, Unsafe},
		{2.7, 1.0, Unsafe},
	}
	for _, tc := range cases {
		got := Confidence(tc.score)
		if got != tc.conf {
			t.Fatalf("Confidence(%v) = %v, want %v", tc.score, got, tc.conf)
		}
		if v := Decide(got); v != tc.want {
			t.Fatalf("Decide(%v) = %s, want %s", got, v, tc.want)
		}
	}
}

func TestConfidencePanicsOnContractViolation(t *testing.T) {
	for _, bad := range []float64{math.NaN(), -0.1} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic for %v", bad)
				}
			}()
			Confidence(bad)
		}()
	}
}

func TestAggregateURL(t *testing.T) {
	a := Aggregate(catalog.ChannelURL, Evidence{Score: 0.9, Indicators: []string{"Hyphens in hostname", "Not using HTTPS protocol"}})
	if a.Verdict != Unsafe {
		t.Fatalf("expected Unsafe, got %s", a.Verdict)
	}
	want := "Rule-based analysis detected 2 suspicious indicators with 90.0% confidence."
	if a.Summary != want {
		t.Fatalf("summary = %q", a.Summary)
	}
	res := a.Result(catalog.ChannelURL)
	if res.Label != "Unsafe (Rule-based)" || res.Type != "url" {
		t.Fatalf("unexpected result %+v", res)
	}

	safe := Aggregate(catalog.ChannelURL, Evidence{})
	if safe.Summary != "Rule-based analysis suggests the URL is likely safe (0.0% confidence)." {
		t.Fatalf("summary = %q", safe.Summary)
	}
	if safe.Details == nil || len(safe.Details) != 0 {
		t.Fatalf("expected empty, non-nil details")
	}
}

func TestAggregateTextChannels(t *testing.T) {
	a := Aggregate(catalog.ChannelEmail, Evidence{Score: 0.3, Indicators: []string{"a"}})
	if a.Summary != "Email appears legitimate with 30.0% confidence." {
		t.Fatalf("summary = %q", a.Summary)
	}
	wantDetails := []string{"Suspicious patterns detected: 1", "Matched patterns: a", "Confidence score: 30.00%"}
	if strings.Join(a.Details, "|") != strings.Join(wantDetails, "|") {
		t.Fatalf("details = %v", a.Details)
	}

	m := Aggregate(catalog.ChannelMessage, Evidence{Score: 1.4, Indicators: []string{"a", "b", "c"}})
	if m.Summary != "Message contains 3 suspicious patterns with 100.0% confidence." {
		t.Fatalf("summary = %q", m.Summary)
	}
	if got := m.Result(catalog.ChannelMessage).Label; got != "Unsafe (Message)" {
		t.Fatalf("label = %q", got)
	}
}

func TestAggregateScreenshotDetails(t *testing.T) {
	a := Aggregate(catalog.ChannelScreenshot, Evidence{
		Score:      1.2,
		Indicators: []string{"a", "b", "c", "d"},
		TextLength: 42,
		URLCount:   2,
	})
	want := []string{
		"Text extracted: 42 characters",
		"Suspicious patterns detected: 4",
		"Matched patterns: a, b, c...",
		"Confidence score: 100.00%",
		"URLs found: 2",
	}
	if strings.Join(a.Details, "|") != strings.Join(want, "|") {
		t.Fatalf("details = %v", a.Details)
	}

	noURL := Aggregate(catalog.ChannelScreenshot, Evidence{Score: 0, TextLength: 3})
	for _, d := range noURL.Details {
		if strings.HasPrefix(d, "URLs found") {
			t.Fatalf("URL count detail should be omitted when zero")
		}
	}
}

func TestFailureAndTruncate(t *testing.T) {
	f := Failure(ParseError, catalog.ChannelURL, "bad")
	if f.Label != "Parse Error" || f.Confidence != 0 || f.Details == nil {
		t.Fatalf("unexpected failure %+v", f)
	}
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := Truncate("abc", 3); got != "abc" {
		t.Fatalf("truncate = %q", got)
	}
}

func TestOf(t *testing.T) {
	cases := map[string]Verdict{
		"Unsafe (Email)":    Unsafe,
		"Safe (benign)":     Safe,
		"Invalid URL":       InvalidURL,
		"No Text Detected":  NoTextDetected,
		"Safe (Rule-based)": Safe,
		"API Error":         APIError,
	}
	for label, want := range cases {
		if got := Of(label); got != want {
			t.Fatalf("Of(%q) = %q, want %q", label, got, want)
		}
	}
}
