package redact

import (
	"strings"
	"testing"
)

func TestStringRedaction(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		disallow []string
		require  []string
	}{
		{
			name:     "bearer header",
			input:    "Authorization: Bearer hf_abcdefghijkl",
			disallow: []string{"hf_abcdefghijkl"},
			require:  []string{"[REDACTED]"},
		},
		{
			name:     "bare hugging face token",
			input:    "loaded key hf_AbCdEf123456 from env",
			disallow: []string{"AbCdEf123456"},
			require:  []string{"hf_[REDACTED]"},
		},
		{
			name:     "openai key",
			input:    "provider failed with sk-proj-12345678abc",
			disallow: []string{"12345678abc"},
			require:  []string{"sk-[REDACTED]"},
		},
		{
			name:     "api key value",
			input:    "api_key=secretvalue",
			disallow: []string{"secretvalue"},
			require:  []string{"api_key=[REDACTED]"},
		},
		{
			name:     "model url",
			input:    "POST https://api-inference.huggingface.co/models/acme/url-model?x=1 failed",
			disallow: []string{"acme/url-model?x=1"},
			require:  []string{"https://api-inference.huggingface.co/url-model"},
		},
		{
			name:     "screenshot payload",
			input:    "bad payload data:image/png;base64,iVBORw0KGgoAAAANSUhEUg==",
			disallow: []string{"iVBORw0KGgo"},
			require:  []string{"data:image/[REDACTED]"},
		},
		{
			name:     "mixed token",
			input:    "Bearer abc key=supersecret token=anotherone search=https://search.example.test/w/rest/",
			disallow: []string{"abc", "supersecret", "anotherone", "w/rest/"},
			require:  []string{"[REDACTED]", "https://search.example.test/[REDACTED_PATH]"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := String(tc.input)
			for _, bad := range tc.disallow {
				if bad != "" && contains(out, bad) {
					t.Fatalf("output still contains %q: %s", bad, out)
				}
			}
			for _, want := range tc.require {
				if want == "" {
					continue
				}
				if !contains(out, want) {
					t.Fatalf("output missing required substring %q: %s", want, out)
				}
			}
		})
	}
}

func contains(s, sub string) bool {
	return s != "" && sub != "" && strings.Contains(s, sub)
}
