package model

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecodeShapes(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		shape Shape
		label string
		score float64
		text  string
	}{
		{"flat list", `[{"label":"phishing","score":0.93}]`, ShapeLabel, "phishing", 0.93, ""},
		{"nested list", `[[{"label":"benign","score":0.8},{"label":"phishing","score":0.2}]]`, ShapeLabel, "benign", 0.8, ""},
		{"object", `{"label":"malware"}`, ShapeLabel, "malware", 0, ""},
		{"bare string", `"hello"`, ShapeText, "", 0, "hello"},
		{"generated text", `{"generated_text":"hi there"}`, ShapeText, "", 0, "hi there"},
		{"generated text list", `[{"generated_text":"hi"}]`, ShapeText, "", 0, "hi"},
		{"error", `{"error":"Model is loading"}`, ShapeError, "", 0, ""},
		{"empty list", `[]`, ShapeUnrecognized, "", 0, ""},
		{"other object", `{"foo":1}`, ShapeUnrecognized, "", 0, ""},
		{"number", `42`, ShapeUnrecognized, "", 0, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := Decode([]byte(tc.body))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if d.Shape != tc.shape || d.Label != tc.label || d.Score != tc.score || d.Text != tc.text {
				t.Fatalf("decoded %+v", d)
			}
		})
	}

	if _, err := Decode([]byte("<html>busy</html>")); err == nil {
		t.Fatalf("expected error for non-JSON body")
	}
}

func TestIsUnsafeLabel(t *testing.T) {
	for _, l := range []string{"phishing", "MALWARE", "Defacement", "squatting"} {
		if !IsUnsafeLabel(l) {
			t.Fatalf("%s should be unsafe", l)
		}
	}
	for _, l := range []string{"benign", "LABEL_0", ""} {
		if IsUnsafeLabel(l) {
			t.Fatalf("%s should not be unsafe", l)
		}
	}
}

func newInferenceServer(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var captured http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = *r.Clone(context.Background())
		raw, _ := io.ReadAll(r.Body)
		var req inferenceRequest
		if err := json.Unmarshal(raw, &req); err != nil || req.Inputs == "" || !req.Options.WaitForModel {
			t.Errorf("unexpected request body %s", raw)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestHTTPClassifierOutcomes(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   Kind
		label  string
	}{
		{"classified", http.StatusOK, `[[{"label":"phishing","score":0.97}]]`, Classified, "phishing"},
		{"unrecognized", http.StatusOK, `{"foo":"bar"}`, Unrecognized, ""},
		{"error shape", http.StatusOK, `{"error":"loading"}`, Unrecognized, ""},
		{"unparseable", http.StatusOK, `not json at all`, Unparseable, ""},
		{"status", http.StatusServiceUnavailable, `{"error":"down"}`, Transport, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, captured := newInferenceServer(t, tc.status, tc.body)
			c := NewHTTP(HTTPOptions{BaseURL: srv.URL, ModelID: "acme/url", APIKey: "hf_test", Timeout: time.Second})
			out := c.Classify(context.Background(), "http://example.com")
			if out.Kind != tc.kind {
				t.Fatalf("kind = %s, want %s (err=%v)", out.Kind, tc.kind, out.Err)
			}
			if out.Label != tc.label {
				t.Fatalf("label = %q", out.Label)
			}
			if captured.URL.Path != "/models/acme/url" {
				t.Fatalf("path = %q", captured.URL.Path)
			}
			if got := captured.Header.Get("Authorization"); got != "Bearer hf_test" {
				t.Fatalf("authorization = %q", got)
			}
			if tc.kind == Transport {
				var se *StatusError
				if !errors.As(out.Err, &se) || se.Code != http.StatusServiceUnavailable {
					t.Fatalf("expected StatusError, got %v", out.Err)
				}
				if !strings.HasPrefix(out.Err.Error(), "Hugging Face API error: 503") {
					t.Fatalf("error = %q", out.Err.Error())
				}
			}
			if tc.kind == Unparseable && out.Raw != tc.body {
				t.Fatalf("raw = %q", out.Raw)
			}
		})
	}
}

func TestHTTPClassifierUnavailableWithoutKey(t *testing.T) {
	for _, key := range []string{"", "  ", PlaceholderAPIKey} {
		c := NewHTTP(HTTPOptions{BaseURL: "http://127.0.0.1:1", APIKey: key})
		out := c.Classify(context.Background(), "http://example.com")
		if out.Kind != Unavailable || !errors.Is(out.Err, ErrNoCredential) {
			t.Fatalf("key %q: outcome %+v", key, out)
		}
	}
}

func TestHTTPClassifierTimeoutIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewHTTP(HTTPOptions{BaseURL: srv.URL, APIKey: "hf_test", Timeout: 20 * time.Millisecond})
	out := c.Classify(context.Background(), "http://example.com")
	if out.Kind != Transport {
		t.Fatalf("kind = %s", out.Kind)
	}
	if strings.Contains(out.Err.Error(), srv.URL) {
		t.Fatalf("error should not echo endpoint: %v", out.Err)
	}
}

func TestHTTPClassifierResponseLimit(t *testing.T) {
	srv, _ := newInferenceServer(t, http.StatusOK, `[{"label":"`+strings.Repeat("x", 256)+`"}]`)
	c := NewHTTP(HTTPOptions{BaseURL: srv.URL, APIKey: "hf_test", MaxResponseBytes: 64})
	out := c.Classify(context.Background(), "http://example.com")
	if out.Kind != Transport {
		t.Fatalf("kind = %s", out.Kind)
	}
}

func TestEncodeChars(t *testing.T) {
	ids, mask := encodeChars("ab", 4)
	if ids[0] != 'a'+1 || ids[1] != 'b'+1 || ids[2] != 0 || mask[1] != 1 || mask[2] != 0 {
		t.Fatalf("ids=%v mask=%v", ids, mask)
	}
	ids, _ = encodeChars("abcdef", 3)
	if len(ids) != 3 || ids[2] != 'c'+1 {
		t.Fatalf("expected truncation, got %v", ids)
	}
}

func TestArgmaxSoftmax(t *testing.T) {
	idx, p := argmaxSoftmax([]float32{0, 2, 0})
	if idx != 1 {
		t.Fatalf("idx = %d", idx)
	}
	want := math.Exp(2) / (math.Exp(2) + 2)
	if math.Abs(p-want) > 1e-6 {
		t.Fatalf("p = %v, want %v", p, want)
	}
	if idx, _ := argmaxSoftmax(nil); idx != -1 {
		t.Fatalf("expected -1 for empty logits")
	}
}

func TestLoadLabels(t *testing.T) {
	dir := t.TempDir()

	arr := filepath.Join(dir, "arr.json")
	_ = os.WriteFile(arr, []byte(`["benign","phishing"]`), 0o600)
	labels, err := loadLabels(arr)
	if err != nil || len(labels) != 2 || labels[1] != "phishing" {
		t.Fatalf("labels=%v err=%v", labels, err)
	}

	m := filepath.Join(dir, "map.json")
	_ = os.WriteFile(m, []byte(`{"1":"malware","0":"benign"}`), 0o600)
	labels, err = loadLabels(m)
	if err != nil || labels[0] != "benign" || labels[1] != "malware" {
		t.Fatalf("labels=%v err=%v", labels, err)
	}

	bad := filepath.Join(dir, "bad.json")
	_ = os.WriteFile(bad, []byte(`{"5":"x"}`), 0o600)
	if _, err := loadLabels(bad); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestLoadONNXMissingBundle(t *testing.T) {
	if _, err := LoadONNX("", 0); err == nil {
		t.Fatalf("expected error for empty bundle dir")
	}
	if _, err := LoadONNX(t.TempDir(), 0); err == nil {
		t.Fatalf("expected error for bundle without model")
	}
}
