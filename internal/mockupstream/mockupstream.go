// Package mockupstream imitates every upstream FinGuard talks to: the hosted
// URL classifier, text generation (Hugging Face and OpenAI shapes), the OCR
// service and the article title search.
package mockupstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	defaultPort    = 18080
	defaultDelayMS = 0

	// OCRText is what the mock OCR service reads from any image.
	OCRText = "Your account is suspended. Verify your password at https://secure-bank-login.example.com/verify"
	// ChatReply is the generated text of every chat completion.
	ChatReply = "Phishing messages try to rush you. Never share your PIN or one-time codes."
)

// suspiciousTokens make the mock URL classifier answer "phishing".
var suspiciousTokens = []string{"phish", "login", "verify", "paypa1", "secure-", ".tk"}

// Start launches the mock. If addr is empty, it listens on
// 127.0.0.1:MOCK_UPSTREAM_PORT (default 18080). It returns a shutdown
// function and the base URL (e.g. http://127.0.0.1:18080).
func Start(addr string) (func(context.Context) error, string, error) {
	if strings.TrimSpace(addr) == "" {
		port := strings.TrimSpace(os.Getenv("MOCK_UPSTREAM_PORT"))
		if port == "" {
			port = strconv.Itoa(defaultPort)
		}
		addr = "127.0.0.1:" + port
	}

	delay := defaultDelayMS
	if val := strings.TrimSpace(os.Getenv("MOCK_DELAY_MS")); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed >= 0 {
			delay = parsed
		}
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: Handler(time.Duration(delay) * time.Millisecond)}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("mock upstream server error: %v", err)
		}
	}()

	baseURL := "http://" + ln.Addr().String()
	log.Printf("mock upstream listening on %s (delay_ms=%d)", baseURL, delay)
	return srv.Shutdown, baseURL, nil
}

// Handler serves the mock routes. delay is applied before every inference
// and OCR answer.
func Handler(delay time.Duration) http.Handler {
	wait := func() {
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /models/{model...}", func(w http.ResponseWriter, r *http.Request) {
		wait()
		var req struct {
			Inputs string `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if strings.HasPrefix(req.Inputs, "System:") {
			writeJSON(w, http.StatusOK, []map[string]string{{"generated_text": ChatReply}})
			return
		}
		label, score := classifyURL(req.Inputs)
		writeJSON(w, http.StatusOK, [][]map[string]any{{
			{"label": label, "score": score},
			{"label": otherLabel(label), "score": 1 - score},
		}})
	})

	chatCompletions := func(w http.ResponseWriter, r *http.Request) {
		wait()
		writeJSON(w, http.StatusOK, map[string]any{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "mock-llm",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": ChatReply},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 5, "completion_tokens": 5, "total_tokens": 10},
		})
	}
	mux.HandleFunc("POST /v1/chat/completions", chatCompletions)
	mux.HandleFunc("POST /chat/completions", chatCompletions)

	mux.HandleFunc("POST /api/ocr", func(w http.ResponseWriter, r *http.Request) {
		wait()
		var req struct {
			ImageData string `json:"imageData"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if strings.TrimSpace(req.ImageData) == "" {
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "No image data provided"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "text": OCRText, "confidence": 0.8})
	})

	mux.HandleFunc("GET /w/rest.php/v1/search/title", func(w http.ResponseWriter, r *http.Request) {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		pages := []map[string]string{}
		if len(q) > 2 {
			pages = append(pages, map[string]string{"title": titleCase(q)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("mock upstream unhandled request method=%s path=%s", r.Method, r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not found"})
	})
	return mux
}

func classifyURL(raw string) (string, float64) {
	lc := strings.ToLower(raw)
	for _, tok := range suspiciousTokens {
		if strings.Contains(lc, tok) {
			return "phishing", 0.97
		}
	}
	return "benign", 0.92
}

func otherLabel(label string) string {
	if label == "phishing" {
		return "benign"
	}
	return "phishing"
}

func titleCase(s string) string {
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
