package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/finguard-ai/finguard/internal/activation"
)

func main() {
	addr := flag.String("addr", ":8099", "listen address for activation receiver")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /activation", handleActivation)
	mux.HandleFunc("POST /", handleActivation)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("activation receiver listening on %s (POST JSON to /activation)...", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("receiver error: %v", err)
	}
}

func handleActivation(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	var ev activation.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Printf("received malformed activation event: path=%s len=%d err=%v", r.URL.Path, len(body), err)
		http.Error(w, "invalid event", http.StatusBadRequest)
		return
	}

	log.Printf("received activation event: %s", summarize(&ev))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintln(w, `{"status":"ok"}`)
}

func summarize(ev *activation.Event) string {
	switch {
	case ev.Classification != nil:
		c := ev.Classification
		return fmt.Sprintf("request=%s kind=%s channel=%s method=%s verdict=%s confidence=%.3f indicators=%d total_ms=%.2f",
			ev.RequestID, ev.Kind, c.Channel, c.Method, c.Verdict, c.Confidence, c.IndicatorCount, ev.TimingMs.Total)
	case ev.Chat != nil:
		c := ev.Chat
		return fmt.Sprintf("request=%s kind=%s provider=%s model=%s turns=%d citations=%d failed=%t total_ms=%.2f",
			ev.RequestID, ev.Kind, c.Provider, c.Model, c.Turns, c.Citations, c.Failed, ev.TimingMs.Total)
	default:
		return fmt.Sprintf("request=%s kind=%s", ev.RequestID, ev.Kind)
	}
}
