package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finguard-ai/finguard/internal/activation"
	"github.com/finguard-ai/finguard/internal/chat"
	"github.com/finguard-ai/finguard/internal/classify"
	"github.com/finguard-ai/finguard/internal/config"
	"github.com/finguard-ai/finguard/internal/ocr"
	"github.com/finguard-ai/finguard/internal/redact"
	"github.com/finguard-ai/finguard/internal/telemetry"
)

const (
	requestIDHeader   = "X-Request-ID"
	maxRequestIDChars = 128
)

// Deps are the collaborators the handlers call. Dispatcher is required; the
// rest may be nil.
type Deps struct {
	Dispatcher *classify.Dispatcher
	// OCR backs /api/ocr. It is the in-process extractor, independent of the
	// one the dispatcher uses for screenshots.
	OCR       ocr.Extractor
	Assistant *chat.Assistant
	Emitter   *activation.Emitter
	Telemetry *telemetry.Provider
}

// Server wraps the HTTP server components for FinGuard.
type Server struct {
	mux        *http.ServeMux
	cfg        *config.Config
	dispatcher *classify.Dispatcher
	ocr        ocr.Extractor
	assistant  *chat.Assistant
	activation *activation.Emitter
	telemetry  *telemetry.Provider
	httpServer *http.Server
}

func New(cfg *config.Config, deps Deps) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Dispatcher == nil {
		deps.Dispatcher = classify.New(nil)
	}
	if deps.Telemetry == nil {
		deps.Telemetry = telemetry.Noop()
	}

	s := &Server{
		mux:        http.NewServeMux(),
		cfg:        cfg,
		dispatcher: deps.Dispatcher,
		ocr:        deps.OCR,
		assistant:  deps.Assistant,
		activation: deps.Emitter,
		telemetry:  deps.Telemetry,
	}

	s.mux.HandleFunc("POST /api/phishing", s.handlePhishing)
	s.mux.HandleFunc("POST /api/ocr", s.handleOCR)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /healthz", handleHealth)
	s.mux.HandleFunc("GET /robots.txt", handleRobots)
	return s
}

// Handler returns the root handler with request ids attached.
func (s *Server) Handler() http.Handler {
	return withRequestID(s.mux)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	sc := s.cfg.Server
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Duration(sc.ReadHeaderTimeoutSeconds) * time.Second,
		ReadTimeout:       time.Duration(sc.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(sc.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(sc.IdleTimeoutSeconds) * time.Second,
	}
	redact.Logf("FinGuard running on %s", addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

type requestIDKey struct{}

// withRequestID keeps a caller supplied X-Request-ID when it is sane and
// mints a uuid otherwise. The id is echoed on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > maxRequestIDChars || strings.ContainsAny(id, "\r\n") {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "ok")
}

const robotsTxt = "User-agent: *\nDisallow: /\n"

func handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(robotsTxt))
}

// decodeBody reads a JSON body within the configured size limit. The returned
// status is 413 for oversized bodies and 400 otherwise.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return http.StatusRequestEntityTooLarge, fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return http.StatusBadRequest, err
	}
	return http.StatusOK, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		redact.Logf("failed to write response: %v", err)
	}
}

func (s *Server) emit(ctx context.Context, ev *activation.Event) {
	if s.activation == nil || ev == nil {
		return
	}
	s.activation.Emit(ctx, ev)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
