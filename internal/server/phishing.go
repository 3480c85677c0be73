package server

import (
	"net/http"
	"time"

	"github.com/finguard-ai/finguard/internal/activation"
	"github.com/finguard-ai/finguard/internal/classify"
	"github.com/finguard-ai/finguard/internal/redact"
	"github.com/finguard-ai/finguard/internal/telemetry"
	"github.com/finguard-ai/finguard/internal/verdict"
)

func (s *Server) handlePhishing(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := s.telemetry.StartSpan(r.Context(), "finguard.classify", nil)
	defer span.End()

	var in classify.Input
	if status, err := s.decodeBody(w, r, &in); err != nil {
		redact.Logf("phishing: rejected body: %v", err)
		writeJSON(w, status, verdict.Failure(verdict.Invalid, "", "", invalidBodyDetail(status)))
		return
	}

	dec := s.dispatcher.Classify(ctx, in)
	elapsed := time.Since(start)
	v := verdict.Of(dec.Result.Label)

	span.SetAttributes(telemetry.SafeAttributes(map[string]interface{}{
		"finguard.channel":    string(dec.Channel),
		"finguard.method":     string(dec.Method),
		"finguard.verdict":    string(v),
		"finguard.indicators": dec.Indicators,
	})...)
	s.telemetry.RecordClassification(ctx, string(dec.Channel), string(dec.Method), string(v), dec.ModelKind, millis(elapsed))
	s.emit(ctx, activation.BuildClassification(activation.ClassificationParams{
		RequestID: requestIDFrom(ctx),
		Decision:  dec,
		Latency:   elapsed,
	}))
	redact.Logf("phishing: request=%s channel=%s method=%s label=%q confidence=%.3f", requestIDFrom(ctx), dec.Channel, dec.Method, dec.Result.Label, dec.Result.Confidence)

	status := http.StatusOK
	if v == verdict.Error {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, dec.Result)
}

func invalidBodyDetail(status int) string {
	if status == http.StatusRequestEntityTooLarge {
		return "Request body is too large."
	}
	return "Request body must be a JSON object with one of url, email, message, or screenshot."
}
