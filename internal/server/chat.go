package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/finguard-ai/finguard/internal/activation"
	"github.com/finguard-ai/finguard/internal/chat"
	"github.com/finguard-ai/finguard/internal/redact"
)

const chatFailureMessage = "Error generating response."

type chatRequest struct {
	Messages []chat.Turn `json:"messages"`
}

type chatFailure struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := s.telemetry.StartSpan(r.Context(), "finguard.chat", nil)
	defer span.End()

	var req chatRequest
	if status, err := s.decodeBody(w, r, &req); err != nil {
		if status != http.StatusRequestEntityTooLarge {
			status = http.StatusInternalServerError
		}
		redact.Logf("chat: rejected body: %v", err)
		writeJSON(w, status, chatFailure{Message: chatFailureMessage})
		return
	}

	var (
		reply chat.Reply
		err   error
	)
	if s.assistant == nil {
		err = errors.New("chat assistant not configured")
	} else {
		reply, err = s.assistant.Respond(ctx, req.Messages)
	}
	elapsed := time.Since(start)
	failed := err != nil

	s.telemetry.RecordChat(ctx, s.cfg.Chat.Provider, failed, len(reply.Citations), millis(elapsed))
	s.emit(ctx, activation.BuildChat(activation.ChatParams{
		RequestID: requestIDFrom(ctx),
		Provider:  s.cfg.Chat.Provider,
		Model:     s.cfg.Chat.Model,
		Turns:     len(req.Messages),
		Citations: len(reply.Citations),
		Failed:    failed,
		Latency:   elapsed,
	}))

	if failed {
		redact.Logf("chat: request=%s failed: %v", requestIDFrom(ctx), err)
		span.RecordError(err)
		writeJSON(w, http.StatusInternalServerError, chatFailure{Message: chatFailureMessage})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
