package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/finguard-ai/finguard/internal/ocr"
	"github.com/finguard-ai/finguard/internal/redact"
)

type ocrRequest struct {
	ImageData string `json:"imageData"`
}

// handleOCR extracts text from one image. Missing image data is a normal
// 200 response with success=false; extraction failures are 500.
func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := s.telemetry.StartSpan(r.Context(), "finguard.ocr", nil)
	defer span.End()

	var req ocrRequest
	if status, err := s.decodeBody(w, r, &req); err != nil {
		if status != http.StatusRequestEntityTooLarge {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, ocr.Result{Success: false, Error: "OCR processing failed: " + err.Error()})
		return
	}

	if strings.TrimSpace(req.ImageData) == "" {
		writeJSON(w, http.StatusOK, ocr.Result{Success: false, Error: ocr.NoImageMessage})
		return
	}

	ex := s.ocr
	if ex == nil {
		ex = ocr.NewLocal(nil)
	}
	res := ocr.Run(ctx, ex, req.ImageData)
	s.telemetry.RecordOCR(ctx, res.Success, millis(time.Since(start)))

	status := http.StatusOK
	if !res.Success {
		redact.Logf("ocr: request=%s failed: %s", requestIDFrom(ctx), res.Error)
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}
