package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoImage is returned when the request carries no image data.
	ErrNoImage = errors.New("no image data provided")
	// ErrUnsupportedImage is returned when the payload is not a decodable image.
	ErrUnsupportedImage = errors.New("unsupported image data")
	// ErrEngineUnavailable is returned by the engine stub in builds without tesseract.
	ErrEngineUnavailable = errors.New("ocr engine unavailable in this build")
)

// PlaceholderConfidence is reported with every successful extraction; the
// engine does not expose a calibrated page confidence.
const PlaceholderConfidence = 0.8

// NoImageMessage is the error reported for a request without image data.
const NoImageMessage = "No image data provided"

// Result is the wire shape of an OCR response.
type Result struct {
	Success    bool    `json:"success"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// Extractor turns screenshot image data (base64 or data URI) into text.
type Extractor interface {
	Extract(ctx context.Context, imageData string) (string, error)
}

// Engine recognises text in an already decoded PNG or JPEG.
type Engine interface {
	Recognize(ctx context.Context, img []byte) (string, error)
}

// LocalExtractor decodes the image in-process and hands it to an Engine.
type LocalExtractor struct {
	engine Engine
}

func NewLocal(engine Engine) *LocalExtractor {
	return &LocalExtractor{engine: engine}
}

func (l *LocalExtractor) Extract(ctx context.Context, imageData string) (string, error) {
	if strings.TrimSpace(imageData) == "" {
		return "", ErrNoImage
	}
	if l == nil || l.engine == nil {
		return "", ErrEngineUnavailable
	}
	img, err := DecodeImage(imageData)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := l.engine.Recognize(ctx, img)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// Run executes an extraction and renders it as a wire Result.
func Run(ctx context.Context, ex Extractor, imageData string) Result {
	text, err := ex.Extract(ctx, imageData)
	if err != nil {
		if errors.Is(err, ErrNoImage) {
			return Result{Success: false, Error: NoImageMessage}
		}
		return Result{Success: false, Error: "OCR processing failed: " + err.Error()}
	}
	return Result{Success: true, Text: text, Confidence: PlaceholderConfidence}
}
