//go:build !tesseract

package ocr

import "context"

// TesseractEngine is unavailable without the tesseract build tag.
type TesseractEngine struct {
	languages []string
}

func NewTesseract(languages ...string) *TesseractEngine {
	return &TesseractEngine{languages: languages}
}

func (e *TesseractEngine) Recognize(ctx context.Context, img []byte) (string, error) {
	return "", ErrEngineUnavailable
}
