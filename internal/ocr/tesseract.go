//go:build tesseract

package ocr

import (
	"context"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine runs Tesseract through cgo. A client is created per call;
// gosseract clients are not safe for concurrent use.
type TesseractEngine struct {
	languages []string
}

func NewTesseract(languages ...string) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractEngine{languages: languages}
}

func (e *TesseractEngine) Recognize(ctx context.Context, img []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return "", err
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	return client.Text()
}
