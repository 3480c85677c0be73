package ocr

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/h2non/filetype"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxImageBytes caps decoded screenshots; larger images make OCR crawl.
const MaxImageBytes = 20 * 1024 * 1024

// DecodeImage accepts raw base64 or a data URI, checks the payload is an
// image and returns bytes the engine can read directly. PNG and JPEG pass
// through; anything else decodable is re-encoded as PNG.
func DecodeImage(imageData string) ([]byte, error) {
	payload := strings.TrimSpace(imageData)
	if payload == "" {
		return nil, ErrNoImage
	}
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return nil, fmt.Errorf("%w: malformed data uri", ErrUnsupportedImage)
		}
		payload = payload[idx+1:]
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrUnsupportedImage, MaxImageBytes)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
	}

	if !filetype.IsImage(raw) {
		return nil, ErrUnsupportedImage
	}
	kind, _ := filetype.Match(raw)
	switch kind.Extension {
	case "png", "jpg":
		return raw, nil
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedImage, kind.Extension, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("re-encode %s as png: %w", kind.Extension, err)
	}
	return buf.Bytes(), nil
}
