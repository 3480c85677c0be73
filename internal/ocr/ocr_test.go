package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type fakeEngine struct {
	text string
	err  error
	got  []byte
}

func (f *fakeEngine) Recognize(ctx context.Context, img []byte) (string, error) {
	f.got = img
	return f.text, f.err
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	return img
}

func pngBase64(t *testing.T) (string, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), buf.Bytes()
}

func TestDecodeImagePassesPNGThrough(t *testing.T) {
	b64, raw := pngBase64(t)
	for _, in := range []string{b64, "data:image/png;base64," + b64} {
		got, err := DecodeImage(in)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !bytes.Equal(got, raw) {
			t.Fatalf("expected PNG bytes to pass through unchanged")
		}
	}
}

func TestDecodeImageConvertsGIF(t *testing.T) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, testImage(), nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}
	got, err := DecodeImage(base64.StdEncoding.EncodeToString(buf.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.HasPrefix(got, []byte("\x89PNG")) {
		t.Fatalf("expected gif to be re-encoded as png")
	}
}

func TestDecodeImageRejects(t *testing.T) {
	if _, err := DecodeImage("   "); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
	text := base64.StdEncoding.EncodeToString([]byte("just some text, not an image"))
	if _, err := DecodeImage(text); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
	if _, err := DecodeImage("data:image/png;base64"); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected malformed data uri error, got %v", err)
	}
	if _, err := DecodeImage("%%%not-base64%%%"); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected base64 error, got %v", err)
	}
}

func TestLocalExtractorTrimsText(t *testing.T) {
	b64, raw := pngBase64(t)
	eng := &fakeEngine{text: "  Verify your account \n"}
	ex := NewLocal(eng)

	text, err := ex.Extract(context.Background(), b64)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "Verify your account" {
		t.Fatalf("text = %q", text)
	}
	if !bytes.Equal(eng.got, raw) {
		t.Fatalf("engine did not receive decoded image")
	}

	if _, err := ex.Extract(context.Background(), ""); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}
}

func TestRunRendersResult(t *testing.T) {
	b64, _ := pngBase64(t)

	ok := Run(context.Background(), NewLocal(&fakeEngine{text: "hello"}), b64)
	if !ok.Success || ok.Text != "hello" || ok.Confidence != PlaceholderConfidence {
		t.Fatalf("unexpected result %+v", ok)
	}

	missing := Run(context.Background(), NewLocal(&fakeEngine{}), "")
	if missing.Success || missing.Error != "No image data provided" {
		t.Fatalf("unexpected result %+v", missing)
	}

	failed := Run(context.Background(), NewLocal(&fakeEngine{err: errors.New("boom")}), b64)
	if failed.Success || !strings.HasPrefix(failed.Error, "OCR processing failed: ") {
		t.Fatalf("unexpected result %+v", failed)
	}
}

func TestHTTPClient(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    Result
		want    string
		wantErr string
	}{
		{"ok", http.StatusOK, Result{Success: true, Text: "win a prize", Confidence: 0.8}, "win a prize", ""},
		{"reported failure", http.StatusOK, Result{Success: false, Error: "bad image"}, "", "bad image"},
		{"status", http.StatusInternalServerError, Result{Success: false, Error: "x"}, "", "ocr service status 500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req extractRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ImageData != "abc" {
					t.Errorf("unexpected request: %+v %v", req, err)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(tc.body)
			}))
			defer srv.Close()

			c := NewHTTP(srv.URL, time.Second)
			text, err := c.Extract(context.Background(), "abc")
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("err = %v, want %q", err, tc.wantErr)
				}
				return
			}
			if err != nil || text != tc.want {
				t.Fatalf("text=%q err=%v", text, err)
			}
		})
	}
}
