package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoCredential means the HTTP backend has no usable API key.
var ErrNoCredential = errors.New("model: no credential configured")

// PlaceholderAPIKey is the value shipped in sample env files; it counts as unset.
const PlaceholderAPIKey = "your_huggingface_api_key_here"

// Kind tags an Outcome.
type Kind int

const (
	// Unavailable: no credential, the caller should use the rule engine.
	Unavailable Kind = iota
	// Transport: the call failed or returned a non-2xx status.
	Transport
	// Unparseable: 2xx with a body that is not JSON.
	Unparseable
	// Unrecognized: JSON without a usable label.
	Unrecognized
	// Classified: a label and score were returned.
	Classified
)

func (k Kind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case Transport:
		return "transport"
	case Unparseable:
		return "unparseable"
	case Unrecognized:
		return "unrecognized"
	case Classified:
		return "classified"
	default:
		return "unknown"
	}
}

// Outcome is the result of asking a model to classify a URL. Only the fields
// that belong to Kind are set.
type Outcome struct {
	Kind  Kind
	Label string
	Score float64
	Err   error
	Raw   string
}

// Classifier is implemented by the HTTP and ONNX backends.
type Classifier interface {
	Classify(ctx context.Context, rawURL string) Outcome
}

var unsafeLabels = map[string]struct{}{
	"phishing":   {},
	"malware":    {},
	"defacement": {},
	"squatting":  {},
}

// IsUnsafeLabel reports whether a model label maps to Unsafe.
func IsUnsafeLabel(label string) bool {
	_, ok := unsafeLabels[strings.ToLower(strings.TrimSpace(label))]
	return ok
}

// UsableKey reports whether key is set and is not the sample placeholder.
func UsableKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderAPIKey
}

// Shape is the recognised layout of an inference response body.
type Shape int

const (
	ShapeUnrecognized Shape = iota
	ShapeLabel
	ShapeText
	ShapeError
)

// Decoded is a response body reduced to the parts callers use.
type Decoded struct {
	Shape Shape
	Label string
	Score float64
	Text  string
	Error string
}

type labelScore struct {
	Label         string   `json:"label"`
	Score         *float64 `json:"score"`
	GeneratedText *string  `json:"generated_text"`
	Error         string   `json:"error"`
}

// Decode classifies an inference body. It returns an error only when the body
// is not JSON at all.
func Decode(body []byte) (Decoded, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return Decoded{}, err
	}
	trimmed := bytes.TrimSpace(body)

	switch x := v.(type) {
	case string:
		return Decoded{Shape: ShapeText, Text: x}, nil
	case map[string]any:
		var ls labelScore
		if err := json.Unmarshal(trimmed, &ls); err == nil {
			return fromLabelScore(ls), nil
		}
	case []any:
		if len(x) == 0 {
			return Decoded{Shape: ShapeUnrecognized}, nil
		}
		first, err := json.Marshal(x[0])
		if err != nil {
			return Decoded{Shape: ShapeUnrecognized}, nil
		}
		var ls labelScore
		if err := json.Unmarshal(first, &ls); err == nil {
			return fromLabelScore(ls), nil
		}
		var nested []labelScore
		if err := json.Unmarshal(first, &nested); err == nil && len(nested) > 0 && nested[0].Label != "" {
			return fromLabelScore(nested[0]), nil
		}
	}
	return Decoded{Shape: ShapeUnrecognized}, nil
}

func fromLabelScore(ls labelScore) Decoded {
	switch {
	case ls.Label != "":
		d := Decoded{Shape: ShapeLabel, Label: ls.Label}
		if ls.Score != nil {
			d.Score = *ls.Score
		}
		return d
	case ls.GeneratedText != nil:
		return Decoded{Shape: ShapeText, Text: *ls.GeneratedText}
	case ls.Error != "":
		return Decoded{Shape: ShapeError, Error: ls.Error}
	default:
		return Decoded{Shape: ShapeUnrecognized}
	}
}

// OutcomeFromBody maps a 2xx body onto an Outcome.
func OutcomeFromBody(body []byte) Outcome {
	d, err := Decode(body)
	if err != nil {
		return Outcome{Kind: Unparseable, Raw: string(body), Err: err}
	}
	if d.Shape != ShapeLabel {
		return Outcome{Kind: Unrecognized, Raw: string(body)}
	}
	return Outcome{Kind: Classified, Label: d.Label, Score: d.Score}
}
