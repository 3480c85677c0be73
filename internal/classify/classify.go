package classify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/finguard-ai/finguard/internal/catalog"
	"github.com/finguard-ai/finguard/internal/model"
	"github.com/finguard-ai/finguard/internal/ocr"
	"github.com/finguard-ai/finguard/internal/redact"
	"github.com/finguard-ai/finguard/internal/textscan"
	"github.com/finguard-ai/finguard/internal/urlcheck"
	"github.com/finguard-ai/finguard/internal/verdict"
)

// OCRUnavailableText stands in for screenshot text when extraction fails.
const OCRUnavailableText = "OCR service temporarily unavailable. Please use URL, Email, or Message detection instead."

const rawExcerptLimit = 200

// Input is the request body of the classification endpoint. At most one
// field is used.
type Input struct {
	URL        string `json:"url,omitempty"`
	Email      string `json:"email,omitempty"`
	Message    string `json:"message,omitempty"`
	Screenshot string `json:"screenshot,omitempty"`
}

// Select returns the first populated field in the order url, email,
// message, screenshot. Whitespace-only fields count as empty.
func (in Input) Select() (catalog.Channel, string, bool) {
	switch {
	case strings.TrimSpace(in.URL) != "":
		return catalog.ChannelURL, in.URL, true
	case strings.TrimSpace(in.Email) != "":
		return catalog.ChannelEmail, in.Email, true
	case strings.TrimSpace(in.Message) != "":
		return catalog.ChannelMessage, in.Message, true
	case strings.TrimSpace(in.Screenshot) != "":
		return catalog.ChannelScreenshot, in.Screenshot, true
	}
	return "", "", false
}

// Method names the engine that produced a decision.
type Method string

const (
	MethodNone  Method = "none"
	MethodRules Method = "rules"
	MethodModel Method = "model"
)

// Decision is a result plus the routing metadata used for events and metrics.
type Decision struct {
	Result  verdict.Result
	Channel catalog.Channel
	Method  Method
	// Domain is the registrable domain of a URL input, when it parsed.
	Domain     string
	ModelKind  string
	Indicators int
}

// Dispatcher routes an Input to the right scorer.
type Dispatcher struct {
	urls  *urlcheck.Analyzer
	text  *textscan.Scorer
	model model.Classifier
	ocr   ocr.Extractor
}

type Option func(*Dispatcher)

// WithModel sets the primary URL classifier. Without one, URLs go straight
// to the rule engine.
func WithModel(c model.Classifier) Option {
	return func(d *Dispatcher) { d.model = c }
}

// WithOCR sets the screenshot text extractor.
func WithOCR(e ocr.Extractor) Option {
	return func(d *Dispatcher) { d.ocr = e }
}

func New(cat *catalog.Catalog, opts ...Option) *Dispatcher {
	if cat == nil {
		cat = catalog.MustDefault()
	}
	d := &Dispatcher{
		urls: urlcheck.New(cat),
		text: textscan.New(cat),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Classify never returns an error: every failure becomes a result. A panic
// anywhere below is reported as an Error result.
func (d *Dispatcher) Classify(ctx context.Context, in Input) (dec Decision) {
	ch, value, ok := in.Select()
	defer func() {
		if r := recover(); r != nil {
			redact.Logf("classify: recovered panic on %s channel: %v", ch, r)
			dec = Decision{
				Result:  verdict.Failure(verdict.Error, ch, "", "Internal error: "+fmt.Sprint(r)),
				Channel: ch,
				Method:  MethodNone,
			}
		}
	}()

	if !ok {
		return Decision{
			Result: verdict.Failure(verdict.Invalid, "", "",
				"No input provided. Please provide URL, email, message, or screenshot."),
			Method: MethodNone,
		}
	}

	switch ch {
	case catalog.ChannelURL:
		dec = d.classifyURL(ctx, value)
	case catalog.ChannelScreenshot:
		dec = d.classifyScreenshot(ctx, value)
	default:
		res, ev := d.text.Assess(ch, value)
		dec = Decision{Result: res, Method: MethodRules, Indicators: len(ev.Indicators)}
	}
	dec.Channel = ch
	return dec
}

func (d *Dispatcher) classifyURL(ctx context.Context, raw string) Decision {
	rep, inspectErr := d.urls.Inspect(raw)
	rules := func() Decision {
		if inspectErr != nil {
			return Decision{Result: urlcheck.InvalidResult(), Method: MethodRules}
		}
		return Decision{
			Result:     rep.Result(),
			Method:     MethodRules,
			Domain:     rep.RegisteredDomain,
			Indicators: len(rep.Indicators),
		}
	}

	if d.model == nil {
		return rules()
	}

	out := d.model.Classify(ctx, strings.TrimSpace(raw))
	switch out.Kind {
	case model.Unavailable, model.Unrecognized:
		dec := rules()
		dec.ModelKind = out.Kind.String()
		return dec

	case model.Transport:
		err := out.Err
		if err == nil {
			err = errors.New("model request failed")
		}
		redact.Logf("classify: model transport error: %v", err)
		return Decision{
			Result: verdict.Failure(verdict.APIError, catalog.ChannelURL, err.Error(),
				"Please check your API key and try again."),
			Method:    MethodModel,
			Domain:    rep.RegisteredDomain,
			ModelKind: out.Kind.String(),
		}

	case model.Unparseable:
		excerpt := []rune(out.Raw)
		if len(excerpt) > rawExcerptLimit {
			excerpt = excerpt[:rawExcerptLimit]
		}
		return Decision{
			Result: verdict.Failure(verdict.ParseError, catalog.ChannelURL,
				"Model did not return valid JSON. Raw response: "+string(excerpt)+"...",
				"The model response could not be parsed. This might be a temporary issue."),
			Method:    MethodModel,
			Domain:    rep.RegisteredDomain,
			ModelKind: out.Kind.String(),
		}
	}

	return Decision{
		Result:     modelResult(out, rep.Indicators),
		Method:     MethodModel,
		Domain:     rep.RegisteredDomain,
		ModelKind:  out.Kind.String(),
		Indicators: len(rep.Indicators),
	}
}

// modelResult renders a Classified outcome. The structural indicators are
// appended whatever the model decided.
func modelResult(out model.Outcome, indicators []string) verdict.Result {
	conf := out.Score
	if math.IsNaN(conf) || conf < 0 {
		conf = 0
	}
	conf = math.Min(conf, 1)

	v := verdict.Safe
	if model.IsUnsafeLabel(out.Label) {
		v = verdict.Unsafe
	}

	var summary string
	if v == verdict.Unsafe {
		summary = fmt.Sprintf("Model predicts %s with %s confidence.", out.Label, verdict.Percent(conf, 1))
	} else {
		summary = fmt.Sprintf("Model predicts the URL is likely benign (%s confidence).", verdict.Percent(conf, 1))
	}

	details := []string{
		"Raw model label: " + out.Label,
		"Model confidence: " + verdict.Percent(conf, 2),
	}
	details = append(details, indicators...)

	return verdict.Result{
		Label:      fmt.Sprintf("%s (%s)", v, out.Label),
		Confidence: conf,
		Summary:    summary,
		Details:    details,
		Type:       string(catalog.ChannelURL),
	}
}

func (d *Dispatcher) classifyScreenshot(ctx context.Context, imageData string) Decision {
	var (
		text string
		err  error
	)
	if d.ocr == nil {
		err = ocr.ErrEngineUnavailable
	} else {
		text, err = d.ocr.Extract(ctx, imageData)
	}
	if err != nil {
		redact.Logf("classify: ocr failed, scoring placeholder text: %v", err)
		text = OCRUnavailableText
	}

	if strings.TrimSpace(text) == "" {
		return Decision{
			Result: verdict.Failure(verdict.NoTextDetected, catalog.ChannelScreenshot,
				"No readable text found in the screenshot.",
				"Please ensure the screenshot contains clear, readable text."),
			Method: MethodNone,
		}
	}
	res, ev := d.text.Assess(catalog.ChannelScreenshot, text)
	return Decision{Result: res, Method: MethodRules, Indicators: len(ev.Indicators)}
}
