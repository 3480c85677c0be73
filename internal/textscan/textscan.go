package textscan

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/finguard-ai/finguard/internal/catalog"
	"github.com/finguard-ai/finguard/internal/verdict"
)

const (
	weightFreeMail = 0.1

	weightEmbedded    = 0.1
	embeddedMaxLabels = 3
	embeddedMaxLength = 80

	// IndicatorFreeMail is appended when the sender domain is consumer webmail.
	IndicatorFreeMail = "Suspicious domain"

	extractedTextLimit = 200
)

var (
	emailDomainPattern = regexp.MustCompile(`@([^\s]+)`)
	embeddedURLPattern = regexp.MustCompile(`https?://[^\s]+`)
)

// Match is the outcome of scanning text against one pattern set.
type Match struct {
	Score      float64
	Indicators []string
}

// Scan tests every pattern against text in order and sums the weights of
// those that match.
func Scan(text string, patterns []catalog.WeightedPattern) Match {
	var m Match
	for _, p := range patterns {
		if p.Re.MatchString(text) {
			m.Score += p.Weight
			m.Indicators = append(m.Indicators, p.Description)
		}
	}
	return m
}

// Scorer applies the catalog's text channels.
type Scorer struct {
	cat *catalog.Catalog
}

// New returns a scorer bound to cat, or to the built-in catalog when cat is nil.
func New(cat *catalog.Catalog) *Scorer {
	if cat == nil {
		cat = catalog.MustDefault()
	}
	return &Scorer{cat: cat}
}

func (s *Scorer) Email(text string) verdict.Evidence {
	m := Scan(text, s.cat.Patterns(catalog.ChannelEmail))
	if sm := emailDomainPattern.FindStringSubmatch(text); sm != nil {
		domain := strings.ToLower(sm[1])
		if _, ok := s.cat.FreeMailDomains.ContainsIn(domain); ok {
			m.Score += weightFreeMail
			m.Indicators = append(m.Indicators, IndicatorFreeMail)
		}
	}
	return verdict.Evidence{Score: m.Score, Indicators: m.Indicators}
}

func (s *Scorer) Message(text string) verdict.Evidence {
	m := Scan(text, s.cat.Patterns(catalog.ChannelMessage))
	return verdict.Evidence{Score: m.Score, Indicators: m.Indicators}
}

// Screenshot scores OCR text. Embedded URLs add weight per URL without adding
// indicators, so several bad links compound.
func (s *Scorer) Screenshot(text string) verdict.Evidence {
	m := Scan(text, s.cat.Patterns(catalog.ChannelScreenshot))
	urls := embeddedURLPattern.FindAllString(text, -1)
	for _, raw := range urls {
		m.Score += embeddedURLWeight(raw)
	}
	return verdict.Evidence{
		Score:      m.Score,
		Indicators: m.Indicators,
		TextLength: utf8.RuneCountInString(text),
		URLCount:   len(urls),
	}
}

func embeddedURLWeight(raw string) float64 {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return 0
	}
	host := strings.ToLower(u.Hostname())
	var w float64
	if strings.Contains(host, "-") {
		w += weightEmbedded
	}
	if len(strings.Split(host, ".")) > embeddedMaxLabels {
		w += weightEmbedded
	}
	if utf8.RuneCountInString(raw) > embeddedMaxLength {
		w += weightEmbedded
	}
	return w
}

// Evaluate scores text on a text channel and renders the result.
func (s *Scorer) Evaluate(ch catalog.Channel, text string) verdict.Result {
	res, _ := s.Assess(ch, text)
	return res
}

// Assess is Evaluate that also returns the evidence behind the result.
// Unknown channels are scored as messages.
func (s *Scorer) Assess(ch catalog.Channel, text string) (verdict.Result, verdict.Evidence) {
	var ev verdict.Evidence
	switch ch {
	case catalog.ChannelEmail:
		ev = s.Email(text)
	case catalog.ChannelScreenshot:
		ev = s.Screenshot(text)
	default:
		ch = catalog.ChannelMessage
		ev = s.Message(text)
	}
	res := verdict.Aggregate(ch, ev).Result(ch)
	if ch == catalog.ChannelScreenshot {
		res.ExtractedText = verdict.Truncate(text, extractedTextLimit)
	}
	return res, ev
}
