package urlcheck

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/finguard-ai/finguard/internal/catalog"
	"github.com/finguard-ai/finguard/internal/verdict"
)

// ErrInvalidURL is returned by Inspect when the input cannot be parsed into a
// URL with a host.
var ErrInvalidURL = errors.New("invalid url")

const (
	weightHyphen    = 0.2
	weightSubdomain = 0.3
	weightLength    = 0.2
	weightInsecure  = 0.3
	weightTyposquat = 0.5
	weightTLD       = 0.4
	weightIP        = 0.4
	weightShortener = 0.3
	weightPath      = 0.2

	minSubdomainLabels = 4
	maxURLLength       = 90

	maxPort = 65535
)

const (
	IndicatorHyphen    = "Hyphens in hostname"
	IndicatorSubdomain = "Multiple subdomains detected"
	IndicatorLength    = "Long URL length"
	IndicatorInsecure  = "Not using HTTPS protocol"
	IndicatorTyposquat = "Potential typosquatting detected"
	IndicatorTLD       = "Suspicious top-level domain"
	IndicatorIP        = "Uses IP address instead of domain name"
	IndicatorShortener = "Shortened URL detected"
	IndicatorPath      = "Suspicious keywords in URL path"
)

var ipv4Pattern = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// Report is the structural breakdown of one URL.
type Report struct {
	Input            string
	Scheme           string
	Host             string
	Path             string
	RegisteredDomain string
	Score            float64
	Indicators       []string
}

// Analyzer evaluates URLs against the catalog's URL denylists.
type Analyzer struct {
	cat *catalog.Catalog
}

// New returns an analyzer bound to cat, or to the built-in catalog when cat is nil.
func New(cat *catalog.Catalog) *Analyzer {
	if cat == nil {
		cat = catalog.MustDefault()
	}
	return &Analyzer{cat: cat}
}

// Normalize prefixes https:// unless the input already carries an http or
// https scheme.
func Normalize(raw string) string {
	lc := strings.ToLower(raw)
	if strings.HasPrefix(lc, "http://") || strings.HasPrefix(lc, "https://") {
		return raw
	}
	return "https://" + raw
}

// Inspect parses raw and runs every structural rule in a fixed order.
func (a *Analyzer) Inspect(raw string) (Report, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Report{}, ErrInvalidURL
	}
	u, err := url.Parse(Normalize(raw))
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Report{}, ErrInvalidURL
	}
	if port := u.Port(); port != "" {
		if n, err := strconv.Atoi(port); err != nil || n < 0 || n > maxPort {
			return Report{}, fmt.Errorf("%w: port %s out of range", ErrInvalidURL, port)
		}
	}
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	} else {
		return Report{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	rep := Report{
		Input:  raw,
		Scheme: u.Scheme,
		Host:   host,
		Path:   u.EscapedPath(),
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		rep.RegisteredDomain = d
	}

	hit := func(ok bool, w float64, indicator string) {
		if ok {
			rep.Score += w
			rep.Indicators = append(rep.Indicators, indicator)
		}
	}
	_, typo := a.cat.TyposquatTokens.ContainsIn(host)
	_, tld := a.cat.SuspiciousTLDs.SuffixOf(host)
	_, short := a.cat.Shorteners.ContainsIn(host)
	_, pathHit := a.cat.PathKeywords.ContainsIn(strings.ToLower(rep.Path))

	hit(strings.Contains(host, "-"), weightHyphen, IndicatorHyphen)
	hit(len(strings.Split(host, ".")) >= minSubdomainLabels, weightSubdomain, IndicatorSubdomain)
	hit(utf8.RuneCountInString(raw) > maxURLLength, weightLength, IndicatorLength)
	hit(rep.Scheme != "https", weightInsecure, IndicatorInsecure)
	hit(typo, weightTyposquat, IndicatorTyposquat)
	hit(tld, weightTLD, IndicatorTLD)
	hit(ipv4Pattern.MatchString(host), weightIP, IndicatorIP)
	hit(short, weightShortener, IndicatorShortener)
	hit(pathHit, weightPath, IndicatorPath)

	return rep, nil
}

// Result aggregates the report into a rule-based classification.
func (r Report) Result() verdict.Result {
	ev := verdict.Evidence{Score: r.Score, Indicators: r.Indicators}
	return verdict.Aggregate(catalog.ChannelURL, ev).Result(catalog.ChannelURL)
}

// InvalidResult is returned for input that does not parse as a URL.
func InvalidResult() verdict.Result {
	return verdict.Failure(verdict.InvalidURL, catalog.ChannelURL,
		"The provided URL is not valid.",
		"Please check the URL format and try again.")
}

// Analyze is Inspect followed by Result.
func (a *Analyzer) Analyze(raw string) verdict.Result {
	rep, err := a.Inspect(raw)
	if err != nil {
		return InvalidResult()
	}
	return rep.Result()
}
