package catalog

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Channel identifies which input kind a pattern set applies to.
type Channel string

const (
	ChannelURL        Channel = "url"
	ChannelEmail      Channel = "email"
	ChannelMessage    Channel = "message"
	ChannelScreenshot Channel = "screenshot"
)

// ErrEmptyPattern is returned when a pattern definition has no expression.
var ErrEmptyPattern = errors.New("catalog: empty pattern")

// WeightedPattern is a compiled case-insensitive expression with the weight
// it contributes when it matches. Description is what shows up in details.
type WeightedPattern struct {
	Re          *regexp.Regexp
	Weight      float64
	Description string
}

// Catalog holds the read-only pattern sets and denylists. Build it once with
// Compile, Default or Load and share the pointer.
type Catalog struct {
	patterns map[Channel][]WeightedPattern

	FreeMailDomains Denylist
	SuspiciousTLDs  Denylist
	Shorteners      Denylist
	TyposquatTokens Denylist
	PathKeywords    Denylist
}

// PatternDef is the uncompiled form of a WeightedPattern.
type PatternDef struct {
	Pattern     string  `yaml:"pattern"`
	Weight      float64 `yaml:"weight"`
	Description string  `yaml:"description"`
}

// Definition is the YAML layout of a catalog file. Any section left empty
// keeps the built-in content when loaded through Load.
type Definition struct {
	Email      []PatternDef `yaml:"email"`
	Message    []PatternDef `yaml:"message"`
	Screenshot []PatternDef `yaml:"screenshot"`

	FreeMailDomains []string `yaml:"free_mail_domains"`
	SuspiciousTLDs  []string `yaml:"suspicious_tlds"`
	Shorteners      []string `yaml:"shorteners"`
	TyposquatTokens []string `yaml:"typosquat_tokens"`
	PathKeywords    []string `yaml:"path_keywords"`
}

// Patterns returns the ordered pattern set for a channel. The URL channel has
// no text patterns; it is driven by the denylists.
func (c *Catalog) Patterns(ch Channel) []WeightedPattern {
	if c == nil {
		return nil
	}
	return c.patterns[ch]
}

// Compile validates and compiles a definition.
func Compile(def Definition) (*Catalog, error) {
	c := &Catalog{
		patterns:        make(map[Channel][]WeightedPattern, 3),
		FreeMailDomains: NewDenylist(def.FreeMailDomains...),
		SuspiciousTLDs:  NewDenylist(def.SuspiciousTLDs...),
		Shorteners:      NewDenylist(def.Shorteners...),
		TyposquatTokens: NewDenylist(def.TyposquatTokens...),
		PathKeywords:    NewDenylist(def.PathKeywords...),
	}

	sets := []struct {
		ch   Channel
		defs []PatternDef
	}{
		{ChannelEmail, def.Email},
		{ChannelMessage, def.Message},
		{ChannelScreenshot, def.Screenshot},
	}
	for _, s := range sets {
		compiled, err := compilePatterns(s.ch, s.defs)
		if err != nil {
			return nil, err
		}
		c.patterns[s.ch] = compiled
	}
	return c, nil
}

func compilePatterns(ch Channel, defs []PatternDef) ([]WeightedPattern, error) {
	out := make([]WeightedPattern, 0, len(defs))
	for i, d := range defs {
		src := strings.TrimSpace(d.Pattern)
		if src == "" {
			return nil, fmt.Errorf("%s pattern %d: %w", ch, i, ErrEmptyPattern)
		}
		if !(d.Weight > 0 && d.Weight <= 1) {
			return nil, fmt.Errorf("%s pattern %d (%s): weight must be in (0,1], got %v", ch, i, src, d.Weight)
		}
		re, err := regexp.Compile("(?i)" + src)
		if err != nil {
			return nil, fmt.Errorf("%s pattern %d: %w", ch, i, err)
		}
		desc := d.Description
		if desc == "" {
			desc = src
		}
		out = append(out, WeightedPattern{Re: re, Weight: d.Weight, Description: desc})
	}
	return out, nil
}

// Default compiles the built-in catalog.
func Default() (*Catalog, error) {
	return Compile(DefaultDefinition())
}

// MustDefault is Default for package initialisation; it panics on error.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads a YAML catalog file and overlays it on the built-in definition.
// An empty path returns the default catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var override Definition
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return Compile(overlay(DefaultDefinition(), override))
}

func overlay(base, o Definition) Definition {
	if len(o.Email) > 0 {
		base.Email = o.Email
	}
	if len(o.Message) > 0 {
		base.Message = o.Message
	}
	if len(o.Screenshot) > 0 {
		base.Screenshot = o.Screenshot
	}
	if len(o.FreeMailDomains) > 0 {
		base.FreeMailDomains = o.FreeMailDomains
	}
	if len(o.SuspiciousTLDs) > 0 {
		base.SuspiciousTLDs = o.SuspiciousTLDs
	}
	if len(o.Shorteners) > 0 {
		base.Shorteners = o.Shorteners
	}
	if len(o.TyposquatTokens) > 0 {
		base.TyposquatTokens = o.TyposquatTokens
	}
	if len(o.PathKeywords) > 0 {
		base.PathKeywords = o.PathKeywords
	}
	return base
}
