package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalogCompiles(t *testing.T) {
	c := MustDefault()

	counts := map[Channel]int{
		ChannelEmail:      7,
		ChannelMessage:    7,
		ChannelScreenshot: 8,
		ChannelURL:        0,
	}
	for ch, want := range counts {
		if got := len(c.Patterns(ch)); got != want {
			t.Fatalf("%s: expected %d patterns, got %d", ch, want, got)
		}
	}
	if c.TyposquatTokens.Len() != 9 {
		t.Fatalf("expected 9 typosquat tokens, got %d", c.TyposquatTokens.Len())
	}
	if c.Patterns(ChannelEmail)[0].Description != "urgent|immediate|act now|limited time" {
		t.Fatalf("unexpected description %q", c.Patterns(ChannelEmail)[0].Description)
	}
}

func TestPatternsAreCaseInsensitive(t *testing.T) {
	c := MustDefault()
	p := c.Patterns(ChannelMessage)[0]
	if !p.Re.MatchString("URGENT: reply") {
		t.Fatalf("expected upper-case text to match %q", p.Description)
	}
}

func TestCompileRejectsBadDefinitions(t *testing.T) {
	cases := []struct {
		name string
		def  Definition
	}{
		{"empty", Definition{Email: []PatternDef{{Pattern: "  ", Weight: 0.2}}}},
		{"zero weight", Definition{Email: []PatternDef{{Pattern: "x", Weight: 0}}}},
		{"heavy weight", Definition{Message: []PatternDef{{Pattern: "x", Weight: 1.5}}}},
		{"bad regex", Definition{Screenshot: []PatternDef{{Pattern: "(unclosed", Weight: 0.2}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Compile(tc.def); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	_, err := Compile(Definition{Email: []PatternDef{{Pattern: "", Weight: 0.2}}})
	if !errors.Is(err, ErrEmptyPattern) {
		t.Fatalf("expected ErrEmptyPattern, got %v", err)
	}
}

func TestDenylistMatching(t *testing.T) {
	d := NewDenylist(" Bit.ly ", "t.co", "bit.ly", "")
	if d.Len() != 2 {
		t.Fatalf("expected dedup to 2 entries, got %v", d.Entries())
	}
	if got, ok := d.ContainsIn("www.MICROSOFT.com"); !ok || got != "t.co" {
		t.Fatalf("expected t.co substring hit, got %q %v", got, ok)
	}

	tlds := NewDenylist(".tk", ".click")
	if _, ok := tlds.SuffixOf("evil.TK"); !ok {
		t.Fatalf("expected suffix hit")
	}
	if _, ok := tlds.SuffixOf("tk.example.com"); ok {
		t.Fatalf("unexpected suffix hit")
	}

	var zero Denylist
	if _, ok := zero.ContainsIn("anything"); ok {
		t.Fatalf("zero denylist should never match")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	data := []byte(`
message:
  - pattern: "gift card"
    weight: 0.6
    description: "Gift card request"
shorteners:
  - is.gd
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	msg := c.Patterns(ChannelMessage)
	if len(msg) != 1 || msg[0].Description != "Gift card request" {
		t.Fatalf("unexpected message patterns: %+v", msg)
	}
	if len(c.Patterns(ChannelEmail)) != 7 {
		t.Fatalf("email patterns should keep defaults")
	}
	if _, ok := c.Shorteners.ContainsIn("is.gd"); !ok {
		t.Fatalf("expected overridden shortener list")
	}
	if _, ok := c.Shorteners.ContainsIn("bit.ly"); ok {
		t.Fatalf("override should replace the shortener list")
	}
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Patterns(ChannelScreenshot)) != 8 {
		t.Fatalf("expected default screenshot patterns")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing catalog file")
	}
}
