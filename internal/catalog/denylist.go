package catalog

import "strings"

// Denylist is an ordered, lowercase set of tokens. The zero value is empty.
type Denylist struct {
	entries []string
}

// NewDenylist trims, lowercases and de-duplicates entries, keeping first-seen order.
func NewDenylist(entries ...string) Denylist {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return Denylist{entries: out}
}

// ContainsIn reports the first entry that occurs as a substring of s.
func (d Denylist) ContainsIn(s string) (string, bool) {
	lc := strings.ToLower(s)
	for _, e := range d.entries {
		if strings.Contains(lc, e) {
			return e, true
		}
	}
	return "", false
}

// SuffixOf reports the first entry that s ends with.
func (d Denylist) SuffixOf(s string) (string, bool) {
	lc := strings.ToLower(s)
	for _, e := range d.entries {
		if strings.HasSuffix(lc, e) {
			return e, true
		}
	}
	return "", false
}

func (d Denylist) Entries() []string {
	out := make([]string, len(d.entries))
	copy(out, d.entries)
	return out
}

func (d Denylist) Len() int { return len(d.entries) }
