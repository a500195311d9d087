package taxonomy

import (
	"strings"

	ahocorasick "github.com/cloudflare/ahocorasick"
)

// KeywordSet finds whole-word keyword and phrase hits in a single pass over
// text produced by NormalizeText.
type KeywordSet struct {
	keywords []string
	matcher  *ahocorasick.Matcher
}

// NewKeywordSet normalizes every keyword the same way as the text it will be
// matched against and pads it with spaces so partial words never match.
func NewKeywordSet(keywords []string) *KeywordSet {
	ks := &KeywordSet{}
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		normalized := NormalizeText(kw)
		if strings.TrimSpace(normalized) == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		ks.keywords = append(ks.keywords, normalized)
	}
	if len(ks.keywords) > 0 {
		ks.matcher = ahocorasick.NewStringMatcher(ks.keywords)
	}
	return ks
}

// Match returns the distinct keywords found in normalized text.
// It is safe for concurrent use.
func (ks *KeywordSet) Match(normalized string) []string {
	if ks == nil || ks.matcher == nil {
		return nil
	}
	hits := ks.matcher.MatchThreadSafe([]byte(normalized))
	if len(hits) == 0 {
		return nil
	}
	out := make([]string, 0, len(hits))
	seen := make(map[int]bool, len(hits))
	for _, idx := range hits {
		if idx >= len(ks.keywords) || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, strings.TrimSpace(ks.keywords[idx]))
	}
	return out
}

// Len reports the number of distinct keywords.
func (ks *KeywordSet) Len() int {
	if ks == nil {
		return 0
	}
	return len(ks.keywords)
}
