// Package taxonomy holds the keyword and pattern tables that decide whether a
// status clause reads as completed, in progress, or support time. The same
// snapshot feeds the rule-based classifier and the generation prompt, so the
// two strategies are judged against identical rules.
package taxonomy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// PatternRule is a regex evaluated against normalized text. A match whose
// first capture group is listed in Exclude is ignored.
type PatternRule struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Pattern     string   `yaml:"pattern"`
	Exclude     []string `yaml:"exclude"`

	re      *regexp.Regexp
	exclude map[string]bool
}

// Spec is the serializable form of a taxonomy, as written in the YAML file.
type Spec struct {
	CompletedKeywords    []string      `yaml:"completed_keywords"`
	InProgressKeywords   []string      `yaml:"in_progress_keywords"`
	SupportKeywords      []string      `yaml:"support_keywords"`
	CompletedPatterns    []PatternRule `yaml:"completed_patterns"`
	InProgressPatterns   []PatternRule `yaml:"in_progress_patterns"`
	HallucinationMarkers []string      `yaml:"hallucination_markers"`
	// Replace discards the built-in tables instead of extending them.
	Replace bool `yaml:"replace"`
}

// Taxonomy is an immutable, compiled Spec. It is safe for concurrent use.
type Taxonomy struct {
	spec Spec

	completed  *KeywordSet
	inProgress *KeywordSet
	support    *KeywordSet

	completedPatterns  []PatternRule
	inProgressPatterns []PatternRule
	markers            []string
}

// Match lists what a piece of text triggered in each table.
type Match struct {
	Completed  []string
	InProgress []string
	Support    []string
}

func (m Match) IsCompleted() bool  { return len(m.Completed) > 0 }
func (m Match) IsInProgress() bool { return len(m.InProgress) > 0 }
func (m Match) IsSupport() bool    { return len(m.Support) > 0 }

// New compiles a Spec.
func New(spec Spec) (*Taxonomy, error) {
	t := &Taxonomy{spec: spec}
	var err error
	if t.completedPatterns, err = compileRules(spec.CompletedPatterns); err != nil {
		return nil, fmt.Errorf("completed patterns: %w", err)
	}
	if t.inProgressPatterns, err = compileRules(spec.InProgressPatterns); err != nil {
		return nil, fmt.Errorf("in-progress patterns: %w", err)
	}
	t.completed = NewKeywordSet(spec.CompletedKeywords)
	t.inProgress = NewKeywordSet(spec.InProgressKeywords)
	t.support = NewKeywordSet(spec.SupportKeywords)
	for _, m := range spec.HallucinationMarkers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			t.markers = append(t.markers, m)
		}
	}
	return t, nil
}

func compileRules(rules []PatternRule) ([]PatternRule, error) {
	out := make([]PatternRule, 0, len(rules))
	for _, r := range rules {
		if strings.TrimSpace(r.Pattern) == "" {
			continue
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		r.re = re
		r.exclude = make(map[string]bool, len(r.Exclude))
		for _, w := range r.Exclude {
			r.exclude[strings.ToLower(strings.TrimSpace(w))] = true
		}
		out = append(out, r)
	}
	return out, nil
}

// Merge extends base with the entries of overlay, or replaces it entirely
// when overlay.Replace is set. Keywords keep first-seen order.
func Merge(base, overlay Spec) Spec {
	if overlay.Replace {
		overlay.Replace = false
		return overlay
	}
	return Spec{
		CompletedKeywords:    appendUnique(base.CompletedKeywords, overlay.CompletedKeywords),
		InProgressKeywords:   appendUnique(base.InProgressKeywords, overlay.InProgressKeywords),
		SupportKeywords:      appendUnique(base.SupportKeywords, overlay.SupportKeywords),
		CompletedPatterns:    append(append([]PatternRule(nil), base.CompletedPatterns...), overlay.CompletedPatterns...),
		InProgressPatterns:   append(append([]PatternRule(nil), base.InProgressPatterns...), overlay.InProgressPatterns...),
		HallucinationMarkers: appendUnique(base.HallucinationMarkers, overlay.HallucinationMarkers),
	}
}

func appendUnique(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, s := range list {
			key := strings.ToLower(strings.TrimSpace(s))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

// Spec returns a copy of the source tables.
func (t *Taxonomy) Spec() Spec {
	return t.spec
}

// Evaluate runs every table against text.
func (t *Taxonomy) Evaluate(text string) Match {
	norm := NormalizeText(text)
	m := Match{
		Completed:  t.completed.Match(norm),
		InProgress: t.inProgress.Match(norm),
		Support:    t.support.Match(norm),
	}
	m.Completed = append(m.Completed, matchRules(t.completedPatterns, norm)...)
	m.InProgress = append(m.InProgress, matchRules(t.inProgressPatterns, norm)...)
	return m
}

func matchRules(rules []PatternRule, norm string) []string {
	var hits []string
	for _, r := range rules {
		for _, sm := range r.re.FindAllStringSubmatch(norm, -1) {
			word := sm[0]
			if len(sm) > 1 && sm[1] != "" {
				word = sm[1]
			}
			if r.exclude[strings.TrimSpace(word)] {
				continue
			}
			hits = append(hits, r.Name+":"+strings.TrimSpace(word))
			break
		}
	}
	return hits
}

// HallucinationMarker returns the first known marker contained in text.
func (t *Taxonomy) HallucinationMarker(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, m := range t.markers {
		if strings.Contains(lower, m) {
			return m, true
		}
	}
	return "", false
}

// NormalizeText lowercases text, drops apostrophes so contractions become one
// token ("I'm" -> "im"), turns every other non-alphanumeric rune into a space
// and pads the result with single spaces. Keywords are matched against this
// form so that they only ever hit whole words.
func NormalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte(' ')
	lastSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
			continue
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	if !lastSpace {
		b.WriteByte(' ')
	}
	return b.String()
}
