package extract

import (
	"regexp"
	"sort"
	"strings"
)

const defaultTicketPrefix = "TASK"

var (
	prefixedTicketRe = regexp.MustCompile(`(?i)\b(LAA|JIRA|TICKET)[-\s]*(\d+)\b`)
	hashTicketRe     = regexp.MustCompile(`#(\d+)\b`)
	taskTicketRe     = regexp.MustCompile(`(?i)\b(task)\s*(\d+)\b`)
	// A bare number right after a work verb, as in "will test 117 today".
	verbNumberRe = regexp.MustCompile(`(?i)\b(?:test|testing|tested|fix|fixing|fixed|deploy|deploying|deployed|review|reviewing|reviewed|close|closing|closed|merge|merging|merged|finish|finishing|finished|complete|completing|completed|resolve|resolving|resolved|update|updating|updated|ship|shipping|shipped|start|starting|started|pick up|picked up|picking up|work on|working on|worked on)\s+(\d{2,})\b`)
	// The bare number only counts when it ends the clause or is followed by a
	// time word. "fixed 12 bugs" is a quantity.
	bareTailRe = regexp.MustCompile(`(?i)^[ \t]*(?:$|\r?\n|[.,;:!?)\]]|(?:today|tomorrow|tonight|next|this|later|now|asap|eod|eow)\b)`)
)

type ticketMatch struct {
	start, end int
	id         string
}

// findTickets returns non-overlapping ticket references in text order.
// withBare also accepts a bare number after a work verb.
func findTickets(text string, withBare bool) []ticketMatch {
	var all []ticketMatch
	for _, m := range prefixedTicketRe.FindAllStringSubmatchIndex(text, -1) {
		all = append(all, ticketMatch{
			start: m[0],
			end:   m[1],
			id:    strings.ToUpper(text[m[2]:m[3]]) + "-" + text[m[4]:m[5]],
		})
	}
	for _, m := range hashTicketRe.FindAllStringSubmatchIndex(text, -1) {
		all = append(all, ticketMatch{start: m[0], end: m[1], id: defaultTicketPrefix + "-" + text[m[2]:m[3]]})
	}
	for _, m := range taskTicketRe.FindAllStringSubmatchIndex(text, -1) {
		all = append(all, ticketMatch{start: m[0], end: m[1], id: defaultTicketPrefix + "-" + text[m[4]:m[5]]})
	}
	for _, m := range verbNumberRe.FindAllStringSubmatchIndex(text, -1) {
		if !withBare || !bareTailRe.MatchString(text[m[3]:]) {
			continue
		}
		// Only the number is the reference; the verb stays as written.
		all = append(all, ticketMatch{start: m[2], end: m[3], id: defaultTicketPrefix + "-" + text[m[2]:m[3]]})
	}
	if len(all) == 0 {
		return nil
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].end > all[j].end
	})
	out := all[:0:0]
	lastEnd := -1
	for _, m := range all {
		if m.start < lastEnd {
			continue
		}
		out = append(out, m)
		lastEnd = m.end
	}
	return out
}

// ExtractTickets returns the canonical PREFIX-NUMBER ids referenced in text,
// deduplicated in encounter order.
func ExtractTickets(text string) []string {
	matches := findTickets(text, true)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var ids []string
	for _, m := range matches {
		if seen[m.id] {
			continue
		}
		seen[m.id] = true
		ids = append(ids, m.id)
	}
	return ids
}

// CanonicalizeTickets rewrites every ticket reference in text to its
// canonical form: "laa 107" -> "LAA-107", "#42" -> "TASK-42",
// "test 117" -> "test TASK-117".
func CanonicalizeTickets(text string) string {
	matches := findTickets(text, true)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8*len(matches))
	prev := 0
	for _, m := range matches {
		b.WriteString(text[prev:m.start])
		b.WriteString(m.id)
		prev = m.end
	}
	b.WriteString(text[prev:])
	return b.String()
}

// countExplicitTickets counts every explicit ticket reference across lines,
// repeats included. Bare numbers are ignored.
func countExplicitTickets(lines []string) (counts map[string]int, order []string) {
	counts = make(map[string]int)
	for _, line := range lines {
		for _, m := range findTickets(line, false) {
			if counts[m.id] == 0 {
				order = append(order, m.id)
			}
			counts[m.id]++
		}
	}
	return counts, order
}

// startsWithTicket reports whether text, ignoring leading blanks, opens
// with an explicit ticket reference.
func startsWithTicket(text string) bool {
	trimmed := strings.TrimLeft(text, " \t")
	if trimmed == "" {
		return false
	}
	for _, re := range []*regexp.Regexp{prefixedTicketRe, hashTicketRe, taskTicketRe} {
		if loc := re.FindStringIndex(trimmed); loc != nil && loc[0] == 0 {
			return true
		}
	}
	return false
}
