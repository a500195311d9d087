package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"updatestracker/internal/domain"
)

const minSegmentRunes = 4

var (
	bulletMarkerRe = regexp.MustCompile(`^\s*(?:[-*+•‣◦]|\d+[.)])\s+`)
	alsoRe         = regexp.MustCompile(`(?i)\b(?:and\s+)?also\b`)

	punctuationFolder = strings.NewReplacer(
		"‘", "'", "’", "'", "“", `"`, "”", `"`,
		"–", "-", "—", "-",
	)
)

// Segment splits free text into clauses and annotates each with its ticket
// ids and first duration phrase. It never fails; empty input yields nil.
func Segment(input string) []domain.Segment {
	text := punctuationFolder.Replace(norm.NFKC.String(input))
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []domain.Segment
	for _, line := range strings.Split(text, "\n") {
		line = bulletMarkerRe.ReplaceAllString(line, "")
		for _, clause := range splitClauses(line) {
			for _, piece := range splitAlso(clause) {
				piece = trimClause(piece)
				if utf8.RuneCountInString(piece) < minSegmentRunes {
					continue
				}
				out = append(out, domain.Segment{
					Text:      piece,
					TicketIDs: ExtractTickets(piece),
					Duration:  FindDuration(piece),
				})
			}
		}
	}
	return out
}

// splitClauses cuts a line at sentence terminators, semicolons and commas.
// A period only ends a clause when followed by a blank or the end of the
// line, so "v1.2" and "1.5 hours" stay whole. A comma directly followed by a
// ticket reference is a list separator and does not cut.
func splitClauses(line string) []string {
	var out []string
	start := 0
	for i := 0; i < len(line); i++ {
		cut := false
		switch line[i] {
		case '!', '?', ';':
			cut = true
		case '.':
			cut = i+1 == len(line) || line[i+1] == ' ' || line[i+1] == '\t'
		case ',':
			cut = !startsWithTicket(line[i+1:])
		}
		if cut {
			out = append(out, line[start:i])
			start = i + 1
		}
	}
	if start < len(line) {
		out = append(out, line[start:])
	}
	return out
}

// splitAlso cuts at "also" / "and also" unless a ticket reference follows,
// so "fixed LAA-1 and also LAA-2" keeps both tickets together.
func splitAlso(clause string) []string {
	locs := alsoRe.FindAllStringIndex(clause, -1)
	if len(locs) == 0 {
		return []string{clause}
	}
	var out []string
	start := 0
	for _, loc := range locs {
		if startsWithTicket(clause[loc[1]:]) {
			continue
		}
		out = append(out, clause[start:loc[0]])
		start = loc[1]
	}
	return append(out, clause[start:])
}

func trimClause(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == ':' || r == ',' || r == '"'
	})
	return spaceRunRe.ReplaceAllString(s, " ")
}
