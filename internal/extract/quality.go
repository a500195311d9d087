package extract

import (
	"fmt"
	"strings"

	"updatestracker/internal/domain"
	"updatestracker/internal/taxonomy"
)

const (
	DefaultMaxBullets       = 5
	DefaultMaxTicketRepeats = 1
)

// Red flag kinds.
const (
	FlagTooManyBullets  = "too_many_bullets"
	FlagDuplicateTicket = "duplicate_ticket"
	FlagHallucination   = "hallucination_marker"
	FlagEmptyOutput     = "empty_output"
)

type RedFlag struct {
	Kind   string
	Detail string
}

func (f RedFlag) String() string { return f.Kind + ": " + f.Detail }

// QualityGate decides whether generated sections can be trusted.
type QualityGate struct {
	MaxBullets       int
	MaxTicketRepeats int
	// ExtraMarkers are checked in addition to the taxonomy markers.
	ExtraMarkers []string
}

func DefaultQualityGate() QualityGate {
	return QualityGate{MaxBullets: DefaultMaxBullets, MaxTicketRepeats: DefaultMaxTicketRepeats}
}

// Check returns every red flag raised by a generated result. ruleBased is the
// deterministic extraction of the same input; generated output that finds
// nothing where the rules found something is rejected.
func (g QualityGate) Check(tax *taxonomy.Taxonomy, generated domain.ParsedSections, rawGenerated string, ruleBased domain.ParsedSections) []RedFlag {
	maxBullets := g.MaxBullets
	if maxBullets <= 0 {
		maxBullets = DefaultMaxBullets
	}
	maxRepeats := g.MaxTicketRepeats
	if maxRepeats <= 0 {
		maxRepeats = DefaultMaxTicketRepeats
	}

	var flags []RedFlag
	for _, sec := range []struct {
		name  string
		lines []string
	}{
		{"completed", generated.Completed},
		{"inProgress", generated.InProgress},
	} {
		if domain.SectionIsNone(sec.lines) {
			continue
		}
		if len(sec.lines) > maxBullets {
			flags = append(flags, RedFlag{FlagTooManyBullets, fmt.Sprintf("%s has %d bullets (max %d)", sec.name, len(sec.lines), maxBullets)})
		}
		counts, order := countExplicitTickets(sec.lines)
		for _, id := range order {
			if counts[id] > maxRepeats {
				flags = append(flags, RedFlag{FlagDuplicateTicket, fmt.Sprintf("%s repeats %s %d times", sec.name, id, counts[id])})
			}
		}
	}

	if tax != nil {
		if marker, ok := tax.HallucinationMarker(rawGenerated); ok {
			flags = append(flags, RedFlag{FlagHallucination, marker})
		}
	}
	lower := strings.ToLower(rawGenerated)
	for _, m := range g.ExtraMarkers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" && strings.Contains(lower, m) {
			flags = append(flags, RedFlag{FlagHallucination, m})
			break
		}
	}

	if generated.AllNone() && !ruleBased.AllNone() {
		flags = append(flags, RedFlag{FlagEmptyOutput, "generated sections are empty but the input has content"})
	}
	return flags
}
