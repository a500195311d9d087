package extract

import (
	"strings"

	"updatestracker/internal/domain"
	"updatestracker/internal/taxonomy"
)

// Classifier assigns a Segment to a section using a taxonomy snapshot.
type Classifier struct {
	tax *taxonomy.Taxonomy
}

func NewClassifier(tax *taxonomy.Taxonomy) Classifier {
	if tax == nil {
		tax = taxonomy.Default()
	}
	return Classifier{tax: tax}
}

// Classify never reports Completed without a completion indicator; a clause
// carrying both kinds of indicator is still in progress.
func (c Classifier) Classify(seg domain.Segment) domain.Classification {
	return classOf(c.tax.Evaluate(seg.Text))
}

func classOf(m taxonomy.Match) domain.Classification {
	switch {
	case m.IsInProgress():
		return domain.ClassInProgress
	case m.IsCompleted():
		return domain.ClassCompleted
	default:
		return domain.ClassAmbiguous
	}
}

// durationFiller are words that may surround a bare duration without making
// the clause a task of its own ("took about 2 hours").
var durationFiller = map[string]bool{
	"for": true, "the": true, "and": true, "took": true, "total": true,
	"spent": true, "roughly": true, "approx": true, "its": true, "was": true,
}

// supportOnly reports whether a clause only describes time spent receiving
// help and so belongs in Support rather than in a bullet list.
func supportOnly(seg domain.Segment, m taxonomy.Match) bool {
	if seg.Duration == "" || len(seg.TicketIDs) > 0 {
		return false
	}
	if m.IsSupport() && !m.IsCompleted() && !m.IsInProgress() {
		return true
	}
	start, end, ok := durationSpan(seg.Text)
	if !ok {
		return false
	}
	rest := taxonomy.NormalizeText(seg.Text[:start] + " " + seg.Text[end:])
	for _, w := range strings.Fields(rest) {
		if len(w) >= 3 && !durationFiller[w] {
			return false
		}
	}
	return true
}

// RuleBased runs the deterministic path over raw text: segment, classify,
// clean up and assemble. It never fails.
func (c Classifier) RuleBased(raw string) domain.ParsedSections {
	var completed, inProgress []string
	var cuedSupport, anySupport string
	for _, seg := range Segment(raw) {
		m := c.tax.Evaluate(seg.Text)
		if seg.Duration != "" {
			if anySupport == "" {
				anySupport = seg.Duration
			}
			if cuedSupport == "" && m.IsSupport() {
				cuedSupport = seg.Duration
			}
		}
		if supportOnly(seg, m) {
			continue
		}
		bullet := CleanBullet(CanonicalizeTickets(seg.Text))
		if bullet == "" {
			continue
		}
		if classOf(m) == domain.ClassCompleted {
			completed = appendDistinct(completed, bullet)
		} else {
			inProgress = appendDistinct(inProgress, bullet)
		}
	}
	support := cuedSupport
	if support == "" {
		support = anySupport
	}
	return domain.NewParsedSections(completed, inProgress, SupportPhrase(support))
}
