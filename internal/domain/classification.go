package domain

import (
	"strings"
	"time"
)

// NoneSentinel marks an empty section. Consumers compare against the literal,
// so it must never be replaced by an empty string or an empty list.
const NoneSentinel = "None"

type Classification string

const (
	ClassCompleted  Classification = "completed"
	ClassInProgress Classification = "in_progress"
	ClassAmbiguous  Classification = "ambiguous"
)

type Method string

const (
	MethodGenerated Method = "generated"
	MethodRuleBased Method = "rule-based"
)

func (m Method) Valid() bool {
	return m == MethodGenerated || m == MethodRuleBased
}

// RawInput is the user's unstructured text for one report. Accomplishments is
// required; the remaining fields are legacy free-text blocks folded into the
// same extraction.
type RawInput struct {
	Accomplishments string `json:"accomplishments"`
	InProgress      string `json:"inProgress,omitempty"`
	Blockers        string `json:"blockers,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

func (r RawInput) Empty() bool {
	return strings.TrimSpace(r.Accomplishments) == ""
}

// Text joins the non-empty blocks in field order, terminating each block so
// the tokenizer sees a sentence boundary between them.
func (r RawInput) Text() string {
	var parts []string
	for _, block := range []string{r.Accomplishments, r.InProgress, r.Blockers, r.Notes} {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if !strings.ContainsAny(block[len(block)-1:], ".!?") {
			block += "."
		}
		parts = append(parts, block)
	}
	return strings.Join(parts, "\n")
}

type Segment struct {
	Text      string
	TicketIDs []string
	Duration  string
}

type ParsedSections struct {
	Completed  []string `json:"completed"`
	InProgress []string `json:"inProgress"`
	Support    string   `json:"support"`
}

// NewParsedSections applies the None sentinel to empty inputs.
func NewParsedSections(completed, inProgress []string, support string) ParsedSections {
	return ParsedSections{
		Completed:  orNone(completed),
		InProgress: orNone(inProgress),
		Support:    supportOrNone(support),
	}
}

func orNone(lines []string) []string {
	var out []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || IsNone(line) {
			continue
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		return []string{NoneSentinel}
	}
	return out
}

func supportOrNone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || IsNone(s) {
		return NoneSentinel
	}
	return s
}

// IsNone reports whether s is the None sentinel, tolerating case and a
// trailing period as generated text tends to produce.
func IsNone(s string) bool {
	return strings.EqualFold(strings.TrimSuffix(strings.TrimSpace(s), "."), NoneSentinel)
}

// SectionIsNone reports whether a bullet section carries only the sentinel.
func SectionIsNone(lines []string) bool {
	return len(lines) == 0 || (len(lines) == 1 && IsNone(lines[0]))
}

// AllNone reports whether nothing at all was extracted.
func (p ParsedSections) AllNone() bool {
	return SectionIsNone(p.Completed) && SectionIsNone(p.InProgress) && IsNone(p.Support)
}

type ExtractionResult struct {
	Sections         ParsedSections `json:"parsedSections"`
	Method           Method         `json:"method"`
	Model            string         `json:"model,omitempty"`
	RawGeneratedText string         `json:"rawGeneratedText,omitempty"`
	FallbackReason   string         `json:"fallbackReason,omitempty"`
}

type ReportStatus string

const (
	StatusDraft     ReportStatus = "draft"
	StatusCompleted ReportStatus = "completed"
	StatusArchived  ReportStatus = "archived"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Report is a committed extraction together with the input it came from.
type Report struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	ReportDate       time.Time      `json:"date"`
	RawInputs        RawInput       `json:"rawInputs"`
	Sections         ParsedSections `json:"parsedSections"`
	Method           Method         `json:"method"`
	Model            string         `json:"llmModel"`
	RawGeneratedText string         `json:"formattedReport,omitempty"`
	FallbackReason   string         `json:"fallbackReason,omitempty"`
	Status           ReportStatus   `json:"status"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}

func DefaultReportTitle(date time.Time) string {
	return "Daily Report - " + date.Format("2006-01-02")
}
