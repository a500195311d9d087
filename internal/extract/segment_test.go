package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"updatestracker/internal/domain"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []domain.Segment
	}{
		{
			name:  "empty",
			input: "   ",
			want:  nil,
		},
		{
			name:  "comma and tickets",
			input: "will test 117 today, done with LAA-107 and LAA-90",
			want: []domain.Segment{
				{Text: "will test 117 today", TicketIDs: []string{"TASK-117"}},
				{Text: "done with LAA-107 and LAA-90", TicketIDs: []string{"LAA-107", "LAA-90"}},
			},
		},
		{
			name:  "ticket list after comma stays together",
			input: "fixed LAA-1, LAA-2 and LAA-3",
			want: []domain.Segment{
				{Text: "fixed LAA-1, LAA-2 and LAA-3", TicketIDs: []string{"LAA-1", "LAA-2", "LAA-3"}},
			},
		},
		{
			name:  "and between tasks does not split",
			input: "Task 50 and Task 51 are merged",
			want: []domain.Segment{
				{Text: "Task 50 and Task 51 are merged", TicketIDs: []string{"TASK-50", "TASK-51"}},
			},
		},
		{
			name:  "also splits unless a ticket follows",
			input: "Reviewed the PR also deployed the hotfix. Fixed LAA-1 and also LAA-2",
			want: []domain.Segment{
				{Text: "Reviewed the PR"},
				{Text: "deployed the hotfix"},
				{Text: "Fixed LAA-1 and also LAA-2", TicketIDs: []string{"LAA-1", "LAA-2"}},
			},
		},
		{
			name:  "decimal and version numbers",
			input: "Shipped v1.2 of the SDK. Investigating a 1.5 hour regression!",
			want: []domain.Segment{
				{Text: "Shipped v1.2 of the SDK"},
				{Text: "Investigating a 1.5 hour regression", Duration: "1.5 hours"},
			},
		},
		{
			name:  "bullets newlines and short fragments",
			input: "- done with docs\n* ok.\n2. will sync with QA; eh",
			want: []domain.Segment{
				{Text: "done with docs"},
				{Text: "will sync with QA"},
			},
		},
		{
			name:  "smart punctuation",
			input: "I’m done with the “login” page",
			want: []domain.Segment{
				{Text: "I'm done with the \"login\" page"},
			},
		},
		{
			name:  "support duration",
			input: "Got help from Sam for more than 20 min.",
			want: []domain.Segment{
				{Text: "Got help from Sam for more than 20 min", Duration: "more than 20 minutes"},
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Segment(tc.input)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Segment(%q) mismatch (-want +got):\n%s", tc.input, diff)
			}
		})
	}
}

func TestExtractTickets(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"fixed laa 107", []string{"LAA-107"}},
		{"JIRA-45 and ticket 9", []string{"JIRA-45", "TICKET-9"}},
		{"reviewed #42", []string{"TASK-42"}},
		{"task50 then TASK 51", []string{"TASK-50", "TASK-51"}},
		{"LAA-1 blocked LAA-1 again", []string{"LAA-1"}},
		{"will test 117 today", []string{"TASK-117"}},
		{"tested 30 minutes with QA", nil},
		{"fixed 3 bugs", nil},
		{"fixed 12 bugs", nil},
		{"closed 12 stale tickets", nil},
		{"will review 42 open PRs", nil},
		{"working on 117", []string{"TASK-117"}},
		{"deployed 88, then lunch", []string{"TASK-88"}},
		{"LAA-1, LAA-1, LAA-1 again", []string{"LAA-1"}},
		{"nothing here", nil},
	}
	for _, tc := range tests {
		got := ExtractTickets(tc.input)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Fatalf("ExtractTickets(%q) mismatch (-want +got):\n%s", tc.input, diff)
		}
	}
}

func TestCanonicalizeTickets(t *testing.T) {
	tests := map[string]string{
		"will test 117 today":          "will test TASK-117 today",
		"fixed laa 107 and jira45":     "fixed LAA-107 and JIRA-45",
		"reviewed #42 for task 7":      "reviewed TASK-42 for TASK-7",
		"no tickets in this sentence":  "no tickets in this sentence",
		"fixed 12 bugs in the parser":  "fixed 12 bugs in the parser",
		"closed 12 stale tickets":      "closed 12 stale tickets",
		"will review 42 open PRs next": "will review 42 open PRs next",
	}
	for in, want := range tests {
		if got := CanonicalizeTickets(in); got != want {
			t.Fatalf("CanonicalizeTickets(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFindDuration(t *testing.T) {
	tests := map[string]string{
		"got help for more than 20 min": "more than 20 minutes",
		"paired about 2 hrs":             "about 2 hours",
		"Over 45 mins with Sam":          "Over 45 minutes",
		"spent 1 hr":                     "1 hour",
		"took 1 min":                     "1 minute",
		"20min call":                     "20 minutes",
		"approximately 1.5 hours":        "approximately 1.5 hours",
		"around 10 minutes then 2 hours": "around 10 minutes",
		"no time at all":                 "",
	}
	for in, want := range tests {
		if got := FindDuration(in); got != want {
			t.Fatalf("FindDuration(%q) = %q, want %q", in, got, want)
		}
	}
	if got := SupportPhrase(FindDuration("more than 20 min")); got != "More than 20 minutes" {
		t.Fatalf("unexpected support phrase %q", got)
	}
}
