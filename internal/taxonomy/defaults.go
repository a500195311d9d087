package taxonomy

// Patterns run against NormalizeText output: lowercase, no apostrophes,
// single spaces, padded on both ends.

var defaultCompletedKeywords = []string{
	"finished", "completed", "complete", "done", "resolved", "closed", "fixed",
	"updated", "created", "deployed", "merged", "shipped", "released",
	"delivered", "implemented", "submitted", "wrapped up", "got over the line",
	"cleared", "sorted out", "took care of", "signed off", "handed over",
	"did", "made", "wrote", "built", "sent", "ran", "spent",
}

var defaultInProgressKeywords = []string{
	"will", "going to", "gonna", "plan to", "planning to", "about to",
	"currently", "testing", "working on", "developing", "investigating",
	"in progress", "ongoing", "still", "continue", "continuing", "next",
	"tomorrow", "later today", "by end of week", "eow", "eod", "wip",
	"not done", "not yet", "not finished", "pending", "waiting", "blocked",
	"scheduled", "planned", "assigned", "need to", "have to",
}

var defaultSupportKeywords = []string{
	"help", "helped", "helping", "support", "supported", "assist", "assisted",
	"assistance", "guidance", "guided", "paired", "pairing", "pair programming",
	"mentored", "walked me through", "showed me", "explained", "unblocked me",
}

var defaultCompletedPatterns = []PatternRule{
	{
		Name:        "past_tense",
		Description: "a verb in the simple past (ends in -ed), e.g. \"tested\", \"reviewed\"",
		Pattern:     `\b([a-z]{3,}ed)\b`,
		Exclude: []string{
			"need", "speed", "feed", "seed", "embed", "indeed", "proceed", "succeed",
			"exceed", "hundred", "shed", "bleed", "breed", "deed", "weed", "greed",
			"based", "related", "detailed", "blocked", "scheduled", "planned",
			"assigned", "unblocked", "helped", "supported", "assisted", "paired",
			"guided", "mentored",
		},
	},
}

var defaultInProgressPatterns = []PatternRule{
	{
		Name:        "continuous",
		Description: "a present or past continuous form, e.g. \"am testing\", \"is still running\"",
		Pattern:     `\b(?:am|is|are|im|was|were|still|currently|been)\s+(?:[a-z]+\s+)?([a-z]{3,}ing)\b`,
		Exclude:     []string{"nothing", "something", "anything", "everything", "thing", "morning", "evening"},
	},
	{
		Name:        "leading_gerund",
		Description: "a clause that opens with an -ing verb, e.g. \"Reviewing the PR\"",
		Pattern:     `^\s(?:i\s|we\s)?([a-z]{3,}ing)\b`,
		Exclude: []string{
			"during", "nothing", "something", "anything", "everything", "thing",
			"morning", "evening", "meeting", "helping", "pairing",
		},
	},
	{
		Name:        "deadline",
		Description: "a future deadline, e.g. \"by end of week\", \"by EOD\", \"before Friday\"",
		Pattern:     `\b(?:by|before|until|till)\s+(?:the\s+)?(?:end\s+of\s+(?:the\s+)?(?:day|week|month|sprint)|eod|eow|tomorrow|tonight|monday|tuesday|wednesday|thursday|friday|next\s+week)\b`,
	},
}

var defaultHallucinationMarkers = []string{
	"as an ai",
	"as a language model",
	"[insert",
	"lorem ipsum",
	"<|",
	"now format this update",
	"output format:",
	"i'm sorry, but",
}

// DefaultSpec returns a copy of the built-in tables.
func DefaultSpec() Spec {
	return Spec{
		CompletedKeywords:    append([]string(nil), defaultCompletedKeywords...),
		InProgressKeywords:   append([]string(nil), defaultInProgressKeywords...),
		SupportKeywords:      append([]string(nil), defaultSupportKeywords...),
		CompletedPatterns:    append([]PatternRule(nil), defaultCompletedPatterns...),
		InProgressPatterns:   append([]PatternRule(nil), defaultInProgressPatterns...),
		HallucinationMarkers: append([]string(nil), defaultHallucinationMarkers...),
	}
}

// Default compiles the built-in tables. They are known to compile, so a
// failure here is a programming error.
func Default() *Taxonomy {
	t, err := New(DefaultSpec())
	if err != nil {
		panic("taxonomy: built-in tables: " + err.Error())
	}
	return t
}
