package extract

import (
	"fmt"
	"strings"

	"updatestracker/internal/taxonomy"
)

type fewShot struct {
	input  string
	output string
}

var fewShots = []fewShot{
	{
		input: "Finished LAA-101 login page, will test 117 today. Got help from Priya for more than 20 min.",
		output: `## Completed
- Finished LAA-101 login page

## In Progress
- Will test TASK-117 today

## Support
More than 20 minutes`,
	},
	{
		input: "working on JIRA-88 export bug and also reviewed #42",
		output: `## Completed
- Reviewed TASK-42

## In Progress
- Working on JIRA-88 export bug

## Support
None`,
	},
	{
		input: "wrapped up the onboarding docs",
		output: `## Completed
- Wrapped up the onboarding docs

## In Progress
None

## Support
None`,
	},
}

// BuildPrompt renders the generation prompt for raw. The classification
// rules are taken from tax so the generated and rule-based paths agree on
// what counts as done. The raw text appears verbatim before and after the
// instructions.
func BuildPrompt(tax *taxonomy.Taxonomy, raw string) string {
	if tax == nil {
		tax = taxonomy.Default()
	}
	spec := tax.Spec()

	var b strings.Builder
	b.WriteString("You turn a developer's free-form daily standup update into a structured report.\n\n")
	b.WriteString("Update to format:\n\"\"\"\n")
	b.WriteString(raw)
	b.WriteString("\n\"\"\"\n\n")

	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "1. Completed: only items the text shows as finished. Completion cues: %s.\n", quoteList(spec.CompletedKeywords))
	for _, r := range spec.CompletedPatterns {
		if r.Description != "" {
			fmt.Fprintf(&b, "   Also: %s.\n", r.Description)
		}
	}
	fmt.Fprintf(&b, "2. In Progress: items that are ongoing or planned. In-progress cues: %s.\n", quoteList(spec.InProgressKeywords))
	for _, r := range spec.InProgressPatterns {
		if r.Description != "" {
			fmt.Fprintf(&b, "   Also: %s.\n", r.Description)
		}
	}
	b.WriteString("3. An item with both kinds of cue, or with neither, goes under In Progress.\n")
	b.WriteString("4. Keep every ticket reference and write it as PREFIX-NUMBER (LAA-123, JIRA-45). " +
		"\"#12\" and \"Task 12\" become TASK-12; a bare number after a work verb (\"test 117\") becomes TASK-117. Never drop a ticket.\n")
	fmt.Fprintf(&b, "5. Support is time spent receiving help (cues: %s). "+
		"Write only the first duration phrase, exactly as given, e.g. \"More than 20 minutes\".\n", quoteList(spec.SupportKeywords))
	b.WriteString("6. One short bullet per task. Drop \"I\" at the start of a bullet. Do not invent tasks, tickets or durations.\n")
	b.WriteString("7. Write None for an empty section. Reply with the report only, no commentary.\n\n")

	b.WriteString("Output format:\n## Completed\n- <task>\n\n## In Progress\n- <task>\n\n## Support\n<duration or None>\n\n")

	for i, ex := range fewShots {
		fmt.Fprintf(&b, "Example %d\nUpdate: %s\nReport:\n%s\n\n", i+1, ex.input, ex.output)
	}

	b.WriteString("Now format this update:\n\"\"\"\n")
	b.WriteString(raw)
	b.WriteString("\n\"\"\"\nReport:\n")
	return b.String()
}

func quoteList(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, `"`+w+`"`)
	}
	return strings.Join(quoted, ", ")
}
