package slackbot

import (
	"fmt"
	"strings"

	"updatestracker/internal/domain"
)

// formatSections renders sections as Slack mrkdwn.
func formatSections(p domain.ParsedSections) string {
	var b strings.Builder
	writeList := func(title string, lines []string) {
		fmt.Fprintf(&b, "*%s*\n", title)
		if domain.SectionIsNone(lines) {
			b.WriteString("_None_\n")
			return
		}
		for _, line := range lines {
			fmt.Fprintf(&b, "• %s\n", line)
		}
	}
	writeList("Completed", p.Completed)
	b.WriteString("\n")
	writeList("In Progress", p.InProgress)
	b.WriteString("\n*Support*\n")
	if domain.IsNone(p.Support) {
		b.WriteString("_None_\n")
	} else {
		b.WriteString(p.Support + "\n")
	}
	return b.String()
}

func methodNote(method domain.Method, model, fallbackReason string) string {
	if method == domain.MethodGenerated {
		return fmt.Sprintf("_Formatted with %s_", model)
	}
	switch fallbackReason {
	case "", "disabled", "no_generator":
		return "_Formatted with the built-in rules_"
	}
	return fmt.Sprintf("_Formatted with the built-in rules (generation %s)_", strings.ReplaceAll(fallbackReason, "_", " "))
}
