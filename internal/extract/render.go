package extract

import (
	"strings"

	"updatestracker/internal/domain"
)

// Render writes sections in the heading contract understood by
// ExtractSections, so ExtractSections(Render(p)) reproduces p.
func Render(p domain.ParsedSections) string {
	var b strings.Builder
	writeList(&b, "Completed", p.Completed)
	b.WriteString("\n")
	writeList(&b, "In Progress", p.InProgress)
	b.WriteString("\n## Support\n")
	if domain.IsNone(p.Support) || strings.TrimSpace(p.Support) == "" {
		b.WriteString(domain.NoneSentinel)
	} else {
		b.WriteString(strings.TrimSpace(p.Support))
	}
	b.WriteString("\n")
	return b.String()
}

func writeList(b *strings.Builder, title string, lines []string) {
	b.WriteString("## " + title + "\n")
	if domain.SectionIsNone(lines) {
		b.WriteString(domain.NoneSentinel + "\n")
		return
	}
	for _, line := range lines {
		b.WriteString("- " + line + "\n")
	}
}
