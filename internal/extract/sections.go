package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"updatestracker/internal/domain"
)

var (
	headingRe   = regexp.MustCompile(`^\s*#{1,6}\s*([A-Za-z*_].*?)\s*:?\s*$`)
	jsonFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

type sectionKey int

const (
	sectionNone sectionKey = iota
	sectionCompleted
	sectionInProgress
	sectionSupport
)

func sectionFor(heading string) sectionKey {
	heading = strings.Trim(heading, "*_: ")
	h := strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(heading, "-", " ")), " "))
	switch h {
	case "completed":
		return sectionCompleted
	case "in progress":
		return sectionInProgress
	case "support":
		return sectionSupport
	}
	return sectionNone
}

// ExtractSections parses generated text into sections. It accepts either the
// heading contract (## Completed / ## In Progress / ## Support) or a JSON
// object, optionally code-fenced.
func ExtractSections(text string) (domain.ParsedSections, error) {
	if p, ok := parseHeadings(text); ok {
		return p, nil
	}
	if raw, ok := jsonCandidate(text); ok {
		return parseJSONSections(raw)
	}
	return domain.ParsedSections{}, domain.ErrNoSectionsFound
}

func parseHeadings(text string) (domain.ParsedSections, bool) {
	bodies := map[sectionKey][]string{}
	found := false
	current := sectionNone
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			current = sectionFor(m[1])
			if current != sectionNone {
				found = true
				if _, ok := bodies[current]; !ok {
					bodies[current] = nil
				}
			}
			continue
		}
		if current == sectionNone {
			continue
		}
		line = strings.TrimSpace(bulletMarkerRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		bodies[current] = append(bodies[current], line)
	}
	if !found {
		return domain.ParsedSections{}, false
	}
	return domain.NewParsedSections(
		bodies[sectionCompleted],
		bodies[sectionInProgress],
		supportLine(bodies[sectionSupport]),
	), true
}

// supportLine keeps a single line: the first duration phrase in the body,
// or else its first line.
func supportLine(lines []string) string {
	for _, line := range lines {
		if domain.IsNone(line) {
			continue
		}
		if d := FindDuration(line); d != "" {
			return SupportPhrase(d)
		}
	}
	for _, line := range lines {
		if !domain.IsNone(line) {
			return line
		}
	}
	return ""
}

func jsonCandidate(text string) (string, bool) {
	if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") {
		return trimmed, true
	}
	return "", false
}

type jsonItem struct {
	Task string `json:"task"`
	Note string `json:"note"`
	ETA  string `json:"eta"`
}

type jsonSections struct {
	Completed  *[]jsonItem `json:"completed"`
	InProgress *[]jsonItem `json:"inProgress"`
	Support    any         `json:"support"`
}

func parseJSONSections(raw string) (domain.ParsedSections, error) {
	var js jsonSections
	if err := json.Unmarshal([]byte(raw), &js); err != nil {
		return domain.ParsedSections{}, fmt.Errorf("%w: %v", domain.ErrMalformedGeneration, err)
	}
	if js.Completed == nil || js.InProgress == nil {
		return domain.ParsedSections{}, fmt.Errorf("%w: missing completed or inProgress array", domain.ErrMalformedGeneration)
	}
	support := ""
	switch v := js.Support.(type) {
	case string:
		support = v
	case nil:
	default:
		return domain.ParsedSections{}, fmt.Errorf("%w: support must be a string", domain.ErrMalformedGeneration)
	}
	if d := FindDuration(support); d != "" {
		support = SupportPhrase(d)
	}
	return domain.NewParsedSections(jsonBullets(*js.Completed), jsonBullets(*js.InProgress), support), nil
}

func jsonBullets(items []jsonItem) []string {
	var out []string
	for _, it := range items {
		task := strings.TrimSpace(it.Task)
		if task == "" {
			continue
		}
		line := task
		if note := strings.TrimSpace(it.Note); note != "" {
			line += ": " + note
		}
		if eta := strings.TrimSpace(it.ETA); eta != "" {
			line += " (ETA: " + eta + ")"
		}
		out = append(out, line)
	}
	return out
}
