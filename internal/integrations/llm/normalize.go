package llm

import (
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

// NormalizeGeneratedText flattens the body shapes text-generation endpoints
// return into plain text: [{"generated_text": ...}], {"generated_text": ...},
// a JSON string, or a raw non-JSON body.
func NormalizeGeneratedText(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	res := gjson.ParseBytes(body)
	switch {
	case res.IsArray():
		return strings.TrimSpace(res.Get("0.generated_text").String())
	case res.IsObject():
		return strings.TrimSpace(res.Get("generated_text").String())
	case res.Type == gjson.String:
		return strings.TrimSpace(res.String())
	default:
		return ""
	}
}

// errorMessage pulls a human-readable message out of a provider error body.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return truncate(strings.TrimSpace(string(body)), 200)
	}
	for _, path := range []string{"error.message", "error", "message"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String {
			return truncate(v.String(), 200)
		}
	}
	return ""
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
