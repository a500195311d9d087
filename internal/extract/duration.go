package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var durationRe = regexp.MustCompile(`(?i)\b(?:(more\s+than|over|about|around|approximately)\s+)?(\d+(?:\.\d+)?)\s*(minutes|minute|mins|min|hours|hour|hrs|hr)\b`)

var spaceRunRe = regexp.MustCompile(`\s+`)

// FindDuration returns the first duration phrase in text with its unit
// spelled out, or "" if there is none. The modifier and the number are kept
// as written: "more than 20 min" -> "more than 20 minutes".
func FindDuration(text string) string {
	m := durationRe.FindStringSubmatchIndex(text)
	if m == nil {
		return ""
	}
	number := text[m[4]:m[5]]
	phrase := number + " " + spellUnit(text[m[6]:m[7]], number)
	if m[2] >= 0 {
		phrase = spaceRunRe.ReplaceAllString(text[m[2]:m[3]], " ") + " " + phrase
	}
	return phrase
}

// durationSpan returns the byte span of the first duration phrase.
func durationSpan(text string) (int, int, bool) {
	loc := durationRe.FindStringIndex(text)
	if loc == nil {
		return 0, 0, false
	}
	return loc[0], loc[1], true
}

func spellUnit(unit, number string) string {
	singular := number == "1"
	switch strings.ToLower(unit) {
	case "min", "mins", "minute", "minutes":
		if singular {
			return "minute"
		}
		return "minutes"
	default:
		if singular {
			return "hour"
		}
		return "hours"
	}
}

// SupportPhrase turns a duration phrase into the support line by
// capitalizing its first letter.
func SupportPhrase(duration string) string {
	duration = strings.TrimSpace(duration)
	if duration == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(duration)
	return string(unicode.ToUpper(r)) + duration[size:]
}
