package recovery

import (
	"regexp"
	"strings"
)

var (
	quotePattern         = regexp.MustCompile(`\\'|'`)
	trailingCommaPattern = regexp.MustCompile(`,(\s*[}\]])`)
)

// Sanitize normalizes a raw model response into a best-effort JSON text.
// It is deterministic, has no side effects and never fails: pathological
// input comes back repaired as far as the heuristics reach.
//
// The single-quote rewrite is a heuristic, not a tokenizer: an unescaped
// apostrophe inside a string value ("don't") is rewritten too. Callers
// that need stricter repair can swap this function without touching the
// extraction stages.
func Sanitize(raw string) string {
	text := strings.TrimSpace(raw)

	// Markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	}
	if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-len("```")]
	}
	text = strings.TrimSpace(text)

	// Single quotes to double quotes, leaving escaped quotes alone.
	text = quotePattern.ReplaceAllStringFunc(text, func(m string) string {
		if m == `\'` {
			return m
		}
		return `"`
	})

	// Trailing commas before a closing brace or bracket.
	text = trailingCommaPattern.ReplaceAllString(text, "$1")

	// A truncated response has more opening than closing braces. Re-slice
	// to the array prefix covering the last fully balanced object and
	// close the array, recovering the complete objects that did arrive.
	if strings.Count(text, "{") > strings.Count(text, "}") {
		depth := 0
		lastComplete := -1
		for i := 0; i < len(text); i++ {
			switch text[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					lastComplete = i
				}
			}
		}
		if lastComplete > 0 {
			if arrayStart := strings.Index(text, "["); arrayStart >= 0 && arrayStart < lastComplete {
				text = text[arrayStart:lastComplete+1] + "]"
			}
		}
	}

	return strings.TrimSpace(text)
}
