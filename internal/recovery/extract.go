package recovery

import (
	"encoding/json"
	"regexp"
)

// Fragment patterns for self-contained objects of the expected minimal
// shape. Used only after a strict array parse has failed.
var (
	mcqFragmentPattern       = regexp.MustCompile(`\{"question":\s*"[^"]*",\s*"options":\s*\[[^\]]*\],\s*"answer":\s*"[^"]*"\}`)
	questionFragmentPattern  = regexp.MustCompile(`\{"question":\s*"[^"]*",\s*"answer":\s*"[^"]*"\}`)
	flashcardFragmentPattern = regexp.MustCompile(`\{"term":\s*"[^"]*",\s*"definition":\s*"[^"]*"\}`)
	eventFragmentPattern     = regexp.MustCompile(`\{"event_type":\s*"[^"]*",\s*"title":\s*"[^"]*",\s*"date":\s*"[^"]*"(?:,\s*"description":\s*"[^"]*")?\}`)
)

// Extract parses sanitized model output into candidate records. It first
// attempts a strict JSON-array parse; on failure it scans for individual
// well-formed fragments of the kind's expected shape, so one malformed
// record never invalidates the whole batch. It never fails: an empty
// slice signals the caller to escalate.
func Extract(sanitized string, kind RecordKind) []Candidate {
	var parsed []Candidate
	if err := json.Unmarshal([]byte(sanitized), &parsed); err == nil {
		return parsed
	}

	var candidates []Candidate
	for _, pattern := range fragmentPatterns(kind) {
		for _, fragment := range pattern.FindAllString(sanitized, -1) {
			var c Candidate
			if err := json.Unmarshal([]byte(fragment), &c); err != nil {
				continue
			}
			candidates = append(candidates, c)
		}
	}
	return candidates
}

func fragmentPatterns(kind RecordKind) []*regexp.Regexp {
	switch kind {
	case KindQuestion:
		// An MCQ fragment cannot also match the plain pattern: the plain
		// pattern requires answer to follow question immediately.
		return []*regexp.Regexp{mcqFragmentPattern, questionFragmentPattern}
	case KindFlashcard:
		return []*regexp.Regexp{flashcardFragmentPattern}
	case KindEvent:
		return []*regexp.Regexp{eventFragmentPattern}
	default:
		return nil
	}
}
