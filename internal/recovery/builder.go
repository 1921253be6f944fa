package recovery

import (
	"regexp"
	"strings"
	"time"
)

// Ordered label patterns for recovering MCQ options embedded in answer or
// question text. The first pattern with at least one match wins.
var optionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-D][).\-:]\s*([^\n]+)`),
	regexp.MustCompile(`[A-D]\.\s*([^\n]+)`),
	regexp.MustCompile(`[A-D]\s*[).\-:]\s*([^\n]+)`),
}

var optionLinePattern = regexp.MustCompile(`^[A-D][).\-:.]\s*`)

var placeholderOptions = []string{"Option A", "Option B", "Option C", "Option D"}

// Build validates candidates against their kind's schema and emits domain
// records, preserving input order. Invalid candidates are skipped, never
// failing the batch: output length is at most the candidate count, and a
// fully empty input yields an empty output.
func Build(candidates []Candidate, kind RecordKind, opts Options) []Record {
	var records []Record
	for _, c := range candidates {
		if c == nil {
			continue
		}
		var rec *Record
		switch kind {
		case KindQuestion:
			rec = buildQuestion(c, opts)
		case KindFlashcard:
			rec = buildFlashcard(c)
		case KindEvent:
			rec = buildEvent(c)
		}
		if rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

func buildQuestion(c Candidate, opts Options) *Record {
	questionText := c.str("question")
	answer := c.str("answer")
	if questionText == "" || answer == "" {
		return nil
	}

	difficulty := opts.Difficulty
	if difficulty == "" {
		difficulty = "medium"
	}

	q := &Question{
		QuestionText: questionText,
		Answer:       answer,
		Difficulty:   difficulty,
	}

	if opts.MultipleChoice() {
		options := dedupe(c.strs("options"))
		if len(options) < 2 {
			options = recoverOptions(c)
		}
		q.Options = options
	}

	return &Record{Kind: KindQuestion, Question: q}
}

func buildFlashcard(c Candidate) *Record {
	term := c.str("term")
	definition := c.str("definition")
	if term == "" || definition == "" {
		return nil
	}
	return &Record{Kind: KindFlashcard, Flashcard: &Flashcard{Term: term, Definition: definition}}
}

func buildEvent(c Candidate) *Record {
	title := c.str("title")
	dateStr := c.str("date")
	if title == "" || dateStr == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", dateStr); err != nil {
		return nil
	}

	eventType := c.str("event_type")
	if eventType == "" {
		eventType = ClassifyEventType(title)
	}

	return &Record{Kind: KindEvent, Event: &Event{
		EventType:   eventType,
		Title:       title,
		Date:        dateStr,
		Description: c.str("description"),
	}}
}

// recoverOptions attempts secondary extraction of option-like substrings
// from the answer and question fields, falling back to a generic
// placeholder set when fewer than two distinct options surface.
func recoverOptions(c Candidate) []string {
	for _, field := range []string{c.str("answer"), c.str("question")} {
		for _, pattern := range optionPatterns {
			matches := pattern.FindAllStringSubmatch(field, -1)
			if len(matches) == 0 {
				continue
			}
			options := make([]string, 0, len(matches))
			for _, m := range matches {
				if opt := strings.TrimSpace(m[1]); opt != "" {
					options = append(options, opt)
				}
			}
			if options = dedupe(options); len(options) >= 2 {
				return options
			}
		}
	}

	// Last resort before the placeholder set: lines starting with a bare
	// option letter.
	var options []string
	lines := strings.Split(c.str("answer"), "\n")
	lines = append(lines, strings.Split(c.str("question"), "\n")...)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if optionLinePattern.MatchString(line) {
			if opt := strings.TrimSpace(optionLinePattern.ReplaceAllString(line, "")); opt != "" {
				options = append(options, opt)
			}
		}
	}
	if options = dedupe(options); len(options) >= 2 {
		return options
	}

	return append([]string(nil), placeholderOptions...)
}

func dedupe(options []string) []string {
	seen := make(map[string]struct{}, len(options))
	out := options[:0]
	for _, opt := range options {
		if _, ok := seen[opt]; ok {
			continue
		}
		seen[opt] = struct{}{}
		out = append(out, opt)
	}
	return out
}
