package recovery

import (
	"errors"
	"strings"
)

var (
	// ErrExhausted is returned when every ladder tier, including the
	// synthetic fallback, produced zero usable records.
	ErrExhausted = errors.New("all generation tiers exhausted")
)

// RecordKind selects which schema candidates are validated against.
type RecordKind string

const (
	KindQuestion  RecordKind = "question"
	KindFlashcard RecordKind = "flashcard"
	KindEvent     RecordKind = "event"
)

// Question types accepted by the generation endpoints.
const (
	QuestionMCQ  = "mcq"
	QuestionFill = "fill"
	QuestionOpen = "open"
)

// Options carries kind-specific generation settings through the ladder
// and the record builder.
type Options struct {
	QuestionType string // mcq, fill or open; only meaningful for KindQuestion
	Difficulty   string
}

// MultipleChoice reports whether the options schema field is required.
func (o Options) MultipleChoice() bool {
	return o.QuestionType == QuestionMCQ
}

// Candidate is an unvalidated field mapping extracted from model output.
// Field presence is checked by Build, not at extraction time.
type Candidate map[string]any

func (c Candidate) str(key string) string {
	if v, ok := c[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (c Candidate) strs(key string) []string {
	raw, ok := c[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// Question is a validated quiz question ready for persistence.
type Question struct {
	QuestionText string   `json:"question_text"`
	Answer       string   `json:"answer"`
	Options      []string `json:"options,omitempty"`
	Difficulty   string   `json:"difficulty"`
}

// Flashcard is a validated term/definition pair.
type Flashcard struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}

// Event is a validated calendar event. Date is always YYYY-MM-DD.
type Event struct {
	EventType       string `json:"event_type"`
	Title           string `json:"title"`
	Date            string `json:"date"`
	Description     string `json:"description,omitempty"`
	Time            string `json:"time,omitempty"`
	Place           string `json:"place,omitempty"`
	Syllabus        string `json:"syllabus,omitempty"`
	QuestionPattern string `json:"question_pattern,omitempty"`
}

// Record is one validated domain record. Exactly one of the pointers is
// set, matching Kind.
type Record struct {
	Kind      RecordKind
	Question  *Question
	Flashcard *Flashcard
	Event     *Event
}
