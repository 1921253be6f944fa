package recovery

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"examassist/internal/logger"
)

// Completer is the external completion collaborator. A returned error and
// an empty response are treated identically by the ladder: zero records,
// escalate to the next tier.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

type tier struct {
	name        string
	textLimit   int
	recordCount int
}

// Two external tiers of decreasing input size and ambition, then the
// synthetic fallback which makes no external call.
var tiers = []tier{
	{name: "full", textLimit: 3000, recordCount: 8},
	{name: "reduced", textLimit: 1500, recordCount: 5},
}

// Ladder orchestrates generation attempts at decreasing ambition until a
// tier yields at least one candidate or all tiers exhaust. Execution is
// strictly sequential: a tier only runs after the previous one has failed.
type Ladder struct {
	completer Completer
	log       *logger.Logger
}

func NewLadder(completer Completer, log *logger.Logger) *Ladder {
	return &Ladder{completer: completer, log: log}
}

// Run attempts each tier in order and returns the candidates of the first
// tier producing at least one. Later tiers never run after a success.
// ErrExhausted is returned only when the synthetic tier also comes up
// empty.
func (l *Ladder) Run(ctx context.Context, sourceText string, kind RecordKind, opts Options) ([]Candidate, error) {
	for _, t := range tiers {
		prompt := buildPrompt(kind, opts, clip(sourceText, t.textLimit), t.recordCount)

		raw, err := l.completer.Complete(ctx, prompt)
		if err != nil {
			l.log.Warn("completion failed, escalating", "kind", kind, "tier", t.name, "error", err)
			continue
		}
		l.log.Info("completion received", "kind", kind, "tier", t.name, "chars", len(raw))

		candidates := Extract(Sanitize(raw), kind)
		if len(candidates) > 0 {
			l.log.Info("tier produced candidates", "tier", t.name, "count", len(candidates))
			return candidates, nil
		}
		l.log.Warn("tier produced no candidates, escalating", "kind", kind, "tier", t.name)
	}

	candidates := synthetic(sourceText, kind, opts)
	if len(candidates) == 0 {
		return nil, ErrExhausted
	}
	l.log.Info("using synthetic fallback records", "kind", kind, "count", len(candidates))
	return candidates, nil
}

func clip(text string, limit int) string {
	if len(text) > limit {
		return text[:limit]
	}
	return text
}

func buildPrompt(kind RecordKind, opts Options, text string, count int) string {
	switch kind {
	case KindFlashcard:
		return fmt.Sprintf(`Create %d flashcards from this text. Return ONLY valid JSON array:
[{"term": "Term", "definition": "Definition"}]

Text: %s`, count, text)
	case KindEvent:
		return fmt.Sprintf(`Extract all upcoming CT, final exams, and assignment events with their dates from the following university routine or syllabus. Return ONLY valid JSON array:
[{"event_type": "CT", "title": "...", "date": "YYYY-MM-DD", "description": "..."}]

Text: %s`, text)
	}

	switch opts.QuestionType {
	case QuestionMCQ:
		return fmt.Sprintf(`Generate %d multiple-choice questions from this text. Return ONLY valid JSON array:
[{"question": "Question text", "options": ["A", "B", "C", "D"], "answer": "correct option"}]

Text: %s`, count, text)
	case QuestionFill:
		return fmt.Sprintf(`Generate %d fill-in-the-blank questions. Return ONLY valid JSON array:
[{"question": "Question with ___ blank", "answer": "answer"}]

Text: %s`, count, text)
	default:
		return fmt.Sprintf(`Generate %d short answer questions. Return ONLY valid JSON array:
[{"question": "Question text", "answer": "answer"}]

Text: %s`, count, text)
	}
}

// synthetic builds deterministic placeholder candidates without any
// external call. Events have no honest placeholder (a made-up date would
// be worse than a failure), so an event run reports exhaustion instead.
func synthetic(sourceText string, kind RecordKind, opts Options) []Candidate {
	switch kind {
	case KindQuestion:
		return syntheticQuestions(opts)
	case KindFlashcard:
		return syntheticFlashcards(sourceText)
	default:
		return nil
	}
}

func syntheticQuestions(opts Options) []Candidate {
	basics := []Candidate{
		{
			"question": "What is the main topic of this document?",
			"answer":   "The document covers study materials and educational content.",
		},
		{
			"question": "What type of document is this?",
			"answer":   "This appears to be an educational or study document.",
		},
		{
			"question": "What would be the best way to study this material?",
			"answer":   "Review the content multiple times and create summaries.",
		},
	}
	if opts.MultipleChoice() {
		basics[0]["options"] = []any{"Study materials", "Entertainment", "Sports", "Politics"}
		basics[1]["options"] = []any{"Educational", "Fictional", "Technical", "Historical"}
		basics[2]["options"] = []any{"Read once", "Review multiple times", "Skip it", "Memorize only"}
	}
	return basics
}

// syntheticFlashcards derives stand-in cards from the source text itself:
// the first sufficiently long alphabetic word of each of the first five
// sentences becomes a term, the sentence its definition.
func syntheticFlashcards(sourceText string) []Candidate {
	sentences := strings.Split(sourceText, ".")
	if len(sentences) > 5 {
		sentences = sentences[:5]
	}

	var cards []Candidate
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if len(sentence) <= 10 {
			continue
		}
		term := firstKeyTerm(sentence)
		if term == "" {
			continue
		}
		definition := sentence
		if len(definition) > 100 {
			definition = definition[:100] + "..."
		}
		cards = append(cards, Candidate{"term": term, "definition": definition})
	}
	return cards
}

func firstKeyTerm(sentence string) string {
	for _, word := range strings.Fields(sentence) {
		if len(word) > 4 && isAlpha(word) {
			return capitalize(word)
		}
	}
	return ""
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
