package recovery_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"examassist/internal/logger"
	"examassist/internal/recovery"
)

// stubCompleter replays canned responses and records every prompt it saw.
type stubCompleter struct {
	responses []string
	errs      []error
	prompts   []string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	i := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no canned response")
}

func TestLadderStopsAfterFirstSuccess(t *testing.T) {
	stub := &stubCompleter{
		responses: []string{`[{"term": "ATP", "definition": "energy carrier"}]`},
	}
	ladder := recovery.NewLadder(stub, logger.NewNop())

	candidates, err := ladder.Run(context.Background(), "some source text", recovery.KindFlashcard, recovery.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if len(stub.prompts) != 1 {
		t.Errorf("expected exactly 1 completion call, got %d", len(stub.prompts))
	}
}

func TestLadderEscalatesOnFailure(t *testing.T) {
	stub := &stubCompleter{
		responses: []string{
			"sorry, I cannot help with that",
			`[{"term": "DNA", "definition": "genetic material"}]`,
		},
	}
	ladder := recovery.NewLadder(stub, logger.NewNop())

	candidates, err := ladder.Run(context.Background(), "source", recovery.KindFlashcard, recovery.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stub.prompts) != 2 {
		t.Fatalf("expected 2 completion calls, got %d", len(stub.prompts))
	}
	if candidates[0]["term"] != "DNA" {
		t.Errorf("candidate = %v", candidates[0])
	}
}

func TestLadderTruncatesSourcePerTier(t *testing.T) {
	long := strings.Repeat("z", 5000)
	stub := &stubCompleter{
		errs: []error{errors.New("down"), errors.New("down")},
	}
	ladder := recovery.NewLadder(stub, logger.NewNop())

	_, _ = ladder.Run(context.Background(), long, recovery.KindFlashcard, recovery.Options{})

	if len(stub.prompts) != 2 {
		t.Fatalf("expected 2 completion calls, got %d", len(stub.prompts))
	}
	if strings.Count(stub.prompts[0], "z") != 3000 {
		t.Errorf("first tier got %d source chars, want 3000", strings.Count(stub.prompts[0], "z"))
	}
	if strings.Count(stub.prompts[1], "z") != 1500 {
		t.Errorf("second tier got %d source chars, want 1500", strings.Count(stub.prompts[1], "z"))
	}
}

func TestLadderSyntheticQuestionsAfterTotalFailure(t *testing.T) {
	stub := &stubCompleter{
		errs: []error{errors.New("unreachable"), errors.New("unreachable")},
	}
	ladder := recovery.NewLadder(stub, logger.NewNop())

	candidates, err := ladder.Run(context.Background(), "anything", recovery.KindQuestion, recovery.Options{QuestionType: recovery.QuestionOpen})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 synthetic questions, got %d", len(candidates))
	}
	for i, c := range candidates {
		if c["question"] == "" || c["answer"] == "" {
			t.Errorf("synthetic question %d incomplete: %v", i, c)
		}
		if _, hasOptions := c["options"]; hasOptions {
			t.Errorf("open questions must not carry options: %v", c)
		}
	}
}

func TestLadderSyntheticMCQCarriesOptions(t *testing.T) {
	stub := &stubCompleter{
		errs: []error{errors.New("unreachable"), errors.New("unreachable")},
	}
	ladder := recovery.NewLadder(stub, logger.NewNop())

	candidates, err := ladder.Run(context.Background(), "anything", recovery.KindQuestion, recovery.Options{QuestionType: recovery.QuestionMCQ})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, c := range candidates {
		opts, ok := c["options"].([]any)
		if !ok || len(opts) != 4 {
			t.Errorf("synthetic MCQ %d options = %v", i, c["options"])
		}
	}
}

func TestLadderSyntheticFlashcardsFromSentences(t *testing.T) {
	stub := &stubCompleter{
		errs: []error{errors.New("unreachable"), errors.New("unreachable")},
	}
	ladder := recovery.NewLadder(stub, logger.NewNop())

	source := "Photosynthesis converts light into chemical energy. Mitochondria produce most cellular ATP. Ok. Enzymes catalyze biochemical reactions in cells."
	candidates, err := ladder.Run(context.Background(), source, recovery.KindFlashcard, recovery.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("expected 3 synthetic cards, got %d", len(candidates))
	}
	if candidates[0]["term"] != "Photosynthesis" {
		t.Errorf("first term = %v", candidates[0]["term"])
	}
	if candidates[1]["term"] != "Mitochondria" {
		t.Errorf("second term = %v", candidates[1]["term"])
	}
}

func TestLadderEventExhaustion(t *testing.T) {
	stub := &stubCompleter{
		errs: []error{errors.New("unreachable"), errors.New("unreachable")},
	}
	ladder := recovery.NewLadder(stub, logger.NewNop())

	_, err := ladder.Run(context.Background(), "schedule text", recovery.KindEvent, recovery.Options{})
	if !errors.Is(err, recovery.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestLadderFlashcardExhaustionOnUnusableSource(t *testing.T) {
	stub := &stubCompleter{
		errs: []error{errors.New("unreachable"), errors.New("unreachable")},
	}
	ladder := recovery.NewLadder(stub, logger.NewNop())

	// Too short for any synthetic sentence to qualify.
	_, err := ladder.Run(context.Background(), "short", recovery.KindFlashcard, recovery.Options{})
	if !errors.Is(err, recovery.ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}
