package recovery_test

import (
	"reflect"
	"testing"

	"examassist/internal/recovery"
)

func TestBuildNeverGrowsOutput(t *testing.T) {
	candidates := []recovery.Candidate{
		{"question": "Q1", "answer": "A1"},
		{"question": "Q2"}, // missing answer
		nil,
		{"answer": "A3"}, // missing question
	}

	records := recovery.Build(candidates, recovery.KindQuestion, recovery.Options{})
	if len(records) > len(candidates) {
		t.Fatalf("output %d exceeds input %d", len(records), len(candidates))
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 valid record, got %d", len(records))
	}
	if records[0].Question.QuestionText != "Q1" {
		t.Errorf("record = %+v", records[0].Question)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	if records := recovery.Build(nil, recovery.KindFlashcard, recovery.Options{}); len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestBuildQuestionDefaults(t *testing.T) {
	records := recovery.Build([]recovery.Candidate{
		{"question": "Q", "answer": "A"},
	}, recovery.KindQuestion, recovery.Options{})
	if records[0].Question.Difficulty != "medium" {
		t.Errorf("difficulty = %q, want medium", records[0].Question.Difficulty)
	}

	records = recovery.Build([]recovery.Candidate{
		{"question": "Q", "answer": "A"},
	}, recovery.KindQuestion, recovery.Options{Difficulty: "hard"})
	if records[0].Question.Difficulty != "hard" {
		t.Errorf("difficulty = %q, want hard", records[0].Question.Difficulty)
	}
}

func TestBuildMCQKeepsProvidedOptions(t *testing.T) {
	records := recovery.Build([]recovery.Candidate{
		{"question": "Q", "answer": "b", "options": []any{"a", "b", "b", "c"}},
	}, recovery.KindQuestion, recovery.Options{QuestionType: recovery.QuestionMCQ})

	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(records[0].Question.Options, want) {
		t.Errorf("options = %v, want %v", records[0].Question.Options, want)
	}
}

func TestBuildMCQRecoversOptionsFromText(t *testing.T) {
	t.Run("labels in answer", func(t *testing.T) {
		records := recovery.Build([]recovery.Candidate{
			{"question": "Pick the capital", "answer": "A) Paris\nB) Rome\nC) Oslo\nD) Cairo"},
		}, recovery.KindQuestion, recovery.Options{QuestionType: recovery.QuestionMCQ})

		opts := records[0].Question.Options
		if len(opts) != 4 || opts[0] != "Paris" || opts[3] != "Cairo" {
			t.Errorf("options = %v", opts)
		}
	})

	t.Run("labels in question", func(t *testing.T) {
		records := recovery.Build([]recovery.Candidate{
			{"question": "Which layer routes packets?\nA. Physical\nB. Network\nC. Session", "answer": "Network"},
		}, recovery.KindQuestion, recovery.Options{QuestionType: recovery.QuestionMCQ})

		opts := records[0].Question.Options
		if len(opts) < 2 {
			t.Fatalf("options not recovered: %v", opts)
		}
	})

	t.Run("placeholder fallback", func(t *testing.T) {
		records := recovery.Build([]recovery.Candidate{
			{"question": "No labels anywhere", "answer": "just text"},
		}, recovery.KindQuestion, recovery.Options{QuestionType: recovery.QuestionMCQ})

		want := []string{"Option A", "Option B", "Option C", "Option D"}
		if !reflect.DeepEqual(records[0].Question.Options, want) {
			t.Errorf("options = %v, want placeholders", records[0].Question.Options)
		}
	})
}

func TestBuildFlashcardRequiresBothFields(t *testing.T) {
	candidates := []recovery.Candidate{
		{"term": "OK", "definition": "fine"},
		{"term": "only term"},
		{"definition": "only definition"},
		{"term": "  ", "definition": "blank term"},
	}

	records := recovery.Build(candidates, recovery.KindFlashcard, recovery.Options{})
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Flashcard.Term != "OK" {
		t.Errorf("record = %+v", records[0].Flashcard)
	}
}

func TestBuildEvent(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		records := recovery.Build([]recovery.Candidate{
			{"event_type": "CT", "title": "Math CT", "date": "2025-08-01", "description": "chapter 3"},
		}, recovery.KindEvent, recovery.Options{})
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		ev := records[0].Event
		if ev.EventType != "CT" || ev.Date != "2025-08-01" {
			t.Errorf("event = %+v", ev)
		}
	})

	t.Run("bad date dropped", func(t *testing.T) {
		records := recovery.Build([]recovery.Candidate{
			{"event_type": "Exam", "title": "Finals", "date": "next friday"},
		}, recovery.KindEvent, recovery.Options{})
		if len(records) != 0 {
			t.Errorf("event with unparseable date kept: %+v", records)
		}
	})

	t.Run("type inferred from title", func(t *testing.T) {
		records := recovery.Build([]recovery.Candidate{
			{"title": "Physics Quiz", "date": "2025-09-10"},
		}, recovery.KindEvent, recovery.Options{})
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if records[0].Event.EventType != "Quiz" {
			t.Errorf("event_type = %q, want Quiz", records[0].Event.EventType)
		}
	})
}
