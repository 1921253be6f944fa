package recovery_test

import (
	"testing"

	"examassist/internal/recovery"
)

func TestExtractStrictParse(t *testing.T) {
	sanitized := `[{"term": "Osmosis", "definition": "diffusion of water"}, {"term": "Mitosis", "definition": "cell division"}]`

	candidates := recovery.Extract(sanitized, recovery.KindFlashcard)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0]["term"] != "Osmosis" {
		t.Errorf("first term = %v", candidates[0]["term"])
	}
	if candidates[1]["definition"] != "cell division" {
		t.Errorf("second definition = %v", candidates[1]["definition"])
	}
}

func TestExtractFragmentsFromBrokenResponse(t *testing.T) {
	// Strict parsing fails because of the prose, but the embedded object
	// fragments are still recoverable.
	sanitized := `Here are your flashcards!
{"term": "HTTP", "definition": "transfer protocol"} and also
{"term": "TCP", "definition": "transport protocol"} hope this helps`

	candidates := recovery.Extract(sanitized, recovery.KindFlashcard)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 fragment candidates, got %d", len(candidates))
	}
	if candidates[0]["term"] != "HTTP" || candidates[1]["term"] != "TCP" {
		t.Errorf("candidates = %v", candidates)
	}
}

func TestExtractQuestionFragments(t *testing.T) {
	t.Run("with options", func(t *testing.T) {
		sanitized := `broken {"question": "Pick one", "options": ["a", "b", "c", "d"], "answer": "a"} tail`
		candidates := recovery.Extract(sanitized, recovery.KindQuestion)
		if len(candidates) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(candidates))
		}
		if len(candidates[0]["options"].([]any)) != 4 {
			t.Errorf("options = %v", candidates[0]["options"])
		}
	})

	t.Run("plain question and answer", func(t *testing.T) {
		sanitized := `noise {"question": "Q1", "answer": "A"} noise`
		candidates := recovery.Extract(sanitized, recovery.KindQuestion)
		if len(candidates) != 1 {
			t.Fatalf("expected 1 candidate, got %d", len(candidates))
		}
		if candidates[0]["question"] != "Q1" || candidates[0]["answer"] != "A" {
			t.Errorf("candidate = %v", candidates[0])
		}
	})
}

func TestExtractFencedResponseEndToEnd(t *testing.T) {
	raw := "```json\n[{'question': 'Q1', 'answer': 'A'},]\n```"
	candidates := recovery.Extract(recovery.Sanitize(raw), recovery.KindQuestion)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0]["question"] != "Q1" || candidates[0]["answer"] != "A" {
		t.Errorf("candidate = %v", candidates[0])
	}
}

func TestExtractGarbageYieldsNothing(t *testing.T) {
	inputs := []string{
		"",
		"I could not generate anything, sorry.",
		"{]][[}",
		`42`,
		`"just a string"`,
	}
	for _, in := range inputs {
		for _, kind := range []recovery.RecordKind{recovery.KindQuestion, recovery.KindFlashcard, recovery.KindEvent} {
			if got := recovery.Extract(in, kind); len(got) != 0 {
				t.Errorf("Extract(%q, %s) = %v, want empty", in, kind, got)
			}
		}
	}
}

func TestExtractWrongShapeJSON(t *testing.T) {
	// A valid JSON array of non-objects parses but yields no usable maps.
	sanitized := `["a", "b", "c"]`
	if got := recovery.Extract(sanitized, recovery.KindFlashcard); len(got) != 0 {
		t.Errorf("expected no candidates from non-object array, got %v", got)
	}
}
