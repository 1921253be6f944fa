package recovery_test

import (
	"testing"
	"time"

	"examassist/internal/recovery"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEventParserWeekdayResolution(t *testing.T) {
	// Thursday anchor, clock frozen on the same day.
	anchor := time.Date(2025, 7, 17, 0, 0, 0, 0, time.UTC)
	parser := recovery.NewEventParser(anchor, fixedClock(anchor))

	events := parser.Parse(`Day: Saturday
Course: DB Quiz
Time: 10:00 AM
Question Pattern: MCQ`)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.EventType != "Quiz" {
		t.Errorf("event_type = %q, want Quiz", ev.EventType)
	}
	if ev.Title != "DB Quiz - Quiz" {
		t.Errorf("title = %q", ev.Title)
	}
	if ev.Date != "2025-07-19" {
		t.Errorf("date = %q, want 2025-07-19", ev.Date)
	}
}

func TestEventParserSameWeekdayMovesToNextWeek(t *testing.T) {
	// Monday anchor plus "Monday" must never resolve to the anchor itself.
	anchor := time.Date(2025, 7, 21, 0, 0, 0, 0, time.UTC)
	parser := recovery.NewEventParser(anchor, fixedClock(anchor))

	events := parser.Parse(`Day: Monday
Course: Algorithms CT
Question Pattern: Written`)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Date != "2025-07-28" {
		t.Errorf("date = %q, want 2025-07-28", events[0].Date)
	}
	if events[0].EventType != "CT" {
		t.Errorf("event_type = %q, want CT", events[0].EventType)
	}
}

func TestEventParserStaleAnchorAdvances(t *testing.T) {
	anchor := time.Date(2025, 7, 17, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 7, 18, 9, 30, 0, 0, time.UTC)
	parser := recovery.NewEventParser(anchor, fixedClock(now))

	events := parser.Parse(`Day: Saturday
Course: Networks Exam
Question Pattern: Not specified`)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	// Anchor advances one whole week to 2025-07-24 (Thursday), then moves
	// forward to the named Saturday.
	if events[0].Date != "2025-07-26" {
		t.Errorf("date = %q, want 2025-07-26", events[0].Date)
	}
}

func TestEventParserExplicitDate(t *testing.T) {
	anchor := time.Date(2025, 7, 17, 0, 0, 0, 0, time.UTC)
	parser := recovery.NewEventParser(anchor, fixedClock(anchor))

	events := parser.Parse(`Date: 5/8/2025
Course: Compilers
Time: 2:00 PM
Place: Room 402
Syllabus: Chapters 1-4
Question Pattern: Short answer`)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Date != "2025-08-05" {
		t.Errorf("date = %q, want 2025-08-05", ev.Date)
	}
	if ev.Place != "Room 402" {
		t.Errorf("place = %q", ev.Place)
	}
	want := "Time: 2:00 PM\nPlace: Room 402\nSyllabus: Chapters 1-4\nQuestion Pattern: Short answer"
	if ev.Description != want {
		t.Errorf("description = %q", ev.Description)
	}
}

func TestEventParserMultipleEvents(t *testing.T) {
	anchor := time.Date(2025, 7, 17, 0, 0, 0, 0, time.UTC)
	parser := recovery.NewEventParser(anchor, fixedClock(anchor))

	events := parser.Parse(`Date: 20/07/2025
Course: OS CT
Question Pattern: MCQ
Date: 22/07/2025
Course: Math Final
Question Pattern: Written`)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Date != "2025-07-20" || events[1].Date != "2025-07-22" {
		t.Errorf("dates = %q, %q", events[0].Date, events[1].Date)
	}
	if events[1].EventType != "Exam" {
		t.Errorf("second event_type = %q, want Exam", events[1].EventType)
	}
}

func TestEventParserDiscardsIncompleteTrailingEvent(t *testing.T) {
	anchor := time.Date(2025, 7, 17, 0, 0, 0, 0, time.UTC)
	parser := recovery.NewEventParser(anchor, fixedClock(anchor))

	events := parser.Parse(`Date: 20/07/2025
Course: OS CT
Question Pattern: MCQ
Date: 25/07/2025
Course: Dangling`)

	if len(events) != 1 {
		t.Fatalf("expected only the completed event, got %d", len(events))
	}
}

func TestEventParserRequiresCourse(t *testing.T) {
	anchor := time.Date(2025, 7, 17, 0, 0, 0, 0, time.UTC)
	parser := recovery.NewEventParser(anchor, fixedClock(anchor))

	events := parser.Parse(`Date: 20/07/2025
Question Pattern: MCQ`)

	if len(events) != 0 {
		t.Errorf("event without a course emitted: %+v", events)
	}
}

func TestEventParserDayOverridesEarlierDate(t *testing.T) {
	anchor := time.Date(2025, 7, 17, 0, 0, 0, 0, time.UTC)
	parser := recovery.NewEventParser(anchor, fixedClock(anchor))

	events := parser.Parse(`Date: 20/07/2025
Day: Friday
Course: Databases Exam
Question Pattern: Not specified`)

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	// Friday after the Thursday anchor.
	if events[0].Date != "2025-07-18" {
		t.Errorf("date = %q, want 2025-07-18", events[0].Date)
	}
}

func TestClassifyEventType(t *testing.T) {
	cases := map[string]string{
		"Math CT":        "CT",
		"weekly quiz":    "Quiz",
		"Final Exam":     "Exam",
		"Networks":       "Exam",
		"Lecture review": "CT", // substring match is intentional
	}
	for name, want := range cases {
		if got := recovery.ClassifyEventType(name); got != want {
			t.Errorf("ClassifyEventType(%q) = %q, want %q", name, got, want)
		}
	}
}
