package recovery

import (
	"fmt"
	"strings"
	"time"
)

var weekdays = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

// ClassifyEventType infers an event type from a course or title string.
func ClassifyEventType(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "ct"):
		return "CT"
	case strings.Contains(lower, "quiz"):
		return "Quiz"
	default:
		return "Exam"
	}
}

// eventState accumulates the fields of one partial event while scanning.
type eventState struct {
	date            string // YYYY-MM-DD, mutually exclusive with day
	day             string
	course          string
	time            string
	place           string
	syllabus        string
	questionPattern string
}

// EventParser parses the semi-structured line format the model produces
// for schedule images into calendar events. Lines are labeled
// (Date:/Day:/Course:/Time:/Place:/Syllabus:/Question Pattern:); the
// Question Pattern line triggers the emit of the accumulated event.
//
// Weekday-only events are resolved forward from an anchor date: the
// anchor is advanced by whole weeks until it is not in the past, then
// moved to the next occurrence of the named weekday, never the same day
// and never before today.
type EventParser struct {
	anchor time.Time
	now    func() time.Time
}

// NewEventParser builds a parser around the given weekday anchor. A nil
// now func defaults to the wall clock.
func NewEventParser(anchor time.Time, now func() time.Time) *EventParser {
	if now == nil {
		now = time.Now
	}
	return &EventParser{anchor: dateOnly(anchor), now: now}
}

// Parse scans the text block and returns every completed event. Partially
// accumulated fields at end of input are discarded.
func (p *EventParser) Parse(text string) []Event {
	var events []Event
	var state eventState

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Date:"):
			state.date = p.reassembleDate(strings.TrimSpace(strings.TrimPrefix(line, "Date:")))
			state.day = ""
		case strings.HasPrefix(line, "Day:"):
			state.day = strings.TrimSpace(strings.TrimPrefix(line, "Day:"))
			state.date = ""
		case strings.HasPrefix(line, "Course:"):
			state.course = strings.TrimSpace(strings.TrimPrefix(line, "Course:"))
		case strings.HasPrefix(line, "Time:"):
			state.time = strings.TrimSpace(strings.TrimPrefix(line, "Time:"))
		case strings.HasPrefix(line, "Place:"):
			state.place = strings.TrimSpace(strings.TrimPrefix(line, "Place:"))
		case strings.HasPrefix(line, "Syllabus:"):
			state.syllabus = strings.TrimSpace(strings.TrimPrefix(line, "Syllabus:"))
		case strings.HasPrefix(line, "Question Pattern:"):
			state.questionPattern = strings.TrimSpace(strings.TrimPrefix(line, "Question Pattern:"))
			if state.course == "" {
				continue
			}
			if event, ok := p.emit(state); ok {
				events = append(events, event)
			}
			state = eventState{}
		}
	}

	return events
}

func (p *EventParser) emit(state eventState) (Event, bool) {
	finalDate := state.date
	if finalDate == "" && state.day != "" {
		if resolved, ok := p.resolveWeekday(state.day); ok {
			finalDate = resolved.Format("2006-01-02")
		}
	}
	if finalDate == "" {
		return Event{}, false
	}

	eventType := ClassifyEventType(state.course)

	var parts []string
	if state.time != "" {
		parts = append(parts, "Time: "+state.time)
	}
	if state.place != "" {
		parts = append(parts, "Place: "+state.place)
	}
	if state.syllabus != "" {
		parts = append(parts, "Syllabus: "+state.syllabus)
	}
	if state.questionPattern != "" {
		parts = append(parts, "Question Pattern: "+state.questionPattern)
	}
	description := state.course
	if len(parts) > 0 {
		description = strings.Join(parts, "\n")
	}

	return Event{
		EventType:       eventType,
		Title:           state.course + " - " + eventType,
		Date:            finalDate,
		Description:     description,
		Time:            state.time,
		Place:           state.place,
		Syllabus:        state.syllabus,
		QuestionPattern: state.questionPattern,
	}, true
}

// reassembleDate converts DD/MM/YYYY to YYYY-MM-DD, returning empty on
// anything else.
func (p *EventParser) reassembleDate(raw string) string {
	parts := strings.Split(raw, "/")
	if len(parts) != 3 {
		return ""
	}
	day, month, year := parts[0], parts[1], parts[2]
	if day == "" || month == "" || year == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s-%s", year, zeroPad(month), zeroPad(day))
}

func zeroPad(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

// resolveWeekday maps a weekday name to the next matching concrete date
// at or after the reference anchor, never today's weekday itself (same
// day maps to next week) and never in the past.
func (p *EventParser) resolveWeekday(dayName string) (time.Time, bool) {
	target, ok := weekdays[strings.ToLower(strings.TrimSpace(dayName))]
	if !ok {
		return time.Time{}, false
	}

	today := dateOnly(p.now())
	reference := p.anchor

	// Advance a stale anchor by whole weeks until it reaches the present.
	if reference.Before(today) {
		daysBehind := int(today.Sub(reference).Hours() / 24)
		weeks := daysBehind/7 + 1
		reference = reference.AddDate(0, 0, weeks*7)
	}

	current := pythonWeekday(reference.Weekday())
	daysAhead := (target - current + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}

	resolved := reference.AddDate(0, 0, daysAhead)
	if resolved.Before(today) {
		resolved = resolved.AddDate(0, 0, 7)
	}
	return resolved, true
}

// pythonWeekday numbers Monday 0 through Sunday 6.
func pythonWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
