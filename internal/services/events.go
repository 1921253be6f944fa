package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"examassist/internal/ai"
	"examassist/internal/extract"
	"examassist/internal/logger"
	"examassist/internal/models"
	"examassist/internal/recovery"
)

const imageEventPrompt = `Read this class routine or exam schedule image. For every exam, CT or quiz you find, output its fields as labeled lines, one field per line:
Date: DD/MM/YYYY
Day: Monday
Course: course name
Time: time if shown
Place: room or venue if shown
Syllabus: covered topics if shown
Question Pattern: pattern if shown

Use Date OR Day for each event, whichever the image shows. Always end each event with its Question Pattern line, writing "Not specified" when the image shows none. Output only these labeled lines.`

var (
	ErrEventNotFound = errors.New("event not found")
)

type EventService struct {
	db        *sql.DB
	ai        *ai.Client
	extractor *extract.Service
	documents *DocumentService
	ladder    *recovery.Ladder
	parser    *recovery.EventParser
	log       *logger.Logger
}

func NewEventService(db *sql.DB, aiClient *ai.Client, extractor *extract.Service, documents *DocumentService, anchor time.Time, log *logger.Logger) *EventService {
	return &EventService{
		db:        db,
		ai:        aiClient,
		extractor: extractor,
		documents: documents,
		ladder:    recovery.NewLadder(aiClient, log),
		parser:    recovery.NewEventParser(anchor, nil),
		log:       log,
	}
}

// ExtractFromDocument pulls schedule events out of a text-bearing
// document and stores them against it.
func (s *EventService) ExtractFromDocument(ctx context.Context, userID, documentID int64) ([]models.RoutineEvent, error) {
	doc, err := s.documents.GetByID(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	text := s.extractor.Text(ctx, doc.StoredPath, doc.Type)
	if text == "" {
		return nil, ErrNoText
	}
	if !s.ai.Configured() {
		return nil, ai.ErrUnavailable
	}

	candidates, err := s.ladder.Run(ctx, text, recovery.KindEvent, recovery.Options{})
	if err != nil {
		return nil, err
	}

	records := recovery.Build(candidates, recovery.KindEvent, recovery.Options{})
	if len(records) == 0 {
		return nil, recovery.ErrExhausted
	}

	events := make([]recovery.Event, 0, len(records))
	for _, rec := range records {
		events = append(events, *rec.Event)
	}
	return s.insert(ctx, userID, sql.NullInt64{Int64: documentID, Valid: true}, events)
}

// ExtractFromImage transcribes a schedule image into labeled lines and
// parses them into events. The image is not stored as a document.
func (s *EventService) ExtractFromImage(ctx context.Context, userID int64, image []byte, mimeType string) ([]models.RoutineEvent, error) {
	if !s.ai.Configured() {
		return nil, ai.ErrUnavailable
	}

	raw, err := s.ai.CompleteWithImage(ctx, imageEventPrompt, image, mimeType)
	if err != nil {
		return nil, fmt.Errorf("read schedule image: %w", err)
	}

	events := s.parser.Parse(raw)
	if len(events) == 0 {
		return nil, recovery.ErrExhausted
	}
	return s.insert(ctx, userID, sql.NullInt64{}, events)
}

func (s *EventService) insert(ctx context.Context, userID int64, documentID sql.NullInt64, events []recovery.Event) ([]models.RoutineEvent, error) {
	now := time.Now().UTC()
	stored := make([]models.RoutineEvent, 0, len(events))
	for _, ev := range events {
		date, err := time.Parse("2006-01-02", ev.Date)
		if err != nil {
			s.log.Warn("skipping event with bad date", "title", ev.Title, "date", ev.Date)
			continue
		}

		res, err := s.db.ExecContext(ctx, `
			INSERT INTO routine_events (user_id, document_id, event_type, title, event_date, description, event_time, place, syllabus, question_pattern, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
		`, userID, documentID, ev.EventType, ev.Title, date, ev.Description, ev.Time, ev.Place, ev.Syllabus, ev.QuestionPattern, now)
		if err != nil {
			return nil, fmt.Errorf("insert event: %w", err)
		}
		id, _ := res.LastInsertId()

		stored = append(stored, models.RoutineEvent{
			ID:              id,
			UserID:          userID,
			DocumentID:      documentID,
			EventType:       ev.EventType,
			Title:           ev.Title,
			Date:            date,
			Description:     ev.Description,
			Time:            ev.Time,
			Place:           ev.Place,
			Syllabus:        ev.Syllabus,
			QuestionPattern: ev.QuestionPattern,
			CreatedAt:       now,
		})
	}
	return stored, nil
}

// Upcoming lists today's and future events, soonest first.
func (s *EventService) Upcoming(ctx context.Context, userID int64) ([]models.RoutineEvent, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, document_id, event_type, title, event_date, description,
			   event_time, place, syllabus, question_pattern, created_at
		FROM routine_events WHERE user_id = ? AND event_date >= ? ORDER BY event_date ASC;
	`, userID, today)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []models.RoutineEvent
	for rows.Next() {
		var ev models.RoutineEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.DocumentID, &ev.EventType, &ev.Title, &ev.Date,
			&ev.Description, &ev.Time, &ev.Place, &ev.Syllabus, &ev.QuestionPattern, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *EventService) GetByID(ctx context.Context, userID, id int64) (*models.RoutineEvent, error) {
	var ev models.RoutineEvent
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, document_id, event_type, title, event_date, description,
			   event_time, place, syllabus, question_pattern, created_at
		FROM routine_events WHERE id = ? AND user_id = ?;
	`, id, userID).Scan(&ev.ID, &ev.UserID, &ev.DocumentID, &ev.EventType, &ev.Title, &ev.Date,
		&ev.Description, &ev.Time, &ev.Place, &ev.Syllabus, &ev.QuestionPattern, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	return &ev, nil
}

// ClearUpcoming deletes today's and future events, returning the count.
func (s *EventService) ClearUpcoming(ctx context.Context, userID int64) (int64, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM routine_events WHERE user_id = ? AND event_date >= ?;
	`, userID, today)
	if err != nil {
		return 0, fmt.Errorf("clear events: %w", err)
	}
	count, _ := res.RowsAffected()
	return count, nil
}
