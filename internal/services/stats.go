package services

import (
	"context"
	"database/sql"
	"fmt"

	"examassist/internal/models"
)

type StatsService struct {
	db     *sql.DB
	events *EventService
}

func NewStatsService(db *sql.DB, events *EventService) *StatsService {
	return &StatsService{db: db, events: events}
}

// Dashboard aggregates one user's study activity for the landing page.
type Dashboard struct {
	TotalDocuments        int                   `json:"total_documents"`
	TotalQuestions        int                   `json:"total_questions"`
	TotalFlashcards       int                   `json:"total_flashcards"`
	TotalSummaries        int                   `json:"total_summaries"`
	AverageProgress       float64               `json:"average_progress"`
	RecentEvents          []models.RoutineEvent `json:"recent_events"`
	UpcomingEventsCount   int                   `json:"upcoming_events_count"`
	ExamPreparationsCount int                   `json:"exam_preparations_count"`
	TotalExams            int                   `json:"total_exams"`
	TotalCTs              int                   `json:"total_cts"`
}

func (s *StatsService) Dashboard(ctx context.Context, userID int64) (*Dashboard, error) {
	var d Dashboard
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents WHERE user_id = ?),
			(SELECT COUNT(*) FROM questions WHERE user_id = ?),
			(SELECT COUNT(*) FROM flashcards WHERE user_id = ?),
			(SELECT COUNT(*) FROM summaries WHERE user_id = ?),
			(SELECT COALESCE(AVG(percent_complete), 0) FROM progress WHERE user_id = ?),
			(SELECT COUNT(*) FROM exam_preparations WHERE user_id = ?),
			(SELECT COUNT(*) FROM routine_events WHERE user_id = ? AND event_type = 'Exam'),
			(SELECT COUNT(*) FROM routine_events WHERE user_id = ? AND event_type = 'CT');
	`, userID, userID, userID, userID, userID, userID, userID, userID).Scan(
		&d.TotalDocuments, &d.TotalQuestions, &d.TotalFlashcards, &d.TotalSummaries,
		&d.AverageProgress, &d.ExamPreparationsCount, &d.TotalExams, &d.TotalCTs)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	events, err := s.events.Upcoming(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.UpcomingEventsCount = len(events)
	if len(events) > 5 {
		events = events[:5]
	}
	if events == nil {
		events = []models.RoutineEvent{}
	}
	d.RecentEvents = events

	return &d, nil
}
