package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"examassist/internal/ai"
	"examassist/internal/extract"
	"examassist/internal/logger"
	"examassist/internal/models"
	"examassist/internal/recovery"
)

var (
	ErrFlashcardNotFound = errors.New("flashcard not found")
)

type FlashcardService struct {
	db        *sql.DB
	ai        *ai.Client
	extractor *extract.Service
	documents *DocumentService
	progress  *ProgressService
	ladder    *recovery.Ladder
	params    fsrs.Parameters
}

func NewFlashcardService(db *sql.DB, aiClient *ai.Client, extractor *extract.Service, documents *DocumentService, progress *ProgressService, log *logger.Logger) *FlashcardService {
	return &FlashcardService{
		db:        db,
		ai:        aiClient,
		extractor: extractor,
		documents: documents,
		progress:  progress,
		ladder:    recovery.NewLadder(aiClient, log),
		params:    fsrs.DefaultParam(),
	}
}

// Generate regenerates the flashcard set for a document.
func (s *FlashcardService) Generate(ctx context.Context, userID, documentID int64) ([]models.Flashcard, error) {
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

	candidates, err := s.ladder.Run(ctx, text, recovery.KindFlashcard, recovery.Options{})
	if err != nil {
		return nil, err
	}

	records := recovery.Build(candidates, recovery.KindFlashcard, recovery.Options{})
	if len(records) == 0 {
		return nil, recovery.ErrExhausted
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM flashcards WHERE document_id = ? AND user_id = ?;
	`, documentID, userID); err != nil {
		return nil, fmt.Errorf("clear flashcards: %w", err)
	}

	now := time.Now().UTC()
	cards := make([]models.Flashcard, 0, len(records))
	for _, rec := range records {
		fc := rec.Flashcard
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO flashcards (document_id, user_id, term, definition, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?);
		`, documentID, userID, fc.Term, fc.Definition, models.FlashcardNew, now)
		if err != nil {
			return nil, fmt.Errorf("insert flashcard: %w", err)
		}
		id, _ := res.LastInsertId()

		cards = append(cards, models.Flashcard{
			ID:         id,
			DocumentID: documentID,
			UserID:     userID,
			Term:       fc.Term,
			Definition: fc.Definition,
			Status:     models.FlashcardNew,
			CreatedAt:  now,
		})
	}

	if err := s.documents.MarkProcessed(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *FlashcardService) List(ctx context.Context, userID, documentID int64) ([]models.Flashcard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, user_id, term, definition, status,
			   due, stability, difficulty, elapsed_days, scheduled_days,
			   reps, lapses, state, last_review, created_at
		FROM flashcards WHERE document_id = ? AND user_id = ? ORDER BY id ASC;
	`, documentID, userID)
	if err != nil {
		return nil, fmt.Errorf("query flashcards: %w", err)
	}
	defer rows.Close()

	var cards []models.Flashcard
	for rows.Next() {
		var fc models.Flashcard
		if err := rows.Scan(&fc.ID, &fc.DocumentID, &fc.UserID, &fc.Term, &fc.Definition, &fc.Status,
			&fc.Due, &fc.Stability, &fc.Difficulty, &fc.ElapsedDays, &fc.ScheduledDays,
			&fc.Reps, &fc.Lapses, &fc.State, &fc.LastReview, &fc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan flashcard: %w", err)
		}
		cards = append(cards, fc)
	}
	return cards, rows.Err()
}

// Review applies a spaced-repetition rating to one card, reschedules it
// and bumps the owning document's review counter.
func (s *FlashcardService) Review(ctx context.Context, userID, cardID int64, rating fsrs.Rating) (*models.Flashcard, error) {
	var fc models.Flashcard
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, user_id, term, definition, status,
			   due, stability, difficulty, elapsed_days, scheduled_days,
			   reps, lapses, state, last_review, created_at
		FROM flashcards WHERE id = ? AND user_id = ?;
	`, cardID, userID).Scan(&fc.ID, &fc.DocumentID, &fc.UserID, &fc.Term, &fc.Definition, &fc.Status,
		&fc.Due, &fc.Stability, &fc.Difficulty, &fc.ElapsedDays, &fc.ScheduledDays,
		&fc.Reps, &fc.Lapses, &fc.State, &fc.LastReview, &fc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFlashcardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query flashcard: %w", err)
	}

	now := time.Now().UTC()
	scheduling := s.params.Repeat(fc.ToFSRSCard(), now)
	fc.ApplyFSRSCard(scheduling[rating].Card)

	if _, err := s.db.ExecContext(ctx, `
		UPDATE flashcards
		SET status = ?, due = ?, stability = ?, difficulty = ?, elapsed_days = ?,
			scheduled_days = ?, reps = ?, lapses = ?, state = ?, last_review = ?
		WHERE id = ? AND user_id = ?;
	`, fc.Status, fc.Due, fc.Stability, fc.Difficulty, fc.ElapsedDays,
		fc.ScheduledDays, fc.Reps, fc.Lapses, fc.State, fc.LastReview, fc.ID, userID); err != nil {
		return nil, fmt.Errorf("update flashcard: %w", err)
	}

	if err := s.progress.RecordFlashcardReview(ctx, userID, fc.DocumentID); err != nil {
		return nil, err
	}
	return &fc, nil
}
