package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"examassist/internal/models"
)

type ProgressService struct {
	db *sql.DB
}

func NewProgressService(db *sql.DB) *ProgressService {
	return &ProgressService{db: db}
}

// GetOrCreate returns the per-document progress row, creating a zeroed
// one on first access.
func (s *ProgressService) GetOrCreate(ctx context.Context, userID, documentID int64) (*models.Progress, error) {
	var p models.Progress
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, document_id, percent_complete, questions_attempted, flashcards_reviewed, last_accessed
		FROM progress WHERE user_id = ? AND document_id = ?;
	`, userID, documentID).Scan(&p.ID, &p.UserID, &p.DocumentID, &p.PercentComplete,
		&p.QuestionsAttempted, &p.FlashcardsReviewed, &p.LastAccessed)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("query progress: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (user_id, document_id, last_accessed)
		VALUES (?, ?, ?);
	`, userID, documentID, now)
	if err != nil {
		return nil, fmt.Errorf("insert progress: %w", err)
	}
	id, _ := res.LastInsertId()

	return &models.Progress{ID: id, UserID: userID, DocumentID: documentID, LastAccessed: now}, nil
}

// ProgressUpdate carries partial updates; nil fields stay unchanged.
type ProgressUpdate struct {
	PercentComplete    *float64
	QuestionsAttempted *int
	FlashcardsReviewed *int
}

func (s *ProgressService) Update(ctx context.Context, userID, documentID int64, update ProgressUpdate) (*models.Progress, error) {
	p, err := s.GetOrCreate(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	if update.PercentComplete != nil {
		p.PercentComplete = *update.PercentComplete
	}
	if update.QuestionsAttempted != nil {
		p.QuestionsAttempted = *update.QuestionsAttempted
	}
	if update.FlashcardsReviewed != nil {
		p.FlashcardsReviewed = *update.FlashcardsReviewed
	}
	p.LastAccessed = time.Now().UTC()

	if _, err := s.db.ExecContext(ctx, `
		UPDATE progress
		SET percent_complete = ?, questions_attempted = ?, flashcards_reviewed = ?, last_accessed = ?
		WHERE id = ?;
	`, p.PercentComplete, p.QuestionsAttempted, p.FlashcardsReviewed, p.LastAccessed, p.ID); err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}
	return p, nil
}

// RecordFlashcardReview bumps the review counter for one document.
func (s *ProgressService) RecordFlashcardReview(ctx context.Context, userID, documentID int64) error {
	p, err := s.GetOrCreate(ctx, userID, documentID)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE progress SET flashcards_reviewed = ?, last_accessed = ? WHERE id = ?;
	`, p.FlashcardsReviewed+1, time.Now().UTC(), p.ID); err != nil {
		return fmt.Errorf("record review: %w", err)
	}
	return nil
}
