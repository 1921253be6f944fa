package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"examassist/internal/ai"
	"examassist/internal/extract"
	"examassist/internal/models"
)

var (
	// ErrNoText means the document yielded no extractable text at all.
	ErrNoText = errors.New("no text extracted from document")
)

const summaryTextLimit = 8000

type SummaryService struct {
	db        *sql.DB
	ai        *ai.Client
	extractor *extract.Service
	documents *DocumentService
}

func NewSummaryService(db *sql.DB, aiClient *ai.Client, extractor *extract.Service, documents *DocumentService) *SummaryService {
	return &SummaryService{db: db, ai: aiClient, extractor: extractor, documents: documents}
}

// Summarize extracts the document's text, asks the model for a student
// summary and stores the result.
func (s *SummaryService) Summarize(ctx context.Context, userID, documentID int64) (*models.Summary, error) {
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
	if len(text) > summaryTextLimit {
		text = text[:summaryTextLimit]
	}

	prompt := "Summarize the following document for a university student:\n\n" + text
	summaryText, err := s.ai.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO summaries (document_id, user_id, text, created_at)
		VALUES (?, ?, ?, ?);
	`, documentID, userID, summaryText, now)
	if err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	id, _ := res.LastInsertId()

	if err := s.documents.MarkProcessed(ctx, userID, documentID); err != nil {
		return nil, err
	}

	return &models.Summary{ID: id, DocumentID: documentID, UserID: userID, Text: summaryText, CreatedAt: now}, nil
}

func (s *SummaryService) List(ctx context.Context, userID, documentID int64) ([]models.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, user_id, text, created_at
		FROM summaries WHERE document_id = ? AND user_id = ? ORDER BY created_at DESC;
	`, documentID, userID)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []models.Summary
	for rows.Next() {
		var sum models.Summary
		if err := rows.Scan(&sum.ID, &sum.DocumentID, &sum.UserID, &sum.Text, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
