package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"examassist/internal/models"
)

var (
	ErrPreparationNotFound = errors.New("exam preparation not found")
)

type PreparationService struct {
	db     *sql.DB
	events *EventService
}

func NewPreparationService(db *sql.DB, events *EventService) *PreparationService {
	return &PreparationService{db: db, events: events}
}

// CreateForEvent starts a preparation workspace for one exam event.
// Repeated calls for the same event return the existing preparation.
func (s *PreparationService) CreateForEvent(ctx context.Context, userID, eventID int64) (*models.ExamPreparation, error) {
	event, err := s.events.GetByID(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.getByEvent(ctx, userID, eventID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrPreparationNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	title := event.Title + " Preparation"
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO exam_preparations (user_id, event_id, title, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?);
	`, userID, eventID, title, event.Description, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert preparation: %w", err)
	}
	id, _ := res.LastInsertId()

	return &models.ExamPreparation{
		ID:          id,
		UserID:      userID,
		EventID:     eventID,
		Title:       title,
		Description: event.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *PreparationService) getByEvent(ctx context.Context, userID, eventID int64) (*models.ExamPreparation, error) {
	var prep models.ExamPreparation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, event_id, title, description, created_at, updated_at
		FROM exam_preparations WHERE user_id = ? AND event_id = ?;
	`, userID, eventID).Scan(&prep.ID, &prep.UserID, &prep.EventID, &prep.Title,
		&prep.Description, &prep.CreatedAt, &prep.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPreparationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query preparation: %w", err)
	}
	return &prep, nil
}

func (s *PreparationService) Get(ctx context.Context, userID, id int64) (*models.ExamPreparation, error) {
	var prep models.ExamPreparation
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, event_id, title, description, created_at, updated_at
		FROM exam_preparations WHERE id = ? AND user_id = ?;
	`, id, userID).Scan(&prep.ID, &prep.UserID, &prep.EventID, &prep.Title,
		&prep.Description, &prep.CreatedAt, &prep.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPreparationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query preparation: %w", err)
	}
	if err := s.fillCounts(ctx, &prep); err != nil {
		return nil, err
	}
	return &prep, nil
}

func (s *PreparationService) List(ctx context.Context, userID int64) ([]models.ExamPreparation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, event_id, title, description, created_at, updated_at
		FROM exam_preparations WHERE user_id = ? ORDER BY created_at DESC;
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query preparations: %w", err)
	}
	defer rows.Close()

	var preps []models.ExamPreparation
	for rows.Next() {
		var prep models.ExamPreparation
		if err := rows.Scan(&prep.ID, &prep.UserID, &prep.EventID, &prep.Title,
			&prep.Description, &prep.CreatedAt, &prep.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan preparation: %w", err)
		}
		preps = append(preps, prep)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range preps {
		if err := s.fillCounts(ctx, &preps[i]); err != nil {
			return nil, err
		}
	}
	return preps, nil
}

func (s *PreparationService) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM exam_preparations WHERE id = ? AND user_id = ?;
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete preparation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPreparationNotFound
	}
	return nil
}

// Documents lists the documents attached to one preparation.
func (s *PreparationService) Documents(ctx context.Context, userID, prepID int64) ([]models.Document, error) {
	if _, err := s.Get(ctx, userID, prepID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, stored_path, doc_type, processed, exam_preparation_id, uploaded_at
		FROM documents WHERE user_id = ? AND exam_preparation_id = ? ORDER BY uploaded_at DESC;
	`, userID, prepID)
	if err != nil {
		return nil, fmt.Errorf("query preparation documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.Name, &doc.StoredPath, &doc.Type,
			&doc.Processed, &doc.ExamPreparationID, &doc.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *PreparationService) fillCounts(ctx context.Context, prep *models.ExamPreparation) error {
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			   (SELECT COUNT(*) FROM questions q JOIN documents d ON q.document_id = d.id WHERE d.exam_preparation_id = ?),
			   (SELECT COUNT(*) FROM flashcards f JOIN documents d ON f.document_id = d.id WHERE d.exam_preparation_id = ?)
		FROM documents WHERE exam_preparation_id = ?;
	`, prep.ID, prep.ID, prep.ID).Scan(&prep.DocumentsCount, &prep.TotalQuestions, &prep.TotalFlashcards)
	if err != nil {
		return fmt.Errorf("count preparation contents: %w", err)
	}
	return nil
}
