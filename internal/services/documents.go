package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"examassist/internal/models"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
)

type DocumentService struct {
	db        *sql.DB
	uploadDir string
}

func NewDocumentService(db *sql.DB, uploadDir string) *DocumentService {
	return &DocumentService{db: db, uploadDir: uploadDir}
}

// Create stores the uploaded file under a random name and records it.
// prepID, when valid, ties the document to an exam preparation.
func (s *DocumentService) Create(ctx context.Context, userID int64, original string, docType models.DocumentType, src io.Reader, prepID sql.NullInt64) (*models.Document, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure upload dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(original)
	storedPath := filepath.Join(s.uploadDir, name)
	out, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return nil, fmt.Errorf("write file: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (user_id, name, stored_path, doc_type, processed, exam_preparation_id, uploaded_at)
		VALUES (?, ?, ?, ?, 0, ?, ?);
	`, userID, original, storedPath, docType, prepID, now)
	if err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	id, _ := res.LastInsertId()

	return &models.Document{
		ID:                id,
		UserID:            userID,
		Name:              original,
		StoredPath:        storedPath,
		Type:              docType,
		ExamPreparationID: prepID,
		UploadedAt:        now,
	}, nil
}

func (s *DocumentService) GetByID(ctx context.Context, userID, id int64) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, stored_path, doc_type, processed, exam_preparation_id, uploaded_at
		FROM documents WHERE id = ? AND user_id = ?;
	`, id, userID).Scan(&doc.ID, &doc.UserID, &doc.Name, &doc.StoredPath, &doc.Type,
		&doc.Processed, &doc.ExamPreparationID, &doc.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentService) List(ctx context.Context, userID int64) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, stored_path, doc_type, processed, exam_preparation_id, uploaded_at
		FROM documents WHERE user_id = ? ORDER BY uploaded_at DESC;
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
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

// Delete removes the stored file and the row. Derived rows go with it
// through foreign key cascades.
func (s *DocumentService) Delete(ctx context.Context, userID, id int64) error {
	doc, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := os.Remove(doc.StoredPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ? AND user_id = ?;`, id, userID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *DocumentService) MarkProcessed(ctx context.Context, userID, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents SET processed = 1 WHERE id = ? AND user_id = ?;
	`, id, userID)
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}
