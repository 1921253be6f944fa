package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"examassist/internal/ai"
	"examassist/internal/extract"
	"examassist/internal/logger"
	"examassist/internal/models"
	"examassist/internal/recovery"
)

type QuestionService struct {
	db        *sql.DB
	ai        *ai.Client
	extractor *extract.Service
	documents *DocumentService
	ladder    *recovery.Ladder
	log       *logger.Logger
}

func NewQuestionService(db *sql.DB, aiClient *ai.Client, extractor *extract.Service, documents *DocumentService, log *logger.Logger) *QuestionService {
	return &QuestionService{
		db:        db,
		ai:        aiClient,
		extractor: extractor,
		documents: documents,
		ladder:    recovery.NewLadder(aiClient, log),
		log:       log,
	}
}

// Generate regenerates the question set for a document. Previous questions
// for the document are replaced, never appended to.
func (s *QuestionService) Generate(ctx context.Context, userID, documentID int64, qtype, difficulty string) ([]models.Question, error) {
	qtype = questionType(qtype)

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

	opts := recovery.Options{QuestionType: qtype, Difficulty: difficulty}
	candidates, err := s.ladder.Run(ctx, text, recovery.KindQuestion, opts)
	if err != nil {
		return nil, err
	}

	records := recovery.Build(candidates, recovery.KindQuestion, opts)
	if len(records) == 0 {
		return nil, recovery.ErrExhausted
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM questions WHERE document_id = ? AND user_id = ?;
	`, documentID, userID); err != nil {
		return nil, fmt.Errorf("clear questions: %w", err)
	}

	now := time.Now().UTC()
	questions := make([]models.Question, 0, len(records))
	for _, rec := range records {
		q := rec.Question
		var optionsJSON sql.NullString
		if len(q.Options) > 0 {
			encoded, err := json.Marshal(q.Options)
			if err != nil {
				return nil, fmt.Errorf("encode options: %w", err)
			}
			optionsJSON = sql.NullString{String: string(encoded), Valid: true}
		}

		res, err := s.db.ExecContext(ctx, `
			INSERT INTO questions (document_id, user_id, question_text, answer, qtype, difficulty, options, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?);
		`, documentID, userID, q.QuestionText, q.Answer, qtype, q.Difficulty, optionsJSON, now)
		if err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}
		id, _ := res.LastInsertId()

		questions = append(questions, models.Question{
			ID:           id,
			DocumentID:   documentID,
			UserID:       userID,
			QuestionText: q.QuestionText,
			Answer:       q.Answer,
			QType:        qtype,
			Difficulty:   q.Difficulty,
			Options:      q.Options,
			CreatedAt:    now,
		})
	}

	if err := s.documents.MarkProcessed(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *QuestionService) List(ctx context.Context, userID, documentID int64) ([]models.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, user_id, question_text, answer, qtype, difficulty, options, created_at
		FROM questions WHERE document_id = ? AND user_id = ? ORDER BY id ASC;
	`, documentID, userID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var optionsJSON sql.NullString
		if err := rows.Scan(&q.ID, &q.DocumentID, &q.UserID, &q.QuestionText, &q.Answer,
			&q.QType, &q.Difficulty, &optionsJSON, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if optionsJSON.Valid {
			if err := json.Unmarshal([]byte(optionsJSON.String), &q.Options); err != nil {
				return nil, fmt.Errorf("decode options: %w", err)
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// questionType normalizes unknown request values onto the open type.
func questionType(qtype string) string {
	switch qtype {
	case recovery.QuestionMCQ, recovery.QuestionFill:
		return qtype
	default:
		return recovery.QuestionOpen
	}
}
