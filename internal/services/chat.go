package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"examassist/internal/ai"
	"examassist/internal/extract"
	"examassist/internal/models"
)

const chatContextLimit = 1000

type ChatService struct {
	db        *sql.DB
	ai        *ai.Client
	extractor *extract.Service
}

func NewChatService(db *sql.DB, aiClient *ai.Client, extractor *extract.Service) *ChatService {
	return &ChatService{db: db, ai: aiClient, extractor: extractor}
}

// Ask answers a free-form study question, grounding the reply in the
// user's three most recent documents when any yield text.
func (s *ChatService) Ask(ctx context.Context, userID int64, message string) (string, error) {
	if !s.ai.Configured() {
		return "", ai.ErrUnavailable
	}

	docContext := s.recentDocumentContext(ctx, userID)

	var prompt string
	if docContext != "" {
		prompt = fmt.Sprintf(`You are a study assistant. Use the student's uploaded materials below when relevant.

Materials:
%s

Question: %s`, docContext, message)
	} else {
		prompt = "You are a study assistant helping a university student. Answer this question:\n\n" + message
	}

	reply, err := s.ai.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return reply, nil
}

func (s *ChatService) recentDocumentContext(ctx context.Context, userID int64) string {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, stored_path, doc_type FROM documents
		WHERE user_id = ? ORDER BY uploaded_at DESC LIMIT 3;
	`, userID)
	if err != nil {
		return ""
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var name, path string
		var docType models.DocumentType
		if err := rows.Scan(&name, &path, &docType); err != nil {
			continue
		}
		text := s.extractor.Text(ctx, path, docType)
		if text == "" {
			continue
		}
		if len(text) > chatContextLimit {
			text = text[:chatContextLimit]
		}
		parts = append(parts, fmt.Sprintf("[%s]\n%s", name, text))
	}
	return strings.Join(parts, "\n\n")
}
