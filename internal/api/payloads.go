package api

import (
	"database/sql"

	"examassist/internal/models"
)

func documentPayload(doc models.Document) map[string]any {
	return map[string]any{
		"id":                  doc.ID,
		"name":                doc.Name,
		"doc_type":            doc.Type,
		"processed":           doc.Processed,
		"exam_preparation_id": nullInt(doc.ExamPreparationID),
		"uploaded_at":         doc.UploadedAt.Format(timeLayout),
	}
}

func documentsPayload(docs []models.Document) []map[string]any {
	out := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		out = append(out, documentPayload(doc))
	}
	return out
}

func summaryPayload(sum models.Summary) map[string]any {
	return map[string]any{
		"id":          sum.ID,
		"document_id": sum.DocumentID,
		"text":        sum.Text,
		"created_at":  sum.CreatedAt.Format(timeLayout),
	}
}

func questionPayload(q models.Question) map[string]any {
	payload := map[string]any{
		"id":            q.ID,
		"document_id":   q.DocumentID,
		"question_text": q.QuestionText,
		"answer":        q.Answer,
		"question_type": q.QType,
		"difficulty":    q.Difficulty,
	}
	if len(q.Options) > 0 {
		payload["options"] = q.Options
	}
	return payload
}

func questionsPayload(questions []models.Question) []map[string]any {
	out := make([]map[string]any, 0, len(questions))
	for _, q := range questions {
		out = append(out, questionPayload(q))
	}
	return out
}

func flashcardPayload(fc models.Flashcard) map[string]any {
	return map[string]any{
		"id":          fc.ID,
		"document_id": fc.DocumentID,
		"term":        fc.Term,
		"definition":  fc.Definition,
		"status":      fc.Status,
		"due":         nullTimeToString(fc.Due),
		"reps":        fc.Reps,
		"lapses":      fc.Lapses,
	}
}

func flashcardsPayload(cards []models.Flashcard) []map[string]any {
	out := make([]map[string]any, 0, len(cards))
	for _, fc := range cards {
		out = append(out, flashcardPayload(fc))
	}
	return out
}

func eventPayload(ev models.RoutineEvent) map[string]any {
	return map[string]any{
		"id":               ev.ID,
		"document_id":      nullInt(ev.DocumentID),
		"event_type":       ev.EventType,
		"title":            ev.Title,
		"date":             ev.Date.Format("2006-01-02"),
		"description":      ev.Description,
		"time":             ev.Time,
		"place":            ev.Place,
		"syllabus":         ev.Syllabus,
		"question_pattern": ev.QuestionPattern,
	}
}

func eventsPayload(events []models.RoutineEvent) []map[string]any {
	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		out = append(out, eventPayload(ev))
	}
	return out
}

func progressPayload(p models.Progress) map[string]any {
	return map[string]any{
		"document_id":         p.DocumentID,
		"percent_complete":    p.PercentComplete,
		"questions_attempted": p.QuestionsAttempted,
		"flashcards_reviewed": p.FlashcardsReviewed,
		"last_accessed":       p.LastAccessed.Format(timeLayout),
	}
}

func preparationPayload(prep models.ExamPreparation) map[string]any {
	return map[string]any{
		"id":               prep.ID,
		"event_id":         prep.EventID,
		"title":            prep.Title,
		"description":      prep.Description,
		"documents_count":  prep.DocumentsCount,
		"total_questions":  prep.TotalQuestions,
		"total_flashcards": prep.TotalFlashcards,
		"created_at":       prep.CreatedAt.Format(timeLayout),
		"updated_at":       prep.UpdatedAt.Format(timeLayout),
	}
}

func nullTimeToString(t sql.NullTime) *string {
	if t.Valid {
		str := t.Time.Format(timeLayout)
		return &str
	}
	return nil
}

func nullInt(v sql.NullInt64) *int64 {
	if v.Valid {
		n := v.Int64
		return &n
	}
	return nil
}
