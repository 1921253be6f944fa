package models

import (
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
)

type DocumentType string

const (
	DocumentPDF   DocumentType = "pdf"
	DocumentDOCX  DocumentType = "docx"
	DocumentTXT   DocumentType = "txt"
	DocumentImage DocumentType = "img"
)

// DocumentTypeForName maps a file name to its document type by extension.
func DocumentTypeForName(name string) (DocumentType, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return DocumentPDF, true
	case ".docx":
		return DocumentDOCX, true
	case ".txt":
		return DocumentTXT, true
	case ".jpg", ".jpeg", ".png":
		return DocumentImage, true
	default:
		return "", false
	}
}

type User struct {
	ID           int64
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

type Document struct {
	ID                int64
	UserID            int64
	Name              string
	StoredPath        string
	Type              DocumentType
	Processed         bool
	ExamPreparationID sql.NullInt64
	UploadedAt        time.Time
}

type Summary struct {
	ID         int64
	DocumentID int64
	UserID     int64
	Text       string
	CreatedAt  time.Time
}

type Question struct {
	ID           int64
	DocumentID   int64
	UserID       int64
	QuestionText string
	Answer       string
	QType        string
	Difficulty   string
	Options      []string
	CreatedAt    time.Time
}

// Flashcard statuses, advanced by spaced-repetition reviews.
const (
	FlashcardNew      = "new"
	FlashcardLearning = "learning"
	FlashcardMastered = "mastered"
)

type Flashcard struct {
	ID            int64
	DocumentID    int64
	UserID        int64
	Term          string
	Definition    string
	Status        string
	Due           sql.NullTime
	Stability     float64
	Difficulty    float64
	ElapsedDays   int
	ScheduledDays int
	Reps          int
	Lapses        int
	State         int
	LastReview    sql.NullTime
	CreatedAt     time.Time
}

func (f *Flashcard) ToFSRSCard() fsrs.Card {
	card := fsrs.Card{
		Stability:     f.Stability,
		Difficulty:    f.Difficulty,
		ElapsedDays:   uint64(clampNonNegative(f.ElapsedDays)),
		ScheduledDays: uint64(clampNonNegative(f.ScheduledDays)),
		Reps:          uint64(clampNonNegative(f.Reps)),
		Lapses:        uint64(clampNonNegative(f.Lapses)),
		State:         fsrs.State(clampNonNegative(f.State)),
	}
	if f.Due.Valid {
		card.Due = f.Due.Time
	}
	if f.LastReview.Valid {
		card.LastReview = f.LastReview.Time
	}
	return card
}

func (f *Flashcard) ApplyFSRSCard(c fsrs.Card) {
	f.Due = sql.NullTime{Time: c.Due, Valid: !c.Due.IsZero()}
	f.Stability = c.Stability
	f.Difficulty = c.Difficulty
	f.ElapsedDays = int(c.ElapsedDays)
	f.ScheduledDays = int(c.ScheduledDays)
	f.Reps = int(c.Reps)
	f.Lapses = int(c.Lapses)
	f.State = int(c.State)
	f.LastReview = sql.NullTime{Time: c.LastReview, Valid: !c.LastReview.IsZero()}
	f.Status = StatusForState(c.State)
}

// StatusForState folds FSRS scheduling states onto the coarser flashcard
// status ladder shown to users.
func StatusForState(state fsrs.State) string {
	switch state {
	case fsrs.New:
		return FlashcardNew
	case fsrs.Review:
		return FlashcardMastered
	default:
		return FlashcardLearning
	}
}

type Progress struct {
	ID                 int64
	UserID             int64
	DocumentID         int64
	PercentComplete    float64
	QuestionsAttempted int
	FlashcardsReviewed int
	LastAccessed       time.Time
}

type RoutineEvent struct {
	ID              int64
	UserID          int64
	DocumentID      sql.NullInt64
	EventType       string
	Title           string
	Date            time.Time
	Description     string
	Time            string
	Place           string
	Syllabus        string
	QuestionPattern string
	CreatedAt       time.Time
}

type ExamPreparation struct {
	ID          int64
	UserID      int64
	EventID     int64
	Title       string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	DocumentsCount  int
	TotalQuestions  int
	TotalFlashcards int
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
