package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"examassist/internal/ai"
	"examassist/internal/extract"
	"examassist/internal/middleware"
	"examassist/internal/models"
	"examassist/internal/recovery"
	"examassist/internal/services"
)

const maxMultipartMemory = 8 << 20 // 8 MB

const timeLayout = "2006-01-02T15:04:05Z07:00"

type Server struct {
	mux          *http.ServeMux
	auth         *services.AuthService
	documents    *services.DocumentService
	summaries    *services.SummaryService
	questions    *services.QuestionService
	flashcards   *services.FlashcardService
	events       *services.EventService
	progress     *services.ProgressService
	preparations *services.PreparationService
	stats        *services.StatsService
	chat         *services.ChatService
}

func NewServer(
	auth *services.AuthService,
	documents *services.DocumentService,
	summaries *services.SummaryService,
	questions *services.QuestionService,
	flashcards *services.FlashcardService,
	events *services.EventService,
	progress *services.ProgressService,
	preparations *services.PreparationService,
	stats *services.StatsService,
	chat *services.ChatService,
) *Server {
	s := &Server{
		mux:          http.NewServeMux(),
		auth:         auth,
		documents:    documents,
		summaries:    summaries,
		questions:    questions,
		flashcards:   flashcards,
		events:       events,
		progress:     progress,
		preparations: preparations,
		stats:        stats,
		chat:         chat,
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)

	s.mux.Handle("/api/documents", s.protect(s.handleDocuments))
	s.mux.Handle("/api/documents/", s.protect(s.handleDocumentActions))
	s.mux.Handle("/api/flashcards/", s.protect(s.handleFlashcardActions))
	s.mux.Handle("/api/events", s.protect(s.handleEvents))
	s.mux.Handle("/api/events/from-image", s.protect(s.handleEventsFromImage))
	s.mux.Handle("/api/events/clear", s.protect(s.handleEventsClear))
	s.mux.Handle("/api/preparations", s.protect(s.handlePreparations))
	s.mux.Handle("/api/preparations/", s.protect(s.handlePreparationActions))
	s.mux.Handle("/api/stats", s.protect(s.handleStats))
	s.mux.Handle("/api/chat", s.protect(s.handleChat))
}

func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	user, token, err := s.auth.Register(r.Context(), payload.Username, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			writeError(w, http.StatusConflict, "Username already taken.")
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, "Username and a password of at least 6 characters are required.")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"user":  map[string]any{"id": user.ID, "username": user.Username},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	user, token, err := s.auth.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password.")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  map[string]any{"id": user.ID, "username": user.Username},
	})
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		docs, err := s.documents.List(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": documentsPayload(docs)})
	case http.MethodPost:
		s.uploadDocument(w, r, userID, sql.NullInt64{})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) uploadDocument(w http.ResponseWriter, r *http.Request, userID int64, prepID sql.NullInt64) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	docType, ok := models.DocumentTypeForName(header.Filename)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unsupported file type. Use pdf, docx, txt or an image.")
		return
	}

	doc, err := s.documents.Create(r.Context(), userID, header.Filename, docType, file, prepID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"document": documentPayload(*doc)})
}

// handleDocumentActions dispatches /api/documents/{id} and its subpaths.
func (s *Server) handleDocumentActions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	rest := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	parts := strings.SplitN(rest, "/", 2)
	docID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = strings.Trim(parts[1], "/")
	}

	switch action {
	case "":
		s.documentByID(w, r, userID, docID)
	case "summarize":
		s.summarizeDocument(w, r, userID, docID)
	case "summaries":
		s.listSummaries(w, r, userID, docID)
	case "questions":
		s.documentQuestions(w, r, userID, docID)
	case "flashcards":
		s.documentFlashcards(w, r, userID, docID)
	case "progress":
		s.documentProgress(w, r, userID, docID)
	case "events":
		s.documentEvents(w, r, userID, docID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) documentByID(w http.ResponseWriter, r *http.Request, userID, docID int64) {
	switch r.Method {
	case http.MethodGet:
		doc, err := s.documents.GetByID(r.Context(), userID, docID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document": documentPayload(*doc)})
	case http.MethodDelete:
		if err := s.documents.Delete(r.Context(), userID, docID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

func (s *Server) summarizeDocument(w http.ResponseWriter, r *http.Request, userID, docID int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	summary, err := s.summaries.Summarize(r.Context(), userID, docID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"summary": summaryPayload(*summary)})
}

func (s *Server) listSummaries(w http.ResponseWriter, r *http.Request, userID, docID int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	summaries, err := s.summaries.List(r.Context(), userID, docID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, summaryPayload(sum))
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": out})
}

func (s *Server) documentQuestions(w http.ResponseWriter, r *http.Request, userID, docID int64) {
	switch r.Method {
	case http.MethodGet:
		questions, err := s.questions.List(r.Context(), userID, docID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"questions": questionsPayload(questions)})
	case http.MethodPost:
		var payload struct {
			QuestionType string `json:"question_type"`
			Difficulty   string `json:"difficulty"`
		}
		if r.Body != nil {
			// Payload is optional; defaults apply on decode failure.
			_ = json.NewDecoder(r.Body).Decode(&payload)
		}

		questions, err := s.questions.Generate(r.Context(), userID, docID, payload.QuestionType, payload.Difficulty)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"questions": questionsPayload(questions)})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) documentFlashcards(w http.ResponseWriter, r *http.Request, userID, docID int64) {
	switch r.Method {
	case http.MethodGet:
		cards, err := s.flashcards.List(r.Context(), userID, docID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"flashcards": flashcardsPayload(cards)})
	case http.MethodPost:
		cards, err := s.flashcards.Generate(r.Context(), userID, docID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"flashcards": flashcardsPayload(cards)})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) documentProgress(w http.ResponseWriter, r *http.Request, userID, docID int64) {
	switch r.Method {
	case http.MethodGet:
		p, err := s.progress.GetOrCreate(r.Context(), userID, docID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"progress": progressPayload(*p)})
	case http.MethodPost, http.MethodPut:
		var payload struct {
			PercentComplete    *float64 `json:"percent_complete"`
			QuestionsAttempted *int     `json:"questions_attempted"`
			FlashcardsReviewed *int     `json:"flashcards_reviewed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}

		p, err := s.progress.Update(r.Context(), userID, docID, services.ProgressUpdate{
			PercentComplete:    payload.PercentComplete,
			QuestionsAttempted: payload.QuestionsAttempted,
			FlashcardsReviewed: payload.FlashcardsReviewed,
		})
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"progress": progressPayload(*p)})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodPut)
	}
}

func (s *Server) documentEvents(w http.ResponseWriter, r *http.Request, userID, docID int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	events, err := s.events.ExtractFromDocument(r.Context(), userID, docID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"events": eventsPayload(events)})
}

// handleFlashcardActions dispatches /api/flashcards/{id}/review.
func (s *Server) handleFlashcardActions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	rest := strings.TrimPrefix(r.URL.Path, "/api/flashcards/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || strings.Trim(parts[1], "/") != "review" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	cardID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid flashcard id")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Rating string `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	rating, err := parseRating(payload.Rating)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card, err := s.flashcards.Review(r.Context(), userID, cardID, rating)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flashcard": flashcardPayload(*card)})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	events, err := s.events.Upcoming(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": eventsPayload(events)})
}

func (s *Server) handleEventsFromImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if docType, ok := models.DocumentTypeForName(header.Filename); !ok || docType != models.DocumentImage {
		writeError(w, http.StatusBadRequest, "A jpg or png schedule image is required.")
		return
	}

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	events, err := s.events.ExtractFromImage(r.Context(), userID, image, extract.MimeTypeForImage(header.Filename))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"events": eventsPayload(events)})
}

func (s *Server) handleEventsClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodPost, http.MethodDelete)
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	count, err := s.events.ClearUpcoming(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": count})
}

func (s *Server) handlePreparations(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		preps, err := s.preparations.List(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out := make([]map[string]any, 0, len(preps))
		for _, prep := range preps {
			out = append(out, preparationPayload(prep))
		}
		writeJSON(w, http.StatusOK, map[string]any{"preparations": out})
	case http.MethodPost:
		var payload struct {
			EventID int64 `json:"event_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.EventID == 0 {
			writeError(w, http.StatusBadRequest, "event_id is required")
			return
		}

		prep, err := s.preparations.CreateForEvent(r.Context(), userID, payload.EventID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"preparation": preparationPayload(*prep)})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handlePreparationActions dispatches /api/preparations/{id} and subpaths.
func (s *Server) handlePreparationActions(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	rest := strings.TrimPrefix(r.URL.Path, "/api/preparations/")
	parts := strings.SplitN(rest, "/", 2)
	prepID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid preparation id")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = strings.Trim(parts[1], "/")
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			prep, err := s.preparations.Get(r.Context(), userID, prepID)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"preparation": preparationPayload(*prep)})
		case http.MethodDelete:
			if err := s.preparations.Delete(r.Context(), userID, prepID); err != nil {
				s.writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
		default:
			methodNotAllowed(w, http.MethodGet, http.MethodDelete)
		}
	case "documents":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		docs, err := s.preparations.Documents(r.Context(), userID, prepID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": documentsPayload(docs)})
	case "upload":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		if _, err := s.preparations.Get(r.Context(), userID, prepID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.uploadDocument(w, r, userID, sql.NullInt64{Int64: prepID, Valid: true})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	dashboard, err := s.stats.Dashboard(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || strings.TrimSpace(payload.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.chat.Ask(r.Context(), userID, payload.Message)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// writeServiceError maps sentinel service errors onto HTTP responses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrDocumentNotFound),
		errors.Is(err, services.ErrFlashcardNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrPreparationNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrNoText):
		writeError(w, http.StatusBadRequest, "No text extracted from document.")
	case errors.Is(err, ai.ErrUnavailable):
		writeError(w, http.StatusInternalServerError, "Gemini API key not configured.")
	case errors.Is(err, recovery.ErrExhausted):
		writeError(w, http.StatusInternalServerError, "Failed to generate content. Please try again.")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseRating(raw string) (fsrs.Rating, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "again":
		return fsrs.Again, nil
	case "hard":
		return fsrs.Hard, nil
	case "good":
		return fsrs.Good, nil
	case "easy":
		return fsrs.Easy, nil
	default:
		return 0, fmt.Errorf("unknown rating %q", raw)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
