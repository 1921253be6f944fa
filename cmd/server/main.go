package main

import (
	stdlog "log"
	"net/http"
	"os"
	"time"

	"examassist/internal/ai"
	"examassist/internal/api"
	"examassist/internal/config"
	"examassist/internal/db"
	"examassist/internal/extract"
	"examassist/internal/logger"
	"examassist/internal/middleware"
	"examassist/internal/services"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		stdlog.Fatalf("build logger: %v", err)
	}
	defer log.Sync()

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal("open database", "error", err)
	}
	defer conn.Close()

	aiClient := ai.NewClient(cfg.GeminiKey, cfg.GeminiModel, cfg.GeminiEndpoint)
	if !aiClient.Configured() {
		log.Warn("GEMINI_API_KEY not set, generation endpoints will be unavailable")
	}
	extractor := extract.NewService(aiClient, log)
	authenticator := middleware.NewAuthenticator(cfg.JWTSecret)

	documentService := services.NewDocumentService(conn, cfg.UploadDir)
	progressService := services.NewProgressService(conn)
	authService := services.NewAuthService(conn, authenticator)
	summaryService := services.NewSummaryService(conn, aiClient, extractor, documentService)
	questionService := services.NewQuestionService(conn, aiClient, extractor, documentService, log)
	flashcardService := services.NewFlashcardService(conn, aiClient, extractor, documentService, progressService, log)
	eventService := services.NewEventService(conn, aiClient, extractor, documentService, cfg.EventAnchorDate, log)
	preparationService := services.NewPreparationService(conn, eventService)
	statsService := services.NewStatsService(conn, eventService)
	chatService := services.NewChatService(conn, aiClient, extractor)

	server := api.NewServer(
		authService,
		documentService,
		summaryService,
		questionService,
		flashcardService,
		eventService,
		progressService,
		preparationService,
		statsService,
		chatService,
	)

	mux := http.NewServeMux()

	staticFS := http.FileServer(http.Dir("./static"))
	mux.Handle("/static/", http.StripPrefix("/static/", staticFS))

	mux.Handle("/api", server.Handler())
	mux.Handle("/api/", server.Handler())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info("listening", "port", port)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      authenticator.WithAuth(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", "error", err)
	}
}
