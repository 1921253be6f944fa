package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// Config stores runtime configuration loaded from environment variables.
// Everything is read once at startup and passed explicitly into
// constructors; nothing looks configuration up at call time.
type Config struct {
	GeminiKey      string
	GeminiEndpoint string
	GeminiModel    string
	Database       string
	UploadDir      string
	JWTSecret      string
	LogMode        string

	// EventAnchorDate is the reference date for resolving weekday-only
	// schedule entries into concrete dates.
	EventAnchorDate time.Time
}

// Load reads configuration from the environment, providing sensible defaults.
func Load() Config {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()
	cfg := Config{
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiEndpoint: getEnv("GEMINI_API_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta/openai/"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		Database:       getEnv("DATABASE_PATH", "./data/examassist.db"),
		UploadDir:      getEnv("UPLOAD_DIR", "./static/uploads"),
		JWTSecret:      getEnv("JWT_SECRET", "examassist-dev-secret"),
		LogMode:        getEnv("LOG_MODE", "dev"),
	}

	anchorRaw := getEnv("EVENT_ANCHOR_DATE", "2025-07-17")
	anchor, err := time.Parse("2006-01-02", anchorRaw)
	if err != nil {
		log.Fatalf("invalid EVENT_ANCHOR_DATE %q: %v", anchorRaw, err)
	}
	cfg.EventAnchorDate = anchor

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("failed to ensure upload dir %s: %v", cfg.UploadDir, err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		log.Fatalf("failed to ensure database dir %s: %v", cfg.Database, err)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}
