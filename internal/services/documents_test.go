package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"

	"examassist/internal/db"
	"examassist/internal/models"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func insertUser(t *testing.T, conn *sql.DB, username string) int64 {
	t.Helper()
	res, err := conn.Exec(`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, datetime('now'));`,
		username, []byte("x"))
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func TestDocumentLifecycle(t *testing.T) {
	conn := testDB(t)
	svc := NewDocumentService(conn, t.TempDir())
	ctx := context.Background()
	userID := insertUser(t, conn, "alice")

	doc, err := svc.Create(ctx, userID, "notes.txt", models.DocumentTXT,
		strings.NewReader("lecture notes"), sql.NullInt64{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if doc.Type != models.DocumentTXT || doc.Name != "notes.txt" {
		t.Errorf("document = %+v", doc)
	}
	if _, err := os.Stat(doc.StoredPath); err != nil {
		t.Errorf("stored file missing: %v", err)
	}

	docs, err := svc.List(ctx, userID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != doc.ID {
		t.Errorf("list = %+v", docs)
	}

	if err := svc.Delete(ctx, userID, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(doc.StoredPath); !os.IsNotExist(err) {
		t.Errorf("stored file survived delete")
	}
	if _, err := svc.GetByID(ctx, userID, doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("GetByID after delete = %v, want ErrDocumentNotFound", err)
	}
}

func TestDocumentOwnerScoping(t *testing.T) {
	conn := testDB(t)
	svc := NewDocumentService(conn, t.TempDir())
	ctx := context.Background()
	alice := insertUser(t, conn, "alice")
	bob := insertUser(t, conn, "bob")

	doc, err := svc.Create(ctx, alice, "secret.txt", models.DocumentTXT,
		strings.NewReader("private"), sql.NullInt64{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.GetByID(ctx, bob, doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("foreign GetByID = %v, want ErrDocumentNotFound", err)
	}
	if err := svc.Delete(ctx, bob, doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("foreign Delete = %v, want ErrDocumentNotFound", err)
	}

	docs, err := svc.List(ctx, bob)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("bob sees %d foreign documents", len(docs))
	}
}

func TestProgressGetOrCreateAndUpdate(t *testing.T) {
	conn := testDB(t)
	docs := NewDocumentService(conn, t.TempDir())
	progress := NewProgressService(conn)
	ctx := context.Background()
	userID := insertUser(t, conn, "alice")

	doc, err := docs.Create(ctx, userID, "notes.txt", models.DocumentTXT,
		strings.NewReader("notes"), sql.NullInt64{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	p, err := progress.GetOrCreate(ctx, userID, doc.ID)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if p.PercentComplete != 0 || p.FlashcardsReviewed != 0 {
		t.Errorf("fresh progress = %+v", p)
	}

	again, err := progress.GetOrCreate(ctx, userID, doc.ID)
	if err != nil {
		t.Fatalf("GetOrCreate again: %v", err)
	}
	if again.ID != p.ID {
		t.Errorf("second GetOrCreate created a new row: %d vs %d", again.ID, p.ID)
	}

	pct := 40.0
	updated, err := progress.Update(ctx, userID, doc.ID, ProgressUpdate{PercentComplete: &pct})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.PercentComplete != 40.0 {
		t.Errorf("percent = %v, want 40", updated.PercentComplete)
	}

	if err := progress.RecordFlashcardReview(ctx, userID, doc.ID); err != nil {
		t.Fatalf("RecordFlashcardReview: %v", err)
	}
	final, err := progress.GetOrCreate(ctx, userID, doc.ID)
	if err != nil {
		t.Fatalf("GetOrCreate final: %v", err)
	}
	if final.FlashcardsReviewed != 1 {
		t.Errorf("flashcards_reviewed = %d, want 1", final.FlashcardsReviewed)
	}
	if final.PercentComplete != 40.0 {
		t.Errorf("percent lost on review: %v", final.PercentComplete)
	}
}
