package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"examassist/internal/ai"
	"examassist/internal/logger"
	"examassist/internal/models"
)

func writeDocx(t *testing.T, dir, documentXML string) string {
	t.Helper()
	path := filepath.Join(dir, "test.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func testService() *Service {
	return NewService(ai.NewClient("", "", ""), logger.NewNop())
}

func TestDocxText(t *testing.T) {
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	path := writeDocx(t, t.TempDir(), doc)
	got := testService().Text(context.Background(), path, models.DocumentDOCX)

	want := "First paragraph.\nSecond paragraph."
	if got != want {
		t.Errorf("Text = %q, want %q", got, want)
	}
}

func TestDocxTextMissingDocumentPart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if got := testService().Text(context.Background(), path, models.DocumentDOCX); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestTextPlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("plain notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := testService().Text(context.Background(), path, models.DocumentTXT); got != "plain notes" {
		t.Errorf("Text = %q", got)
	}
}

func TestTextFailuresYieldEmptyString(t *testing.T) {
	svc := testService()
	cases := []struct {
		name    string
		path    string
		docType models.DocumentType
	}{
		{"missing txt", "/does/not/exist.txt", models.DocumentTXT},
		{"missing pdf", "/does/not/exist.pdf", models.DocumentPDF},
		{"missing docx", "/does/not/exist.docx", models.DocumentDOCX},
		{"unconfigured image client", "/does/not/exist.jpg", models.DocumentImage},
		{"unknown type", "/does/not/exist.bin", models.DocumentType("bin")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := svc.Text(context.Background(), tc.path, tc.docType); got != "" {
				t.Errorf("expected empty text, got %q", got)
			}
		})
	}
}

func TestMimeTypeForImage(t *testing.T) {
	if got := MimeTypeForImage("photo.PNG"); got != "image/png" {
		t.Errorf("png mime = %q", got)
	}
	if got := MimeTypeForImage("scan.jpeg"); got != "image/jpeg" {
		t.Errorf("jpeg mime = %q", got)
	}
}
