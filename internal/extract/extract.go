package extract

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"examassist/internal/ai"
	"examassist/internal/logger"
	"examassist/internal/models"
)

const imageTranscriptionPrompt = `Transcribe all readable text from this image. Return only the text content, preserving line breaks. Do not describe the image.`

// Service turns a stored document into plain text. Extraction failures of
// any kind surface as an empty string, never as an error: callers decide
// what an empty result means.
type Service struct {
	ai  *ai.Client
	log *logger.Logger
}

func NewService(aiClient *ai.Client, log *logger.Logger) *Service {
	return &Service{ai: aiClient, log: log}
}

// Text extracts plain text from the file at path according to its
// document type.
func (s *Service) Text(ctx context.Context, path string, docType models.DocumentType) string {
	switch docType {
	case models.DocumentPDF:
		return s.pdfText(path)
	case models.DocumentDOCX:
		return s.docxText(path)
	case models.DocumentTXT:
		return s.plainText(path)
	case models.DocumentImage:
		return s.imageText(ctx, path)
	default:
		return ""
	}
}

func (s *Service) pdfText(path string) string {
	f, reader, err := pdf.Open(path)
	if err != nil {
		s.log.Warn("open pdf failed", "path", path, "error", err)
		return ""
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		s.log.Warn("extract pdf text failed", "path", path, "error", err)
		return ""
	}
	text, err := io.ReadAll(plain)
	if err != nil {
		s.log.Warn("read pdf text failed", "path", path, "error", err)
		return ""
	}
	return string(text)
}

func (s *Service) plainText(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("read text file failed", "path", path, "error", err)
		return ""
	}
	return string(data)
}

// imageText transcribes an image through the multimodal completion
// client. An unconfigured client yields an empty string like any other
// extraction failure.
func (s *Service) imageText(ctx context.Context, path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("read image failed", "path", path, "error", err)
		return ""
	}

	text, err := s.ai.CompleteWithImage(ctx, imageTranscriptionPrompt, data, MimeTypeForImage(path))
	if err != nil {
		s.log.Warn("image transcription failed", "path", path, "error", err)
		return ""
	}
	return text
}

// MimeTypeForImage maps an image file name to its content type.
func MimeTypeForImage(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
