package extract

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"
)

// docxText pulls the run text out of word/document.xml. Only paragraph
// boundaries are preserved; tables, headers and footers are skipped.
func (s *Service) docxText(path string) string {
	zr, err := zip.OpenReader(path)
	if err != nil {
		s.log.Warn("open docx failed", "path", path, "error", err)
		return ""
	}
	defer zr.Close()

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			break
		}
	}
	if doc == nil || err != nil {
		s.log.Warn("docx has no document part", "path", path, "error", err)
		return ""
	}
	defer doc.Close()

	text, err := readDocumentXML(doc)
	if err != nil {
		s.log.Warn("parse docx failed", "path", path, "error", err)
		return ""
	}
	return text
}

func readDocumentXML(r io.Reader) (string, error) {
	var sb strings.Builder
	decoder := xml.NewDecoder(r)
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
