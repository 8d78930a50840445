package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".markdown": true, ".csv": true, ".tsv": true,
	".json": true, ".yaml": true, ".yml": true, ".xml": true, ".html": true,
	".htm": true, ".log": true, ".rst": true,
}

// Chunkable reports whether files named name are split into chunks.
func Chunkable(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".pdf" || textExtensions[ext]
}

// extractText returns the plain text of a chunkable file.
func extractText(name string, content []byte) (string, error) {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return pdfText(content)
	}
	return string(content), nil
}

// pdfText recovers from parser panics on malformed files.
func pdfText(content []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return string(b), nil
}
