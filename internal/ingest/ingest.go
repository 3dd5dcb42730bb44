package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is a unit of text ready for analysis
type Document struct {
	// Text is the plain text to analyze
	Text string

	// Subject is a short human-readable label
	Subject string

	// Source is the file path, URL, or "stdin"
	Source string
}

// FromText wraps raw text as a document
func FromText(text, source string) *Document {
	subject := source
	if subject == "" || subject == "stdin" {
		subject = firstWords(text, 6)
	}
	return &Document{
		Text:    strings.TrimSpace(text),
		Subject: subject,
		Source:  source,
	}
}

// FromFile reads a document from disk. HTML files are reduced to their
// visible text; anything else is treated as plain text.
func FromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	text := string(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		visible, err := VisibleText(strings.NewReader(text))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		text = visible
	}

	return &Document{
		Text:    strings.TrimSpace(text),
		Subject: subjectFromPath(path),
		Source:  path,
	}, nil
}

// subjectFromPath derives a label from the file name
func subjectFromPath(path string) string {
	name := filepath.Base(path)
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

// firstWords truncates text to its first n words for display
func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
