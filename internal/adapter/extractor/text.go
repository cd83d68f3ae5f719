package extractor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
)

// TextParser reads plain text and markdown files as a single section.
type TextParser struct{}

func NewTextParser() *TextParser { return &TextParser{} }

func (p *TextParser) Extensions() []string {
	return []string{".txt", ".md", ".markdown", ".csv"}
}

func (p *TextParser) Parse(_ context.Context, path string) ([]domain.Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}
	text = strings.TrimPrefix(text, "\ufeff")

	return []domain.Section{{
		Text:     text,
		Metadata: map[string]string{"format": strings.TrimPrefix(filepath.Ext(path), ".")},
	}}, nil
}
