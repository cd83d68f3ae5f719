package port

import (
	"context"

	"docqa/internal/domain"
)

// Extractor converts one uploaded document into ordered fragments.
type Extractor interface {
	// Extract returns the document's fragments in reading order. A document
	// with no text yields an empty slice and a nil error.
	Extract(ctx context.Context, doc domain.UploadedDocument) ([]domain.Fragment, error)
}

// Parser reads one file format into sections of plain text.
type Parser interface {
	// Extensions lists the lower-case file extensions handled, with the dot.
	Extensions() []string

	Parse(ctx context.Context, path string) ([]domain.Section, error)
}
