package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Ensure Extractor implements the interface.
var _ port.Extractor = (*Extractor)(nil)

// Extractor picks a parser by file extension, parses the document into
// sections and chunks them into fragments.
type Extractor struct {
	parsers map[string]port.Parser
	chunker port.Chunker
	timeout time.Duration
}

// New creates an Extractor. A zero timeout disables the per-document deadline.
func New(chunker port.Chunker, timeout time.Duration, parsers ...port.Parser) *Extractor {
	e := &Extractor{
		parsers: make(map[string]port.Parser),
		chunker: chunker,
		timeout: timeout,
	}
	for _, p := range parsers {
		for _, ext := range p.Extensions() {
			e.parsers[strings.ToLower(ext)] = p
		}
	}
	return e
}

// Default returns an Extractor with every built-in parser registered.
func Default(chunker port.Chunker, timeout time.Duration) *Extractor {
	return New(chunker, timeout, NewPDFParser(), NewDOCXParser(), NewXLSXParser(), NewTextParser())
}

// Supports reports whether a parser is registered for the file's extension.
func (e *Extractor) Supports(name string) bool {
	_, ok := e.parsers[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Patterns returns one upload glob per registered extension, sorted.
func (e *Extractor) Patterns() []string {
	patterns := make([]string, 0, len(e.parsers))
	for ext := range e.parsers {
		patterns = append(patterns, "*"+ext)
	}
	sort.Strings(patterns)
	return patterns
}

type result struct {
	fragments []domain.Fragment
	err       error
}

// Extract parses and chunks doc on its own goroutine so a slow parser never
// holds up the caller past ctx or the configured timeout.
func (e *Extractor) Extract(ctx context.Context, doc domain.UploadedDocument) ([]domain.Fragment, error) {
	parser, err := e.parserFor(doc)
	if err != nil {
		return nil, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("%w: %s: parser panic: %v", domain.ErrExtraction, doc.Name, r)}
			}
		}()

		sections, err := parser.Parse(ctx, doc.StorageHandle)
		if err != nil {
			done <- result{err: fmt.Errorf("%w: %s: %w", domain.ErrExtraction, doc.Name, err)}
			return
		}
		fragments, err := e.chunker.Chunk(sections)
		if err != nil {
			done <- result{err: fmt.Errorf("%w: %s: chunk: %w", domain.ErrExtraction, doc.Name, err)}
			return
		}
		done <- result{fragments: fragments}
	}()

	select {
	case r := <-done:
		return r.fragments, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, doc.Name, ctx.Err())
	}
}

func (e *Extractor) parserFor(doc domain.UploadedDocument) (port.Parser, error) {
	for _, name := range []string{doc.Name, doc.StorageHandle} {
		if p, ok := e.parsers[strings.ToLower(filepath.Ext(name))]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %w: %s", domain.ErrExtraction, domain.ErrUnsupportedFormat, doc.Name)
}
