package fs

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"docqa/internal/domain"
	"docqa/internal/port"
)

var _ port.UploadResolver = (*Resolver)(nil)

// Resolver expands file arguments (plain paths or doublestar globs) into an
// upload set, keeping only supported formats.
type Resolver struct {
	includes  []string
	maxFiles  int
	supported func(name string) bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithSupported additionally requires fn(name) to accept a file, typically
// the extractor's own parser check, so globs and parsers cannot drift apart.
func WithSupported(fn func(name string) bool) ResolverOption {
	return func(r *Resolver) { r.supported = fn }
}

func NewResolver(includes []string, maxFiles int, opts ...ResolverOption) *Resolver {
	if len(includes) == 0 {
		includes = []string{"*"}
	}
	r := &Resolver{
		includes: includes,
		maxFiles: maxFiles,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns documents in argument order; files matched by one glob are
// sorted by path. Duplicates are dropped.
func (r *Resolver) Resolve(patterns []string) ([]domain.UploadedDocument, error) {
	var docs []domain.UploadedDocument
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		paths, err := r.expand(pattern)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, err
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true

			if !r.shouldInclude(filepath.Base(abs)) {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filepath.Base(abs))
			}
			docs = append(docs, domain.UploadedDocument{
				Name:          filepath.Base(abs),
				StorageHandle: abs,
				MIMEType:      mime.TypeByExtension(strings.ToLower(filepath.Ext(abs))),
			})
		}
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: please upload at least one file", domain.ErrInvalidUpload)
	}
	if r.maxFiles > 0 && len(docs) > r.maxFiles {
		return nil, fmt.Errorf("%w: at most %d files per upload, got %d", domain.ErrInvalidUpload, r.maxFiles, len(docs))
	}
	return docs, nil
}

func (r *Resolver) expand(pattern string) ([]string, error) {
	info, err := os.Stat(pattern)
	if err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidUpload, pattern)
		}
		return []string{pattern}, nil
	}

	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("%w: bad pattern %q", domain.ErrInvalidUpload, pattern)
	}
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no files match %s", domain.ErrInvalidUpload, pattern)
	}

	// Globs silently skip what they cannot handle; explicit paths do not.
	var kept []string
	for _, m := range matches {
		if r.shouldInclude(filepath.Base(m)) {
			kept = append(kept, m)
		}
	}
	sort.Strings(kept)
	return kept, nil
}

func (r *Resolver) shouldInclude(name string) bool {
	if r.supported != nil && !r.supported(name) {
		return false
	}
	name = strings.ToLower(name)
	for _, pattern := range r.includes {
		matched, err := doublestar.Match(strings.ToLower(pattern), name)
		if err == nil && matched {
			return true
		}
	}
	return false
}
