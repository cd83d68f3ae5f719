package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
	"docqa/internal/logger"
	"docqa/internal/port"
)

const sampleFragments = 3

// IngestUseCase extracts fragments from an upload set. Documents fail
// independently; the batch only fails when nothing at all was extracted.
type IngestUseCase struct {
	extractor    port.Extractor
	workers      int
	maxDocuments int
	progress     domain.ProgressFunc
}

// IngestOption configures an IngestUseCase.
type IngestOption func(*IngestUseCase)

// WithWorkers sets how many documents are extracted concurrently.
func WithWorkers(n int) IngestOption {
	return func(u *IngestUseCase) {
		if n > 0 {
			u.workers = n
		}
	}
}

// WithMaxDocuments caps the upload set size. Zero means no cap.
func WithMaxDocuments(n int) IngestOption {
	return func(u *IngestUseCase) { u.maxDocuments = n }
}

// WithProgress registers an observer for ingestion events.
func WithProgress(fn domain.ProgressFunc) IngestOption {
	return func(u *IngestUseCase) { u.progress = fn }
}

// NewIngestUseCase creates a new ingest use case.
func NewIngestUseCase(extractor port.Extractor, opts ...IngestOption) *IngestUseCase {
	u := &IngestUseCase{
		extractor: extractor,
		workers:   1,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Ingest extracts every document and returns the fragments in upload order,
// then extraction order.
func (u *IngestUseCase) Ingest(ctx context.Context, docs []domain.UploadedDocument) (*domain.IngestionBatch, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: please upload at least one file", domain.ErrInvalidUpload)
	}
	if u.maxDocuments > 0 && len(docs) > u.maxDocuments {
		return nil, fmt.Errorf("%w: at most %d files per upload, got %d", domain.ErrInvalidUpload, u.maxDocuments, len(docs))
	}

	logger.Info("Step 1/2: Parsing %d document(s)", len(docs))

	outcomes := make([]domain.DocumentOutcome, len(docs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	for i, doc := range docs {
		if gctx.Err() != nil {
			break
		}
		i, doc := i, doc
		g.Go(func() error {
			u.emit(&mu, domain.ProgressEvent{
				Stage:    domain.StageExtract,
				Kind:     domain.EventStarted,
				Document: doc.Name,
				Index:    i,
				Total:    len(docs),
			})
			outcome := u.extractOne(gctx, i, doc)
			outcomes[i] = outcome
			u.report(&mu, outcome, len(docs))
			return nil
		})
	}
	_ = g.Wait()

	// Cancellation from the caller aborts the batch. Per-document failures do not.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := &domain.IngestionBatch{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Status != domain.StatusIndexed {
			batch.Failed = append(batch.Failed, o.Document.Name)
			continue
		}
		batch.Fragments = append(batch.Fragments, o.Fragments...)
	}

	u.emit(&mu, domain.ProgressEvent{
		Stage:     domain.StageExtract,
		Kind:      domain.EventStageComplete,
		Total:     len(docs),
		Fragments: len(batch.Fragments),
		Failed:    batch.Failed,
	})

	if len(batch.Fragments) == 0 {
		return nil, &domain.EmptyIngestionError{Failed: batch.Failed}
	}

	logger.Info("Extracted %d fragment(s) from %d of %d document(s)", len(batch.Fragments), len(docs)-len(batch.Failed), len(docs))
	if len(batch.Failed) > 0 {
		logger.Warn("Failed documents: %v", batch.Failed)
	}
	logSample(batch.Fragments)

	return batch, nil
}

func (u *IngestUseCase) extractOne(ctx context.Context, index int, doc domain.UploadedDocument) domain.DocumentOutcome {
	outcome := domain.DocumentOutcome{Index: index, Document: doc}

	fragments, err := u.extractor.Extract(ctx, doc)
	switch {
	case err != nil:
		outcome.Status = domain.StatusFailed
		outcome.Err = err
		if !errors.Is(err, domain.ErrExtraction) {
			outcome.Err = fmt.Errorf("%w: %s: %w", domain.ErrExtraction, doc.Name, err)
		}
		logger.Error("Error processing %s: %v", doc.Name, err)
	case len(fragments) == 0:
		outcome.Status = domain.StatusEmpty
		outcome.Err = fmt.Errorf("%w: %s", domain.ErrEmptyExtraction, doc.Name)
		logger.Warn("No content extracted from %s", doc.Name)
	default:
		outcome.Status = domain.StatusIndexed
		for j := range fragments {
			fragments[j].SourceID = doc.Name
			fragments[j].OriginPath = doc.StorageHandle
			fragments[j].Position = j
			fragments[j].ID = domain.FragmentID(doc.Name, j)
		}
		outcome.Fragments = fragments
		logger.Debug("Parsed %s into %d fragment(s)", doc.Name, len(fragments))
	}
	return outcome
}

func (u *IngestUseCase) report(mu *sync.Mutex, o domain.DocumentOutcome, total int) {
	ev := domain.ProgressEvent{
		Stage:     domain.StageExtract,
		Document:  o.Document.Name,
		Index:     o.Index,
		Total:     total,
		Fragments: len(o.Fragments),
		Err:       o.Err,
	}
	switch o.Status {
	case domain.StatusIndexed:
		ev.Kind = domain.EventSucceeded
	case domain.StatusEmpty:
		ev.Kind = domain.EventEmpty
	default:
		ev.Kind = domain.EventFailed
	}
	u.emit(mu, ev)
}

func (u *IngestUseCase) emit(mu *sync.Mutex, ev domain.ProgressEvent) {
	if u.progress == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	u.progress(ev)
}

func logSample(fragments []domain.Fragment) {
	if !logger.IsDebug() {
		return
	}
	n := sampleFragments
	if len(fragments) < n {
		n = len(fragments)
	}
	for i := 0; i < n; i++ {
		f := fragments[i]
		preview := []rune(f.Content)
		if len(preview) > 200 {
			preview = append(preview[:200], '.', '.', '.')
		}
		logger.Debug("Sample fragment %d from %s (%d chars): %s", i+1, f.SourceID, len(f.Content), string(preview))
	}
}
