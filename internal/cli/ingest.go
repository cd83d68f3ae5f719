package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docqa/config"
	"docqa/internal/domain"
	"docqa/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Parse and index documents",
	Long: `Parse up to three documents and index their chunks for question answering.
Each ingestion replaces the previous index entirely.

Examples:
  docqa ingest report.pdf                  # Index a single PDF
  docqa ingest notes.md contract.docx      # Index several files
  docqa ingest "papers/**/*.pdf"           # Globs are expanded by docqa`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	reporter := newProgressReporter(out, cmd.ErrOrStderr())
	p, err := openPipeline(cfg, rootDir, usecase.WithIndexProgress(reporter.Observe))
	if err != nil {
		return err
	}
	defer p.Close()

	start := time.Now()
	handle, batch, err := ingestFiles(cmd.Context(), cfg, p, reporter, args)
	if err != nil {
		return err
	}

	printIngestSummary(out, batch, handle.Count(), time.Since(start))
	return nil
}

// ingestFiles resolves args, extracts every document and rebuilds the
// collection from the result.
func ingestFiles(ctx context.Context, cfg *config.Config, p *pipeline, reporter *progressReporter, args []string) (*usecase.IndexHandle, *domain.IngestionBatch, error) {
	ext := newExtractor(cfg)
	docs, err := newResolver(cfg, ext).Resolve(args)
	if err != nil {
		return nil, nil, err
	}

	ingest := usecase.NewIngestUseCase(ext,
		usecase.WithWorkers(cfg.Extraction.Workers),
		usecase.WithMaxDocuments(cfg.Extraction.MaxDocuments),
		usecase.WithProgress(reporter.Observe),
	)

	batch, err := ingest.Ingest(ctx, docs)
	if err != nil {
		return nil, nil, err
	}

	handle, err := p.gateway.Index(ctx, batch.Fragments)
	if err != nil {
		return nil, nil, err
	}
	return handle, batch, nil
}

func printIngestSummary(w io.Writer, batch *domain.IngestionBatch, indexed int, elapsed time.Duration) {
	succeeded := len(batch.Outcomes) - len(batch.Failed)
	fmt.Fprintf(w, "\n🎉 Ready! Indexed %d chunks from %d of %d file(s) in %s\n",
		indexed, succeeded, len(batch.Outcomes), formatDuration(elapsed))
	if len(batch.Failed) > 0 {
		fmt.Fprintf(w, "⚠️ Skipped: %s\n", strings.Join(batch.Failed, ", "))
	}
}
