package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"docqa/internal/adapter/cache"
	"docqa/internal/domain"
	"docqa/internal/port"
	"docqa/internal/usecase"
)

var chatCmd = &cobra.Command{
	Use:   "chat <file>...",
	Short: "Index documents and ask questions interactively",
	Long: `Index the given documents, then read questions from standard input and
answer each one from the indexed content.

Inside the session:
  /ingest <file>...   replace the index with new documents
  /quit               leave (Ctrl-D works too)`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	reporter := newProgressReporter(out, cmd.ErrOrStderr())
	p, err := openPipeline(cfg, rootDir, usecase.WithIndexProgress(reporter.Observe))
	if err != nil {
		return err
	}
	defer p.Close()

	model, err := newLLM(cfg)
	if err != nil {
		return fmt.Errorf("failed to create language model: %w", err)
	}
	answerer := usecase.NewAnswerUseCase(model, cfg.Retrieval.TopK, cfg.LLM.Timeout)
	queries := cache.NewQueryCache(100, 10*time.Minute)

	start := time.Now()
	handle, batch, err := ingestFiles(ctx, cfg, p, reporter, args)
	if err != nil {
		return err
	}
	printIngestSummary(out, batch, handle.Count(), time.Since(start))

	var retriever port.Retriever = cache.NewCachedRetriever(withDiversity(cfg, handle), queries)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\n❓ ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/ingest"):
			files := strings.Fields(strings.TrimPrefix(line, "/ingest"))
			if len(files) == 0 {
				reportError(cmd, fmt.Errorf("%w: please upload at least one file", domain.ErrInvalidUpload))
				continue
			}
			start := time.Now()
			next, batch, err := ingestFiles(ctx, cfg, p, newProgressReporter(out, cmd.ErrOrStderr()), files)
			if err != nil {
				// A failed rebuild may already have dropped the old collection.
				queries.Invalidate()
				reportError(cmd, err)
				continue
			}
			queries.Invalidate()
			retriever = cache.NewCachedRetriever(withDiversity(cfg, next), queries)
			printIngestSummary(out, batch, next.Count(), time.Since(start))
			continue
		}

		answer, err := answerer.Answer(ctx, line, retriever)
		if err != nil {
			reportError(cmd, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if err := printAnswer(out, answer, false); err != nil {
			return err
		}
	}
}
