package cli

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

var (
	searchQuery string
	searchTopK  int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show the chunks retrieved for a query",
	Long: `Run only the retrieval step and print the matching chunks with their
similarity scores. Useful for checking index quality without calling the
language model.

Example:
  docqa search -q "termination clause" --top-k 10`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "query text (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.MarkFlagRequired("query")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(searchQuery) == "" {
		return domain.ErrEmptyQuestion
	}
	out := cmd.OutOrStdout()

	p, err := openPipeline(cfg, rootDir)
	if err != nil {
		return err
	}
	defer p.Close()

	handle, err := p.gateway.Open(cmd.Context())
	if err != nil {
		return err
	}

	topK := searchTopK
	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}

	results, err := handle.Search(cmd.Context(), searchQuery, topK)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Chunks indexed: %d\n", handle.Count())
	fmt.Fprintf(out, "Model: %s (%s)\n", p.embedder.ModelName(), cfg.Embedding.Provider)
	fmt.Fprintln(out, strings.Repeat("-", 70))

	if len(results) == 0 {
		fmt.Fprintln(out, "No matches.")
		return nil
	}

	total := 0.0
	for i, r := range results {
		preview := truncate(strings.ReplaceAll(r.Fragment.Content, "\n", " "), 150)
		total += r.Score

		fmt.Fprintf(out, "%d. [%s %.3f] %s #%d\n", i+1, scoreRating(r.Score), r.Score, r.Fragment.SourceID, r.Fragment.Position)
		fmt.Fprintf(out, "   %s\n\n", preview)
	}

	fmt.Fprintln(out, strings.Repeat("-", 70))
	fmt.Fprintf(out, "Average similarity: %.3f\n", total/float64(len(results)))
	return nil
}

// truncate cuts s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func scoreRating(score float64) string {
	switch {
	case score > 0.7:
		return "HIGH"
	case score > 0.5:
		return "GOOD"
	case score > 0.3:
		return "OK"
	}
	return "LOW"
}
