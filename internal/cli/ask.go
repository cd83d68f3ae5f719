package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
	"docqa/internal/usecase"
)

var (
	question string
	askTopK  int
	askJSON  bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the indexed documents",
	Long: `Retrieve the chunks most relevant to a question and ask the language model
for an answer grounded only in them. The answer lists the excerpts it cites.

Examples:
  docqa ask -q "What is the notice period?"
  docqa ask -q "Summarise the findings" --top-k 8
  docqa ask -q "Who signed the contract?" --json`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&question, "question", "q", "", "question to answer (required)")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "number of chunks to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the structured answer as JSON")
	askCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(question) == "" {
		return domain.ErrEmptyQuestion
	}

	p, err := openPipeline(cfg, rootDir)
	if err != nil {
		return err
	}
	defer p.Close()

	handle, err := p.gateway.Open(cmd.Context())
	if err != nil {
		return err
	}

	model, err := newLLM(cfg)
	if err != nil {
		return fmt.Errorf("failed to create language model: %w", err)
	}

	topK := askTopK
	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}

	answer, err := usecase.NewAnswerUseCase(model, topK, cfg.LLM.Timeout).Answer(cmd.Context(), question, withDiversity(cfg, handle))
	if err != nil {
		return err
	}
	return printAnswer(cmd.OutOrStdout(), answer, askJSON)
}

func printAnswer(w io.Writer, answer *domain.StructuredAnswer, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	fmt.Fprintln(w, answer.Answer)
	if rendered, ok := usecase.RenderCitations(answer.SourcesCited); ok {
		fmt.Fprintf(w, "\n%s", rendered)
	}
	return nil
}
