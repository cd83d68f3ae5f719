package port

// Tokenizer normalises text into terms and estimates model token counts.
type Tokenizer interface {
	Tokenize(text string) []string

	CountTokens(text string) int
}
