package chunker

import (
	"strconv"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// TokenChunker packs consecutive lines of each section into fragments that
// stay under a token budget. Lines longer than the budget are split on word
// boundaries. Fragment IDs are left for the caller, which knows the source.
type TokenChunker struct {
	maxTokens int
	overlap   int
	tokenizer port.Tokenizer
}

func NewTokenChunker(maxTokens, overlap int, tokenizer port.Tokenizer) *TokenChunker {
	return &TokenChunker{
		maxTokens: maxTokens,
		overlap:   overlap,
		tokenizer: tokenizer,
	}
}

type line struct {
	text   string
	number int // 1-based line in the section
	tokens int
}

func (c *TokenChunker) Chunk(sections []domain.Section) ([]domain.Fragment, error) {
	var fragments []domain.Fragment

	for _, sec := range sections {
		lines := c.splitLines(sec.Text)
		if len(lines) == 0 {
			continue
		}

		startLine := 0
		for startLine < len(lines) {
			endLine := startLine
			currentTokens := 0

			for endLine < len(lines) {
				if currentTokens > 0 && currentTokens+lines[endLine].tokens > c.maxTokens {
					break
				}
				currentTokens += lines[endLine].tokens
				endLine++
			}
			if endLine == startLine {
				endLine++
			}

			text := joinLines(lines[startLine:endLine])
			if strings.TrimSpace(text) != "" {
				meta := make(map[string]string, len(sec.Metadata)+3)
				for k, v := range sec.Metadata {
					meta[k] = v
				}
				meta["start_line"] = strconv.Itoa(lines[startLine].number)
				meta["end_line"] = strconv.Itoa(lines[endLine-1].number)
				meta["chunk_index"] = strconv.Itoa(len(fragments))

				fragments = append(fragments, domain.Fragment{
					Content:  strings.TrimSpace(text),
					Position: len(fragments),
					Metadata: meta,
				})
			}

			if endLine >= len(lines) {
				break
			}
			newStart := endLine - c.overlapLines(lines, startLine, endLine)
			if newStart <= startLine {
				newStart = startLine + 1
			}
			startLine = newStart
		}
	}

	return fragments, nil
}

// splitLines normalises line endings and breaks any line whose estimated
// token count exceeds the budget into word windows.
func (c *TokenChunker) splitLines(text string) []line {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}

	raw := strings.Split(text, "\n")
	out := make([]line, 0, len(raw))
	for i, l := range raw {
		n := c.tokenizer.CountTokens(l)
		if n <= c.maxTokens {
			out = append(out, line{text: l, number: i + 1, tokens: n})
			continue
		}

		var window []string
		for _, w := range strings.Fields(l) {
			candidate := append(window, w)
			if len(window) > 0 && c.tokenizer.CountTokens(strings.Join(candidate, " ")) > c.maxTokens {
				piece := strings.Join(window, " ")
				out = append(out, line{text: piece, number: i + 1, tokens: c.tokenizer.CountTokens(piece)})
				window = []string{w}
				continue
			}
			window = candidate
		}
		if len(window) > 0 {
			piece := strings.Join(window, " ")
			out = append(out, line{text: piece, number: i + 1, tokens: c.tokenizer.CountTokens(piece)})
		}
	}
	return out
}

func (c *TokenChunker) overlapLines(lines []line, start, end int) int {
	if c.overlap == 0 {
		return 0
	}

	n := 0
	tokens := 0
	for i := end - 1; i > start && tokens < c.overlap; i-- {
		tokens += lines[i].tokens
		n++
	}
	return n
}

func joinLines(lines []line) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(l.text)
	}
	return b.String()
}
