package usecase

import (
	"fmt"
	"strings"

	"docqa/internal/domain"
)

// RenderCitations groups citations by file, in order of first appearance, and
// renders them as markdown. It returns false when there is nothing to show.
func RenderCitations(citations []domain.Citation) (string, bool) {
	if len(citations) == 0 {
		return "", false
	}

	var order []string
	excerpts := make(map[string][]string)
	for _, c := range citations {
		if _, ok := excerpts[c.FileName]; !ok {
			order = append(order, c.FileName)
		}
		excerpts[c.FileName] = append(excerpts[c.FileName], c.ChunkContent)
	}

	var b strings.Builder
	b.WriteString("**Sources Cited**:\n\n")
	for _, name := range order {
		fmt.Fprintf(&b, "**File:** `%s`\n", name)
		for i, content := range excerpts[name] {
			fmt.Fprintf(&b, "> **Excerpt %d:** %s\n", i+1, strings.TrimSpace(content))
		}
		b.WriteString("\n")
	}
	return b.String(), true
}
