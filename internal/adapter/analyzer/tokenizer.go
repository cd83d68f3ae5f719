package analyzer

import (
	"math"
	"strings"
	"unicode"

	"docqa/internal/port"
)

var _ port.Tokenizer = (*Tokenizer)(nil)

// subwordRatio approximates how many WordPiece/BPE tokens an English word
// costs in the embedding and chat models we target.
const subwordRatio = 1.3

// Tokenizer splits prose into normalised terms and estimates model token
// counts for chunk budgeting.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a new Tokenizer with the default English stopwords.
func NewTokenizer() *Tokenizer {
	return &Tokenizer{stopwords: defaultStopwords()}
}

// Tokenize returns lower-cased content terms with stopwords and single
// characters removed.
func (t *Tokenizer) Tokenize(text string) []string {
	words := Words(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if len([]rune(word)) < 2 {
			continue
		}
		if _, isStop := t.stopwords[word]; isStop {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// CountTokens estimates the model token count of text. Punctuation runs count
// as one token each since subword tokenizers rarely merge them with words.
func (t *Tokenizer) CountTokens(text string) int {
	words := Words(text)
	if len(words) == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(words))*subwordRatio)) + countPunctuation(text)
}

// Words splits text on anything that is not a letter, digit or underscore.
func Words(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

func countPunctuation(text string) int {
	n := 0
	inRun := false
	for _, r := range text {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			if !inRun {
				n++
			}
			inRun = true
			continue
		}
		inRun = false
	}
	return n
}

func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"each", "every", "both", "few", "more", "most", "other",
		"some", "such", "than", "too", "very", "just", "also",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
