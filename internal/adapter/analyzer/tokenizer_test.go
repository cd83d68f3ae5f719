package analyzer

import (
	"testing"
)

func TestTokenizer_Tokenize(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("Running dogs are playing")
	if len(tokens) != 3 {
		t.Errorf("expected 3 tokens, got %d: %v", len(tokens), tokens)
	}
	if tokens[0] != "running" {
		t.Errorf("expected lower-cased 'running', got %v", tokens)
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("the quick brown fox")
	for _, token := range tokens {
		if token == "the" {
			t.Errorf("stopword 'the' should be removed, got %v", tokens)
		}
	}
}

func TestTokenizer_ShortWordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("a I go to")
	for _, token := range tokens {
		if len(token) < 2 {
			t.Errorf("short word should be removed: %s", token)
		}
	}
}

func TestTokenizer_NonASCII(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("Über café")
	if len(tokens) != 2 || tokens[0] != "über" {
		t.Errorf("expected unicode words kept, got %v", tokens)
	}
}

func TestTokenizer_CountTokens(t *testing.T) {
	tok := NewTokenizer()

	count := tok.CountTokens("hello world this is a test")
	if count < 6 {
		t.Errorf("expected count >= 6 words, got %d", count)
	}

	withPunct := tok.CountTokens("hello, world... this is a test!")
	if withPunct <= count {
		t.Errorf("punctuation should add tokens: %d <= %d", withPunct, count)
	}
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := NewTokenizer()

	if tokens := tok.Tokenize(""); len(tokens) != 0 {
		t.Errorf("expected 0 tokens for empty input, got %d", len(tokens))
	}
	if count := tok.CountTokens("  \n\t"); count != 0 {
		t.Errorf("expected 0 count for blank input, got %d", count)
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"hello world", 2},
		{"hello_world", 1},
		{"hello-world", 2},
		{"page 12, line 3", 4},
		{"CamelCase", 1},
		{"123numbers456", 1},
		{"", 0},
	}

	for _, tt := range tests {
		words := Words(tt.input)
		if len(words) != tt.expected {
			t.Errorf("Words(%q) = %d words, want %d: %v", tt.input, len(words), tt.expected, words)
		}
	}
}
