package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"docqa/internal/domain"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"empty question", domain.ErrEmptyQuestion, "⚠️ Please enter a question"},
		{
			"all documents failed",
			&domain.EmptyIngestionError{Failed: []string{"a.pdf", "b.docx"}},
			"⚠️ Failed to extract content from all files: a.pdf, b.docx",
		},
		{
			"too many files",
			fmt.Errorf("%w: at most 3 files per upload, got 4", domain.ErrInvalidUpload),
			"⚠️ Invalid upload: at most 3 files per upload, got 4",
		},
		{
			"no index yet",
			fmt.Errorf("%w: ingest documents first", domain.ErrIndexNotFound),
			"⚠️ No documents have been indexed: ingest documents first",
		},
		{
			"unreachable store",
			fmt.Errorf("write: %w: dial tcp 127.0.0.1:6333: connection refused", domain.ErrIndexConnection),
			connectionMessage,
		},
		{
			"model failure",
			fmt.Errorf("%w: gpt-4o-mini: 500 Internal Server Error", domain.ErrModelInvocation),
			genericMessage,
		},
		{"anything else", errors.New("disk on fire"), genericMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestUserMessage_HidesInternalDetail(t *testing.T) {
	err := fmt.Errorf("%w: secret-host:443 refused", domain.ErrIndexConnection)
	assert.NotContains(t, UserMessage(err), "secret-host")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "<1s", formatDuration(0))
	assert.Equal(t, "42s", formatDuration(42e9))
	assert.Equal(t, "2m5s", formatDuration(125e9))
	assert.Equal(t, "1h30m", formatDuration(5400e9))
}
