package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrExtraction means a single document could not be parsed or chunked.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmptyExtraction means a document parsed but yielded no fragments.
	ErrEmptyExtraction = errors.New("no content extracted")

	// ErrUnsupportedFormat means no parser handles the document's extension.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrInvalidUpload means the upload set is empty or too large.
	ErrInvalidUpload = errors.New("invalid upload")

	// ErrEmptyIngestion means no document in a batch produced any fragment.
	ErrEmptyIngestion = errors.New("failed to extract content from all files")

	// ErrEmptyIndex means Index was called with nothing to index.
	ErrEmptyIndex = errors.New("no fragments to index")

	// ErrIndexConnection means the embedding or vector store service is unreachable.
	ErrIndexConnection = errors.New("vector index unreachable")

	// ErrIndexWrite means embedding or persistence failed for a reason other
	// than connectivity.
	ErrIndexWrite = errors.New("vector index write failed")

	// ErrIndexNotFound means no populated collection exists yet.
	ErrIndexNotFound = errors.New("no documents have been indexed")

	// ErrEmptyQuestion means the question was empty after trimming.
	ErrEmptyQuestion = errors.New("please enter a question")

	// ErrModelInvocation means the language model call failed or returned
	// output that does not match the answer schema.
	ErrModelInvocation = errors.New("language model invocation failed")
)

// EmptyIngestionError carries the names of every document that failed when
// a whole batch produced nothing.
type EmptyIngestionError struct {
	Failed []string
}

func (e *EmptyIngestionError) Error() string {
	if len(e.Failed) == 0 {
		return ErrEmptyIngestion.Error()
	}
	return fmt.Sprintf("%s: %s", ErrEmptyIngestion, strings.Join(e.Failed, ", "))
}

func (e *EmptyIngestionError) Unwrap() error { return ErrEmptyIngestion }

// IsValidation reports whether err stems from bad user input, in which case
// its message is safe and useful to show verbatim.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyQuestion,
		ErrEmptyIngestion,
		ErrInvalidUpload,
		ErrUnsupportedFormat,
		ErrIndexNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
