package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// UploadedDocument is a file handed to ingestion. Name is the original file
// name and the canonical identity of the document; StorageHandle is wherever
// the bytes actually live.
type UploadedDocument struct {
	Name          string
	StorageHandle string
	MIMEType      string
}

// Section is one unit of parser output before chunking.
type Section struct {
	Text     string
	Metadata map[string]string
}

type Fragment struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	SourceID   string            `json:"source_id"`
	OriginPath string            `json:"origin_path"`
	Position   int               `json:"position"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// FragmentID derives a stable identifier from the owning document and the
// fragment's position inside it.
func FragmentID(sourceID string, position int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", sourceID, position)))
	return hex.EncodeToString(h[:8])
}

type ScoredFragment struct {
	Fragment Fragment
	Score    float64
}

type DocumentStatus int

const (
	StatusIndexed DocumentStatus = iota
	StatusEmpty
	StatusFailed
)

func (s DocumentStatus) String() string {
	switch s {
	case StatusIndexed:
		return "indexed"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// DocumentOutcome is the result of extracting a single document. A document
// either contributes all of its fragments or none of them.
type DocumentOutcome struct {
	Index     int
	Document  UploadedDocument
	Status    DocumentStatus
	Fragments []Fragment
	Err       error
}

type IngestionBatch struct {
	Fragments []Fragment
	Failed    []string
	Outcomes  []DocumentOutcome
}

type Citation struct {
	FileName     string `json:"file_name" jsonschema:"the source file name, e.g. policy.pdf"`
	ChunkContent string `json:"chunk_content" jsonschema:"the text excerpt from the file that supports the answer"`
}

type StructuredAnswer struct {
	Answer       string     `json:"answer"`
	SourcesCited []Citation `json:"sources_cited"`

	// Set when the model cited sources alongside a refusal and the
	// citations were discarded.
	ContractViolation bool `json:"contract_violation,omitempty"`
}
