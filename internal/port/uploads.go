package port

import "docqa/internal/domain"

// UploadResolver turns user-supplied paths or glob patterns into an upload set.
type UploadResolver interface {
	Resolve(patterns []string) ([]domain.UploadedDocument, error)
}
