package port

import "docqa/internal/domain"

type Chunker interface {
	Chunk(sections []domain.Section) ([]domain.Fragment, error)
}
