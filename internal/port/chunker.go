package port

import "repolens/internal/domain"

// Chunker splits a file into chunks. It always returns at least one.
type Chunker interface {
	Chunk(content, filePath string) []domain.Chunk
}

type FileFilter interface {
	ShouldProcess(filePath string, size int64) bool
}
