package domain

import "math"

// ChunkType classifies a chunk by the syntactic unit it was cut from.
type ChunkType string

const (
	ChunkFunction ChunkType = "function"
	ChunkClass    ChunkType = "class"
	ChunkVariable ChunkType = "variable"
	ChunkFile     ChunkType = "file"
	ChunkWindow   ChunkType = "chunk"
)

// Chunk is the unit of retrieval produced by the chunker.
type Chunk struct {
	Type    ChunkType `json:"type"`
	Name    string    `json:"name"`
	Content string    `json:"content"`
	Comment string    `json:"comment"`
}

// Embedding is a vector plus the way it was produced.
// Vectors from different models may differ in length.
type Embedding struct {
	Vector   []float64
	Model    string
	Fallback bool
}

type ChunkMetadata struct {
	FilePath  string    `json:"filePath"`
	FileName  string    `json:"fileName"`
	ChunkType ChunkType `json:"chunkType"`
	ChunkName string    `json:"chunkName"`
	Repo      string    `json:"repo"`
	Branch    string    `json:"branch"`
	// Fallback marks entries whose vector came from the content hash
	// rather than the embedding service.
	Fallback bool `json:"fallback,omitempty"`
}

// IndexEntry is what the vector store keeps for each chunk id.
type IndexEntry struct {
	ChunkID  string        `json:"chunkId"`
	Vector   []float64     `json:"vector"`
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// SearchResult is one ranked match. Similarity is NaN when the query and
// the stored vector cannot be compared.
type SearchResult struct {
	ChunkID    string        `json:"chunkId"`
	Content    string        `json:"content"`
	Metadata   ChunkMetadata `json:"metadata"`
	Similarity float64       `json:"similarity"`
}

// Comparable reports whether the similarity is a real number.
func (r SearchResult) Comparable() bool {
	return !math.IsNaN(r.Similarity)
}

// IndexRequest identifies one repository snapshot to index.
type IndexRequest struct {
	Credential string
	Owner      string
	Repo       string
	Branch     string
}

type IndexResult struct {
	Success        bool   `json:"success"`
	FilesProcessed int    `json:"filesProcessed"`
	TotalFiles     int    `json:"totalFiles"`
	Error          string `json:"error,omitempty"`
}

type IndexStatus struct {
	Indexed       bool `json:"indexed"`
	ChunkCount    int  `json:"chunkCount"`
	FallbackCount int  `json:"fallbackCount"`
}
