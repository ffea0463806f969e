package chunker

import (
	"fmt"

	"repolens/internal/domain"
)

// Windows slices content into overlapping windows of size characters,
// advancing by stride. Slicing stops at the first window that reaches the
// end of content. Windows are named "<fileName> (part N)".
func Windows(content, fileName string, size, stride int) []domain.Chunk {
	runes := []rune(content)
	n := len(runes)

	var chunks []domain.Chunk
	for start, part := 0, 1; ; start, part = start+stride, part+1 {
		end := start + size
		if end > n {
			end = n
		}
		chunks = append(chunks, domain.Chunk{
			Type:    domain.ChunkWindow,
			Name:    fmt.Sprintf("%s (part %d)", fileName, part),
			Content: string(runes[start:end]),
		})
		if end == n {
			break
		}
	}
	return chunks
}
