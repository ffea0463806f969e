package embedding

import (
	"crypto/sha256"
	"encoding/hex"
)

// FallbackModel names vectors produced by Fallback.
const FallbackModel = "sha256-fallback"

// Fallback derives a 64-dimension vector from the SHA-256 hex digest of
// text: each hex character's code divided by 255. It depends on nothing
// but text and carries no semantic meaning.
func Fallback(text string) []float64 {
	sum := sha256.Sum256([]byte(text))
	digest := hex.EncodeToString(sum[:])

	vec := make([]float64, len(digest))
	for i := 0; i < len(digest); i++ {
		vec[i] = float64(digest[i]) / 255
	}
	return vec
}
