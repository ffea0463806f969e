package chunker

import "repolens/internal/domain"

// CodeUnit is one syntactic unit found by a LanguageParser. Content is
// already self-contained: any import preamble is prepended.
type CodeUnit struct {
	Type    domain.ChunkType
	Name    string
	Content string
	Comment string
}

// LanguageParser finds code units in a source file. Implementations may be
// heuristics or real parsers; the chunker only sees CodeUnits.
type LanguageParser interface {
	Parse(content string) ([]CodeUnit, error)

	Language() string
}
