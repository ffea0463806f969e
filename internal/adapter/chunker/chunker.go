package chunker

import (
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"repolens/config"
	"repolens/internal/domain"
)

var (
	scriptExts = []string{".js", ".jsx", ".ts", ".tsx"}
	dataExts   = []string{".json", ".yml", ".yaml", ".md", ".html", ".css"}
)

// Chunker dispatches a file to a language parser, a whole-file chunk or
// fixed windows depending on its extension.
type Chunker struct {
	parsers         map[string]LanguageParser
	dataExts        map[string]bool
	scriptThreshold int
	windowSize      int
	windowStride    int
	logger          *slog.Logger
}

func New(cfg config.IndexConfig, logger *slog.Logger) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Chunker{
		parsers:         make(map[string]LanguageParser),
		dataExts:        make(map[string]bool, len(dataExts)),
		scriptThreshold: cfg.ScriptThreshold,
		windowSize:      cfg.WindowSize,
		windowStride:    cfg.WindowStride,
		logger:          logger,
	}

	script := NewScriptHeuristic()
	for _, ext := range scriptExts {
		c.parsers[ext] = script
	}
	if cfg.GoAST {
		c.parsers[".go"] = NewGoParser()
	}
	for _, ext := range dataExts {
		c.dataExts[ext] = true
	}

	return c
}

// Default returns a chunker with the built-in thresholds.
func Default() *Chunker {
	return New(config.DefaultConfig().Index, nil)
}

// Chunk splits content into chunks. The result is never empty.
func (c *Chunker) Chunk(content, filePath string) []domain.Chunk {
	fileName := path.Base(filePath)
	ext := strings.ToLower(path.Ext(filePath))

	if c.dataExts[ext] {
		return []domain.Chunk{fileChunk(content, fileName)}
	}

	if parser, ok := c.parsers[ext]; ok {
		units, err := parser.Parse(content)
		if err == nil {
			return c.fromUnits(units, content, fileName)
		}
		c.logger.Debug("parser failed, using plain chunking", "path", filePath, "language", parser.Language(), "error", err)
	}

	if utf8.RuneCountInString(content) > c.windowSize {
		return Windows(content, fileName, c.windowSize, c.windowStride)
	}
	return []domain.Chunk{fileChunk(content, fileName)}
}

// fromUnits keeps the units of a large structured file. A file with no
// units or below the threshold becomes a single file chunk.
func (c *Chunker) fromUnits(units []CodeUnit, content, fileName string) []domain.Chunk {
	if len(units) == 0 || utf8.RuneCountInString(content) < c.scriptThreshold {
		return []domain.Chunk{fileChunk(content, fileName)}
	}

	chunks := make([]domain.Chunk, 0, len(units))
	for _, u := range units {
		chunks = append(chunks, domain.Chunk{
			Type:    u.Type,
			Name:    u.Name,
			Content: u.Content,
			Comment: u.Comment,
		})
	}
	return chunks
}

func fileChunk(content, fileName string) domain.Chunk {
	return domain.Chunk{
		Type:    domain.ChunkFile,
		Name:    fileName,
		Content: content,
	}
}
