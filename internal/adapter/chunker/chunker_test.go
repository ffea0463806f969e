package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"repolens/config"
	"repolens/internal/domain"
)

const largeScript = `import { a } from './a'
import b from 'b'

/** Adds numbers. */
function add(x, y) {
%s  return x + y
}

class Store {
  get() { return 1 }
}

export const handler = async (req) => {
  return req
}
`

func filler(lines int) string {
	return strings.Repeat("  // filler line\n", lines)
}

func TestChunkScriptUnits(t *testing.T) {
	content := strings.Replace(largeScript, "%s", filler(150), 1)
	require.Greater(t, utf8.RuneCountInString(content), 2000)

	chunks := Default().Chunk(content, "src/math.ts")
	require.Len(t, chunks, 3)

	imports := "import { a } from './a'\nimport b from 'b'\n"

	assert.Equal(t, domain.ChunkFunction, chunks[0].Type)
	assert.Equal(t, "add", chunks[0].Name)
	assert.Equal(t, "/** Adds numbers. */", chunks[0].Comment)
	assert.True(t, strings.HasPrefix(chunks[0].Content, imports+"/** Adds numbers. */\nfunction add(x, y) {"))
	assert.True(t, strings.HasSuffix(chunks[0].Content, "return x + y\n}"))

	assert.Equal(t, domain.ChunkClass, chunks[1].Type)
	assert.Equal(t, "Store", chunks[1].Name)
	assert.Empty(t, chunks[1].Comment)
	assert.Equal(t, imports+"class Store {\n  get() { return 1 }\n}", chunks[1].Content)

	assert.Equal(t, domain.ChunkVariable, chunks[2].Type)
	assert.Equal(t, "handler", chunks[2].Name)
	assert.Equal(t, imports+"export const handler = async (req) => {\n  return req\n}", chunks[2].Content)
}

func TestChunkSmallScriptBecomesFile(t *testing.T) {
	content := "function a() {\n  return 1\n}\n"

	chunks := Default().Chunk(content, "src/a.js")
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.ChunkFile, chunks[0].Type)
	assert.Equal(t, "a.js", chunks[0].Name)
	assert.Equal(t, content, chunks[0].Content)
}

func TestChunkScriptWithoutUnits(t *testing.T) {
	content := "const x = 1;\nconsole.log(x)\n"

	chunks := Default().Chunk(content, "src/index.jsx")
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.ChunkFile, chunks[0].Type)
	assert.Equal(t, content, chunks[0].Content)
	assert.Empty(t, chunks[0].Comment)
}

func TestChunkLargeScriptWithoutUnits(t *testing.T) {
	content := "console.log(1)\n" + filler(200)

	chunks := Default().Chunk(content, "src/noop.ts")
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.ChunkFile, chunks[0].Type)
}

func TestChunkDataFormatsAreNeverSplit(t *testing.T) {
	content := strings.Repeat("x", 12000)

	for _, p := range []string{"package.json", "ci.yml", "k8s.yaml", "README.md", "index.html", "site.CSS"} {
		chunks := Default().Chunk(content, p)
		require.Len(t, chunks, 1, p)
		assert.Equal(t, domain.ChunkFile, chunks[0].Type, p)
		assert.Equal(t, content, chunks[0].Content, p)
	}
}

func TestChunkWindowSlicing(t *testing.T) {
	content := strings.Repeat("abcdefghij", 1200)
	require.Len(t, content, 12000)

	chunks := Default().Chunk(content, "docs/notes.txt")
	require.Len(t, chunks, 3)

	for i, c := range chunks {
		assert.Equal(t, domain.ChunkWindow, c.Type)
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 5000)
		assert.Equal(t, "notes.txt (part "+string(rune('1'+i))+")", c.Name)
	}
	for i := 0; i+1 < len(chunks); i++ {
		prev := []rune(chunks[i].Content)
		next := []rune(chunks[i+1].Content)
		assert.Equal(t, string(prev[4500:]), string(next[:500]), "overlap between part %d and %d", i+1, i+2)
	}
	assert.Equal(t, content[9000:], chunks[2].Content)
}

func TestChunkWindowsCountCharacters(t *testing.T) {
	content := strings.Repeat("é", 6000)

	chunks := Default().Chunk(content, "notes")
	require.Len(t, chunks, 2)
	assert.Equal(t, 5000, utf8.RuneCountInString(chunks[0].Content))
	assert.Equal(t, 1500, utf8.RuneCountInString(chunks[1].Content))
	assert.True(t, utf8.ValidString(chunks[1].Content))
}

func TestChunkPlainTextBelowWindow(t *testing.T) {
	content := strings.Repeat("a", 5000)

	chunks := Default().Chunk(content, "LICENSE")
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.ChunkFile, chunks[0].Type)
	assert.Equal(t, "LICENSE", chunks[0].Name)
}

func TestChunkTotality(t *testing.T) {
	inputs := []string{
		"x",
		"function",
		"class {",
		"/** unterminated",
		strings.Repeat("function f() {}\n", 300),
		strings.Repeat("q", 5001),
		"\n\n\n",
	}
	paths := []string{"a.ts", "b.json", "c.txt", "d", "e.go", "deep/dir/f.tsx"}

	c := New(config.IndexConfig{ScriptThreshold: 2000, WindowSize: 5000, WindowStride: 4500, GoAST: true}, nil)
	for _, in := range inputs {
		for _, p := range paths {
			chunks := c.Chunk(in, p)
			require.NotEmpty(t, chunks, "%q in %s", in, p)

			var all strings.Builder
			for _, ch := range chunks {
				all.WriteString(ch.Content)
			}
			assert.NotEmpty(t, all.String(), "%q in %s", in, p)
		}
	}
}

func TestChunkGoParserOptIn(t *testing.T) {
	content := `package store

import "sync"

// Store keeps values.
type Store struct {
	mu sync.Mutex
}

var defaultStore = &Store{}

// Get returns nothing.
func (s *Store) Get() {}
`
	cfg := config.IndexConfig{ScriptThreshold: 10, WindowSize: 5000, WindowStride: 4500, GoAST: true}
	chunks := New(cfg, nil).Chunk(content, "store/store.go")
	require.Len(t, chunks, 3)

	assert.Equal(t, domain.ChunkClass, chunks[0].Type)
	assert.Equal(t, "Store", chunks[0].Name)
	assert.Equal(t, "// Store keeps values.", chunks[0].Comment)
	assert.True(t, strings.HasPrefix(chunks[0].Content, "package store\n\nimport \"sync\"\n\n// Store keeps values.\ntype Store struct"))

	assert.Equal(t, domain.ChunkVariable, chunks[1].Type)
	assert.Equal(t, "defaultStore", chunks[1].Name)

	assert.Equal(t, domain.ChunkFunction, chunks[2].Type)
	assert.Equal(t, "Store.Get", chunks[2].Name)

	cfg.GoAST = false
	chunks = New(cfg, nil).Chunk(content, "store/store.go")
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.ChunkFile, chunks[0].Type)
}

func TestChunkGoParserSyntaxError(t *testing.T) {
	cfg := config.IndexConfig{ScriptThreshold: 10, WindowSize: 5000, WindowStride: 4500, GoAST: true}

	chunks := New(cfg, nil).Chunk("package broken\nfunc (", "broken.go")
	require.Len(t, chunks, 1)
	assert.Equal(t, domain.ChunkFile, chunks[0].Type)
}
