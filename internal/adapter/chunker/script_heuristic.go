package chunker

import (
	"regexp"

	"repolens/internal/domain"
)

// docComment matches a single /** ... */ block without running past its
// own terminator.
const docComment = `(?:(/\*\*(?:[^*]|\*+[^*/])*\*+/)\s*)?`

var (
	importPreamble = regexp.MustCompile(`(?m)^(?:import .+?\n)+`)

	// unitBoundary marks where a unit ends: the next doc comment, function,
	// class or top-level binding, or trailing whitespace at end of input.
	unitBoundary = regexp.MustCompile(`\n\s*(?:/\*\*|function\s+\w+|class\s+|export|const|let|var|$)`)
)

// scriptScan is one pattern pass over a script file. nameGroup is the
// submatch index of the unit name; group 1 is always the doc comment.
type scriptScan struct {
	kind      domain.ChunkType
	header    *regexp.Regexp
	nameGroup int
}

// ScriptHeuristic finds functions, classes and function-valued bindings in
// JavaScript and TypeScript by pattern matching. It is not a parser and
// will misfire on unusual formatting.
type ScriptHeuristic struct {
	scans []scriptScan
}

func NewScriptHeuristic() *ScriptHeuristic {
	return &ScriptHeuristic{
		scans: []scriptScan{
			{
				kind:      domain.ChunkFunction,
				header:    regexp.MustCompile(docComment + `(?:async\s+)?\bfunction\s+(\w+)`),
				nameGroup: 2,
			},
			{
				kind:      domain.ChunkClass,
				header:    regexp.MustCompile(docComment + `\bclass\s+(\w+)`),
				nameGroup: 2,
			},
			{
				kind:      domain.ChunkVariable,
				header:    regexp.MustCompile(docComment + `(?:export\s+)?\b(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?\(`),
				nameGroup: 2,
			},
		},
	}
}

func (h *ScriptHeuristic) Language() string {
	return "javascript"
}

// Parse runs the function, class and variable scans in that order. Each
// unit gets the file's leading import block prepended.
func (h *ScriptHeuristic) Parse(content string) ([]CodeUnit, error) {
	imports := importPreamble.FindString(content)

	var units []CodeUnit
	for _, scan := range h.scans {
		units = append(units, scan.run(content, imports)...)
	}
	return units, nil
}

func (s scriptScan) run(content, imports string) []CodeUnit {
	var units []CodeUnit

	pos := 0
	for pos < len(content) {
		loc := s.header.FindStringSubmatchIndex(content[pos:])
		if loc == nil {
			break
		}

		start := pos + loc[0]
		headerEnd := pos + loc[1]

		end := len(content)
		if b := unitBoundary.FindStringIndex(content[headerEnd:]); b != nil {
			end = headerEnd + b[0]
		}

		comment := ""
		if loc[2] >= 0 {
			comment = content[pos+loc[2] : pos+loc[3]]
		}
		name := content[pos+loc[2*s.nameGroup] : pos+loc[2*s.nameGroup+1]]

		units = append(units, CodeUnit{
			Type:    s.kind,
			Name:    name,
			Content: imports + content[start:end],
			Comment: comment,
		})

		pos = end
	}

	return units
}
