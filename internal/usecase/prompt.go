package usecase

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"repolens/internal/domain"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var (
	enhancedPrompt = template.Must(template.ParseFS(promptTemplates, "templates/enhanced_prompt.txt"))
	basicPrompt    = template.Must(template.ParseFS(promptTemplates, "templates/basic_prompt.txt"))
)

// PromptInput is everything a prompt is assembled from. The strings are
// already rendered by FormatFileStructure, PackageMetadata and
// FormatGrouping.
type PromptInput struct {
	Query           string
	Chunks          []domain.SearchResult
	FileStructure   string
	PackageMetadata string
	Grouping        string
}

type promptData struct {
	PromptInput
	Snippets string
}

// BuildPrompt renders the snippet prompt, or the basic prompt when no
// chunks were retrieved.
func BuildPrompt(in PromptInput) (string, error) {
	tmpl := enhancedPrompt
	if len(in.Chunks) == 0 {
		tmpl = basicPrompt
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, promptData{PromptInput: in, Snippets: FormatSnippets(in.Chunks)}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// FormatSnippets renders one labelled code block per chunk.
func FormatSnippets(chunks []domain.SearchResult) string {
	snippets := make([]string, len(chunks))
	for i, c := range chunks {
		var sb strings.Builder
		fmt.Fprintf(&sb, "------- Relevant Code Snippet %d -------\n", i+1)
		fmt.Fprintf(&sb, "File: %s\n", c.Metadata.FilePath)
		if label := unitLabel(c.Metadata.ChunkType); label != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, c.Metadata.ChunkName)
		}
		sb.WriteString("\n```\n")
		sb.WriteString(c.Content)
		sb.WriteString("\n```")
		snippets[i] = sb.String()
	}
	return strings.Join(snippets, "\n\n")
}

func unitLabel(t domain.ChunkType) string {
	switch t {
	case domain.ChunkFunction:
		return "Function"
	case domain.ChunkClass:
		return "Class"
	case domain.ChunkVariable:
		return "Variable"
	default:
		return ""
	}
}

type treeNode struct {
	name     string
	children []*treeNode
	index    map[string]*treeNode
}

func (n *treeNode) child(name string) *treeNode {
	if c, ok := n.index[name]; ok {
		return c
	}
	c := &treeNode{name: name, index: make(map[string]*treeNode)}
	n.children = append(n.children, c)
	n.index[name] = c
	return c
}

// FormatFileStructure renders paths as a tree, children in first-seen order.
func FormatFileStructure(paths []string) string {
	root := &treeNode{index: make(map[string]*treeNode)}
	for _, p := range paths {
		node := root
		for _, part := range strings.Split(p, "/") {
			if part == "" {
				continue
			}
			node = node.child(part)
		}
	}

	var sb strings.Builder
	writeTree(&sb, root, "")
	return sb.String()
}

func writeTree(sb *strings.Builder, node *treeNode, prefix string) {
	for i, c := range node.children {
		last := i == len(node.children)-1

		connector, childPrefix := "├── ", "│   "
		if last {
			connector, childPrefix = "└── ", "    "
		}

		sb.WriteString(prefix + connector + c.name + "\n")
		writeTree(sb, c, prefix+childPrefix)
	}
}

// FileGroup is one named bucket of paths within a layer.
type FileGroup struct {
	Name  string
	Files []string
}

type Layer struct {
	Name   string
	Groups []FileGroup
}

var groupRules = []struct {
	layer, group, marker string
}{
	{"Frontend Layer", "Core Pages", "pages"},
	{"Frontend Layer", "Reusable Components", "components"},
	{"Frontend Layer", "Custom Hooks", "hooks"},
	{"Backend Layer", "API Routes", "routes"},
	{"Backend Layer", "Data Layer", "prisma"},
	{"Shared", "Utils", "utils"},
	{"Shared", "Config", "config"},
}

// GroupFiles sorts paths into architectural layers by path substring. A
// path can land in several groups; SQL migrations land in none.
func GroupFiles(paths []string) []Layer {
	var layers []Layer
	pos := make(map[string][2]int)
	for _, r := range groupRules {
		li := len(layers) - 1
		if li < 0 || layers[li].Name != r.layer {
			layers = append(layers, Layer{Name: r.layer})
			li++
		}
		pos[r.group] = [2]int{li, len(layers[li].Groups)}
		layers[li].Groups = append(layers[li].Groups, FileGroup{Name: r.group})
	}

	for _, p := range paths {
		if strings.Contains(p, "migration") && (strings.HasSuffix(p, ".sql") || strings.Contains(p, "migration_lock")) {
			continue
		}
		for _, r := range groupRules {
			if strings.Contains(p, r.marker) {
				at := pos[r.group]
				g := &layers[at[0]].Groups[at[1]]
				g.Files = append(g.Files, p)
			}
		}
	}
	return layers
}

func FormatGrouping(layers []Layer) string {
	var sb strings.Builder
	for _, l := range layers {
		sb.WriteString(l.Name + ":\n")
		for _, g := range l.Groups {
			sb.WriteString("  " + g.Name + ":\n")
			if len(g.Files) == 0 {
				sb.WriteString("    (No files detected)\n")
				continue
			}
			for _, f := range g.Files {
				sb.WriteString("    - " + f + "\n")
			}
		}
	}
	return sb.String()
}

// PackageMetadata summarises the dependencies of a package.json. Empty
// content yields an empty summary.
func PackageMetadata(content string) string {
	if content == "" {
		return ""
	}

	var pkg map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &pkg); err != nil {
		return "Could not parse package.json"
	}

	deps, err := dependencyNames(pkg["dependencies"])
	if err != nil {
		return "Could not parse package.json"
	}
	devDeps, err := dependencyNames(pkg["devDependencies"])
	if err != nil {
		return "Could not parse package.json"
	}

	return "Detected technologies:\nDependencies: " + deps + "\nDev Dependencies: " + devDeps
}

// dependencyNames lists the keys of a JSON object in document order.
func dependencyNames(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "None", nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return "", fmt.Errorf("expected an object")
	}

	var names []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		name, _ := tok.(string)
		names = append(names, name)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return "", err
		}
	}
	return strings.Join(names, ", "), nil
}
