package chunker

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"repolens/internal/domain"
)

// GoParser parses Go source with go/parser and reports top-level
// functions, types and var/const blocks as code units.
type GoParser struct{}

// NewGoParser creates a new Go parser.
func NewGoParser() *GoParser {
	return &GoParser{}
}

// Language returns the language this parser handles.
func (p *GoParser) Language() string {
	return "go"
}

// Parse parses Go source code and returns code units. The package clause
// and import declarations form the preamble of every unit.
func (p *GoParser) Parse(content string) ([]CodeUnit, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", content, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	preamble := p.preamble(fset, f, content)

	var units []CodeUnit
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			units = append(units, p.unit(fset, content, preamble, domain.ChunkFunction, funcName(d), d.Doc, d))

		case *ast.GenDecl:
			units = append(units, p.extractGenDecl(fset, content, preamble, d)...)
		}
	}

	return units, nil
}

// extractGenDecl extracts type, const and var declarations. Imports are
// part of the preamble and produce no unit.
func (p *GoParser) extractGenDecl(fset *token.FileSet, content, preamble string, decl *ast.GenDecl) []CodeUnit {
	var units []CodeUnit

	switch decl.Tok {
	case token.TYPE:
		for _, spec := range decl.Specs {
			ts := spec.(*ast.TypeSpec)

			var node ast.Node = ts
			doc := ts.Doc
			if decl.Lparen == 0 {
				node = decl
				doc = decl.Doc
			}
			units = append(units, p.unit(fset, content, preamble, domain.ChunkClass, ts.Name.Name, doc, node))
		}

	case token.CONST, token.VAR:
		var names []string
		for _, spec := range decl.Specs {
			vs := spec.(*ast.ValueSpec)
			for _, name := range vs.Names {
				names = append(names, name.Name)
			}
		}
		units = append(units, p.unit(fset, content, preamble, domain.ChunkVariable, strings.Join(names, ", "), decl.Doc, decl))
	}

	return units
}

func (p *GoParser) unit(fset *token.FileSet, content, preamble string, kind domain.ChunkType, name string, doc *ast.CommentGroup, node ast.Node) CodeUnit {
	start := fset.Position(node.Pos()).Offset
	end := fset.Position(node.End()).Offset

	comment := ""
	if doc != nil {
		docStart := fset.Position(doc.Pos()).Offset
		comment = content[docStart:fset.Position(doc.End()).Offset]
		start = docStart
	}

	return CodeUnit{
		Type:    kind,
		Name:    name,
		Content: preamble + content[start:end],
		Comment: comment,
	}
}

func (p *GoParser) preamble(fset *token.FileSet, f *ast.File, content string) string {
	end := fset.Position(f.Name.End()).Offset
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.IMPORT {
			break
		}
		end = fset.Position(gd.End()).Offset
	}
	start := fset.Position(f.Package).Offset
	return content[start:end] + "\n\n"
}

// funcName qualifies methods with their receiver type.
func funcName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	recv := fn.Recv.List[0].Type
	if star, ok := recv.(*ast.StarExpr); ok {
		recv = star.X
	}
	switch r := recv.(type) {
	case *ast.Ident:
		return r.Name + "." + fn.Name.Name
	case *ast.IndexExpr:
		if id, ok := r.X.(*ast.Ident); ok {
			return id.Name + "." + fn.Name.Name
		}
	case *ast.IndexListExpr:
		if id, ok := r.X.(*ast.Ident); ok {
			return id.Name + "." + fn.Name.Name
		}
	}
	return fn.Name.Name
}
