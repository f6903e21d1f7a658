package syntax

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"os"
	"path/filepath"
	"strings"
)

// ParseError reports source text that is not syntactically valid Go.
type ParseError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parsing %s:%d:%d: %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("parsing %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseFile reads and parses a single Go file.
func ParseFile(path string) (*Tree, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(path, src)
}

// Parse builds a Tree from Go source text. Invalid source yields a
// *ParseError and no tree.
func Parse(path string, src []byte) (*Tree, error) {
	fset := token.NewFileSet()

	file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
	if err != nil {
		return nil, newParseError(path, err)
	}

	b := &builder{fset: fset}
	tree := &Tree{
		Path: path,
		Package: Package{
			Name: identName(file.Name),
			Doc:  b.doc(file.Doc),
		},
	}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Body == nil {
				// External (assembly) declarations have nothing to check.
				continue
			}
			fn := b.function(d)
			tree.Functions = append(tree.Functions, fn)
			tree.Handlers = append(tree.Handlers, b.handlers(fn.QualifiedName(), d.Body)...)
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(d.Specs) == 1 {
					// `// Foo does x` above `type Foo struct` attaches to the GenDecl.
					doc = d.Doc
				}
				tree.Types = append(tree.Types, TypeDecl{
					Name: identName(ts.Name),
					Line: b.line(ts.Pos()),
					Doc:  b.doc(doc),
				})
			}
		}
	}

	return tree, nil
}

// PackageDocFile returns the file next to path that declares the same
// package and carries its package comment. Test files and path itself are
// not considered. Go documents a package once, usually in doc.go.
func PackageDocFile(path, pkg string) (string, bool) {
	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	self, _ := filepath.Abs(path)

	fset := token.NewFileSet()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		sibling := filepath.Join(dir, name)
		if abs, _ := filepath.Abs(sibling); abs == self {
			continue
		}
		file, err := parser.ParseFile(fset, sibling, nil, parser.PackageClauseOnly|parser.ParseComments)
		if err != nil || file.Name == nil || file.Name.Name != pkg {
			continue
		}
		if file.Doc != nil && strings.TrimSpace(file.Doc.Text()) != "" {
			return sibling, true
		}
	}
	return "", false
}

func newParseError(path string, err error) *ParseError {
	pe := &ParseError{Path: path, Err: err}

	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		pe.Line = list[0].Pos.Line
		pe.Column = list[0].Pos.Column
		pe.Err = errors.New(list[0].Msg)
	}

	return pe
}

// builder converts go/ast nodes into the immutable tree view.
type builder struct {
	fset *token.FileSet
}

func (b *builder) line(pos token.Pos) int {
	if !pos.IsValid() {
		return 0
	}
	return b.fset.Position(pos).Line
}

func (b *builder) doc(group *ast.CommentGroup) *Doc {
	if group == nil {
		return nil
	}
	return &Doc{
		Text: group.Text(),
		Line: b.line(group.Pos()),
	}
}

func (b *builder) function(d *ast.FuncDecl) Function {
	fn := Function{
		Name: identName(d.Name),
		Kind: KindFunction,
		Line: b.line(d.Pos()),
		Doc:  b.doc(d.Doc),
	}

	if d.Recv != nil && len(d.Recv.List) > 0 {
		fn.Kind = KindMethod
		fn.Receiver = receiverName(d.Recv.List[0].Type)
	}

	if d.Body != nil {
		fn.BodyStatements = len(d.Body.List)
		fn.Blocks = b.blocks(d.Body.List)
	}

	return fn
}

// blocks returns the control-flow blocks that appear directly in stmts.
func (b *builder) blocks(stmts []ast.Stmt) []Block {
	var out []Block
	for _, stmt := range stmts {
		out = b.appendBlocks(out, stmt)
	}
	return out
}

func (b *builder) appendBlocks(out []Block, stmt ast.Stmt) []Block {
	switch s := stmt.(type) {
	case *ast.IfStmt:
		// An else-if chain is a sequence of sibling blocks, not deeper nesting.
		for cur := s; cur != nil; {
			block := Block{Kind: BlockIf, Line: b.line(cur.Pos())}
			if cur.Body != nil {
				block.Children = b.blocks(cur.Body.List)
			}

			var next *ast.IfStmt
			switch e := cur.Else.(type) {
			case *ast.BlockStmt:
				block.Children = append(block.Children, b.blocks(e.List)...)
			case *ast.IfStmt:
				next = e
			}

			out = append(out, block)
			cur = next
		}
	case *ast.ForStmt:
		out = append(out, Block{Kind: BlockFor, Line: b.line(s.Pos()), Children: b.bodyBlocks(s.Body)})
	case *ast.RangeStmt:
		out = append(out, Block{Kind: BlockRange, Line: b.line(s.Pos()), Children: b.bodyBlocks(s.Body)})
	case *ast.SwitchStmt:
		out = append(out, Block{Kind: BlockSwitch, Line: b.line(s.Pos()), Children: b.clauseBlocks(s.Body)})
	case *ast.TypeSwitchStmt:
		out = append(out, Block{Kind: BlockTypeSwitch, Line: b.line(s.Pos()), Children: b.clauseBlocks(s.Body)})
	case *ast.SelectStmt:
		out = append(out, Block{Kind: BlockSelect, Line: b.line(s.Pos()), Children: b.clauseBlocks(s.Body)})
	case *ast.BlockStmt:
		out = append(out, b.blocks(s.List)...)
	case *ast.LabeledStmt:
		out = b.appendBlocks(out, s.Stmt)
	}
	return out
}

func (b *builder) bodyBlocks(body *ast.BlockStmt) []Block {
	if body == nil {
		return nil
	}
	return b.blocks(body.List)
}

func (b *builder) clauseBlocks(body *ast.BlockStmt) []Block {
	if body == nil {
		return nil
	}

	var out []Block
	for _, clause := range body.List {
		switch c := clause.(type) {
		case *ast.CaseClause:
			out = append(out, b.blocks(c.Body)...)
		case *ast.CommClause:
			out = append(out, b.blocks(c.Body)...)
		}
	}
	return out
}

func identName(id *ast.Ident) string {
	if id == nil {
		return ""
	}
	return id.Name
}

func receiverName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return receiverName(e.X)
	case *ast.IndexExpr:
		return receiverName(e.X)
	case *ast.IndexListExpr:
		return receiverName(e.X)
	case *ast.ParenExpr:
		return receiverName(e.X)
	default:
		return ""
	}
}
