package syntax

import "strings"

// UnitKind names the kind of a documentable unit.
type UnitKind string

const (
	KindPackage  UnitKind = "package"
	KindFunction UnitKind = "function"
	KindMethod   UnitKind = "method"
	KindType     UnitKind = "type"
)

// BlockKind identifies a control-flow construct that adds one level of nesting.
type BlockKind string

const (
	BlockIf         BlockKind = "if"
	BlockFor        BlockKind = "for"
	BlockRange      BlockKind = "range"
	BlockSwitch     BlockKind = "switch"
	BlockTypeSwitch BlockKind = "type_switch"
	BlockSelect     BlockKind = "select"
)

// HandlerKind identifies the Go construct that handles a failure.
type HandlerKind string

const (
	// HandlerErrorCheck is an `if err != nil { ... }` branch.
	HandlerErrorCheck HandlerKind = "error_check"

	// HandlerRecover is a recover() call and the statements acting on its value.
	HandlerRecover HandlerKind = "recover"
)

// Tree is an immutable view of one parsed Go source file.
//
// It exposes only what the quality checkers need: documentable units,
// function bodies reduced to their control-flow skeleton, and failure
// handlers. Slices are built once by Parse and never mutated afterwards.
type Tree struct {
	Path      string
	Package   Package
	Functions []Function
	Types     []TypeDecl
	Handlers  []Handler
}

// Doc is a leading documentation comment.
type Doc struct {
	Text string
	Line int
}

// Words returns the whitespace-delimited token count of the comment text.
func (d *Doc) Words() int {
	if d == nil {
		return 0
	}
	return len(strings.Fields(d.Text))
}

// Package is the module-level unit of a file (its package clause).
type Package struct {
	Name string
	Doc  *Doc // nil when the file has no package comment

	// DocFile names a sibling file of the same package that holds the
	// package comment. Set only when Doc is nil.
	DocFile string
}

// Function is a function or method declaration with a body.
type Function struct {
	Name     string
	Kind     UnitKind // KindFunction or KindMethod
	Receiver string   // receiver type for methods, empty otherwise
	Line     int
	Doc      *Doc

	// BodyStatements is the number of top-level statements in the body.
	BodyStatements int

	// Blocks are the control-flow blocks that appear directly in the body.
	Blocks []Block
}

// QualifiedName returns Receiver.Name for methods and Name otherwise.
func (f Function) QualifiedName() string {
	if f.Receiver == "" {
		return f.Name
	}
	return f.Receiver + "." + f.Name
}

// Block is one nesting level. Children are the control-flow blocks that
// appear directly inside it (including a plain else branch).
type Block struct {
	Kind     BlockKind
	Line     int
	Children []Block
}

// TypeDecl is a named type declaration.
type TypeDecl struct {
	Name string
	Line int
	Doc  *Doc
}

// Handler is a failure-handling construct inside a function.
type Handler struct {
	Function string
	Kind     HandlerKind
	Line     int

	// CatchAll is true when the handler does not discriminate what it
	// caught (a recover() whose value is never type-asserted).
	CatchAll bool

	// BodyStatements is the number of statements acting on the failure.
	BodyStatements int

	// NoOp is true when the body does nothing: it is empty, a single
	// empty statement, or a single blank assignment such as `_ = err`.
	NoOp bool
}
