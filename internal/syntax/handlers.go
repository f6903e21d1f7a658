package syntax

import (
	"go/ast"
	"go/token"
	"strings"
)

// handlers collects the failure handlers in a function body, including
// those inside function literals (deferred recover closures live there).
func (b *builder) handlers(function string, body *ast.BlockStmt) []Handler {
	var out []Handler

	ast.Inspect(body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.BlockStmt:
			out = append(out, b.scanList(function, node.List)...)
		case *ast.CaseClause:
			out = append(out, b.scanList(function, node.Body)...)
		case *ast.CommClause:
			out = append(out, b.scanList(function, node.Body)...)
		}
		return true
	})

	return out
}

// scanList inspects one statement list. Handlers are recognized at the
// statement level so that a recover() bound to a variable can see the
// statements that follow it.
func (b *builder) scanList(function string, stmts []ast.Stmt) []Handler {
	var out []Handler

	for i, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.ExprStmt:
			if isRecoverCall(s.X) {
				out = append(out, Handler{
					Function: function,
					Kind:     HandlerRecover,
					Line:     b.line(s.Pos()),
					CatchAll: true,
					NoOp:     true,
				})
			}
		case *ast.AssignStmt:
			if h, ok := b.recoverAssign(function, s, stmts[i+1:]); ok {
				out = append(out, h)
			}
		case *ast.IfStmt:
			for cur := s; cur != nil; cur = elseIf(cur) {
				if h, ok := b.ifHandler(function, cur); ok {
					out = append(out, h)
				}
			}
		}
	}

	return out
}

// recoverAssign handles `r := recover()`, `_ = recover()` and
// `err, ok := recover().(error)` followed by the statements acting on r.
func (b *builder) recoverAssign(function string, s *ast.AssignStmt, rest []ast.Stmt) (Handler, bool) {
	if len(s.Rhs) != 1 {
		return Handler{}, false
	}

	h := Handler{
		Function: function,
		Kind:     HandlerRecover,
		Line:     b.line(s.Pos()),
	}

	switch rhs := s.Rhs[0].(type) {
	case *ast.CallExpr:
		if !isRecoverCall(rhs) {
			return Handler{}, false
		}
		if allBlank(s.Lhs) {
			h.CatchAll = true
			h.NoOp = true
			return h, true
		}
		name := lhsName(s.Lhs)
		h.CatchAll = !assertsOn(name, rest)
		h.BodyStatements = len(rest)
		h.NoOp = isNoOp(rest)
		return h, true
	case *ast.TypeAssertExpr:
		if !isRecoverCall(rhs.X) {
			return Handler{}, false
		}
		h.BodyStatements = len(rest)
		h.NoOp = isNoOp(rest)
		return h, true
	}

	return Handler{}, false
}

// ifHandler recognizes `if r := recover(); r != nil { ... }`,
// `if recover() != nil { ... }` and `if err != nil { ... }`.
func (b *builder) ifHandler(function string, s *ast.IfStmt) (Handler, bool) {
	var body []ast.Stmt
	if s.Body != nil {
		body = s.Body.List
	}

	h := Handler{
		Function:       function,
		Line:           b.line(s.Pos()),
		BodyStatements: len(body),
		NoOp:           isNoOp(body),
	}

	if init, ok := s.Init.(*ast.AssignStmt); ok && len(init.Rhs) == 1 {
		switch rhs := init.Rhs[0].(type) {
		case *ast.CallExpr:
			if isRecoverCall(rhs) {
				h.Kind = HandlerRecover
				name := lhsName(init.Lhs)
				h.CatchAll = !assertsOn(name, body) && (s.Cond == nil || !assertsOnNode(name, s.Cond))
				return h, true
			}
		case *ast.TypeAssertExpr:
			if isRecoverCall(rhs.X) {
				h.Kind = HandlerRecover
				return h, true
			}
		}
	}

	if containsRecoverCall(s.Cond) {
		h.Kind = HandlerRecover
		h.CatchAll = true
		return h, true
	}

	if isErrCheck(s.Cond) {
		h.Kind = HandlerErrorCheck
		return h, true
	}

	return Handler{}, false
}

func elseIf(s *ast.IfStmt) *ast.IfStmt {
	next, _ := s.Else.(*ast.IfStmt)
	return next
}

func isRecoverCall(expr ast.Expr) bool {
	call, ok := expr.(*ast.CallExpr)
	if !ok || len(call.Args) != 0 {
		return false
	}
	ident, ok := call.Fun.(*ast.Ident)
	return ok && ident.Name == "recover"
}

func containsRecoverCall(expr ast.Expr) bool {
	if expr == nil {
		return false
	}

	found := false
	ast.Inspect(expr, func(n ast.Node) bool {
		if e, ok := n.(ast.Expr); ok && isRecoverCall(e) {
			found = true
		}
		return !found
	})
	return found
}

// isErrCheck matches `err != nil` where the identifier is err or ends in Err.
func isErrCheck(cond ast.Expr) bool {
	bin, ok := cond.(*ast.BinaryExpr)
	if !ok || bin.Op != token.NEQ {
		return false
	}

	x, ok := bin.X.(*ast.Ident)
	if !ok {
		return false
	}
	y, ok := bin.Y.(*ast.Ident)
	if !ok || y.Name != "nil" {
		return false
	}

	return x.Name == "err" || strings.HasSuffix(x.Name, "Err")
}

// assertsOn reports whether any of stmts type-asserts (or type-switches on)
// the named variable.
func assertsOn(name string, stmts []ast.Stmt) bool {
	for _, stmt := range stmts {
		if assertsOnNode(name, stmt) {
			return true
		}
	}
	return false
}

func assertsOnNode(name string, node ast.Node) bool {
	if name == "" || node == nil {
		return false
	}

	found := false
	ast.Inspect(node, func(n ast.Node) bool {
		if ta, ok := n.(*ast.TypeAssertExpr); ok {
			if id, ok := ta.X.(*ast.Ident); ok && id.Name == name {
				found = true
			}
		}
		return !found
	})
	return found
}

func isNoOp(stmts []ast.Stmt) bool {
	switch len(stmts) {
	case 0:
		return true
	case 1:
	default:
		return false
	}

	switch s := stmts[0].(type) {
	case *ast.EmptyStmt:
		return true
	case *ast.BlockStmt:
		return len(s.List) == 0
	case *ast.AssignStmt:
		return s.Tok == token.ASSIGN && allBlank(s.Lhs)
	}
	return false
}

func allBlank(exprs []ast.Expr) bool {
	if len(exprs) == 0 {
		return false
	}
	for _, e := range exprs {
		id, ok := e.(*ast.Ident)
		if !ok || id.Name != "_" {
			return false
		}
	}
	return true
}

func lhsName(exprs []ast.Expr) string {
	if len(exprs) == 0 {
		return ""
	}
	id, ok := exprs[0].(*ast.Ident)
	if !ok || id.Name == "_" {
		return ""
	}
	return id.Name
}
