// Package syntax turns Go source files into the small, immutable tree view
// consumed by the quality checkers.
//
// The view keeps only what the checkers look at:
//
//   - the package clause and its comment (the module-level unit)
//   - function and method declarations with their doc comments, top-level
//     statement counts and control-flow skeleton
//   - named type declarations with their doc comments
//   - failure handlers: `if err != nil` branches and recover() sites
//
// Example:
//
//	tree, err := syntax.ParseFile("internal/foo/foo.go")
//	var perr *syntax.ParseError
//	if errors.As(err, &perr) {
//		// not valid Go; no tree
//	}
//	for _, fn := range tree.Functions {
//		fmt.Println(fn.QualifiedName(), fn.BodyStatements)
//	}
package syntax
