// Package quality checks Go source files for structure, documentation,
// error-handling and style problems, and feeds every result into the
// learning store.
//
// The Engine ties the pieces together:
//
//	store := learning.Open(path, lc, logger)
//	engine := quality.NewEngine(quality.DefaultConfig(), store, quality.WithLogger(logger))
//	if err := engine.CheckFile("internal/foo/foo.go"); err != nil {
//		// unreadable file; nothing stored
//	}
//	fmt.Print(engine.GenerateReport())
//
// Checkers are stateless and run in a fixed order, so checking the same
// text twice yields the same issues.
package quality
