// Package learning keeps the adaptive memory of the quality monitor.
//
// A Store counts the lines of files that came back (nearly) clean, counts
// issues by "SEVERITY:category", appends an effectiveness record per checked
// file and derives a confidence value from the two pattern sets:
//
//	confidence = |clean patterns| / (|clean patterns| + |issue patterns|)
//
// When confidence passes the configured cutoff the store proposes relaxed
// thresholds for the checkers. Proposals are advisory and never applied
// automatically.
//
// The whole state is one JSON document, rewritten with a temp file and
// rename after every recorded check.
package learning
