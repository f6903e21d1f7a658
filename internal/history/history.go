// Package history keeps an append-only SQLite log of check runs so results
// can be re-rendered and compared across invocations. The quality engine
// never reads it back; the learning state lives in its own JSON document.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/steveyegge/qualmon/internal/quality"
)

// Run is one recorded check of one file.
type Run struct {
	ID         string
	Path       string
	CheckedAt  time.Time
	Issues     []quality.Issue
	Stats      quality.FileStats
	Confidence float64
}

// Count returns how many of the run's issues have severity.
func (r Run) Count(severity quality.Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			n++
		}
	}
	return n
}

// Log is the SQLite-backed run log.
type Log struct {
	db *sql.DB
}

// Open opens or creates the run log at path.
func Open(path string) (*Log, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the database.
func (l *Log) Close() error {
	return l.db.Close()
}

// Append stores a run and its issues in one transaction. A run without an
// ID gets a fresh one.
func (l *Log) Append(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CheckedAt.IsZero() {
		run.CheckedAt = time.Now()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, path, checked_at, issue_count, confidence,
		                  lines_of_code, function_count, class_count,
		                  documented_count, comment_line_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Path, run.CheckedAt.UTC().Format(time.RFC3339Nano), len(run.Issues), run.Confidence,
		run.Stats.LinesOfCode, run.Stats.FunctionCount, run.Stats.ClassCount,
		run.Stats.DocumentedCount, run.Stats.CommentLineCount)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i, issue := range run.Issues {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_issues (run_id, position, severity, category, message, suggestion, line)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, issue.Severity.String(), issue.Category, issue.Message, issue.Suggestion, issue.Line)
		if err != nil {
			return fmt.Errorf("failed to insert issue: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, path, checked_at, confidence, lines_of_code, function_count,
	class_count, documented_count, comment_line_count`

// Latest returns the most recent run of every path, ordered by path.
func (l *Log) Latest(ctx context.Context) ([]Run, error) {
	return l.queryRuns(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE seq IN (SELECT MAX(seq) FROM runs GROUP BY path)
		ORDER BY path ASC
	`)
}

// Trend returns the runs of path, oldest first, limited to the newest limit
// runs when limit > 0.
func (l *Log) Trend(ctx context.Context, path string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return l.queryRuns(ctx, `
		SELECT `+runColumns+` FROM (
			SELECT * FROM runs WHERE path = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC
	`, path, limit)
}

func (l *Log) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var run Run
		var checkedAt string
		err := rows.Scan(
			&run.ID,
			&run.Path,
			&checkedAt,
			&run.Confidence,
			&run.Stats.LinesOfCode,
			&run.Stats.FunctionCount,
			&run.Stats.ClassCount,
			&run.Stats.DocumentedCount,
			&run.Stats.CommentLineCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.CheckedAt, err = time.Parse(time.RFC3339Nano, checkedAt)
		if err != nil {
			return nil, fmt.Errorf("invalid checked_at %q for run %s: %w", checkedAt, run.ID, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	for i := range runs {
		issues, err := l.issues(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Issues = issues
	}
	return runs, nil
}

func (l *Log) issues(ctx context.Context, runID string) ([]quality.Issue, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT severity, category, message, suggestion, line
		FROM run_issues
		WHERE run_id = ?
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var issues []quality.Issue
	for rows.Next() {
		var issue quality.Issue
		var severity string
		if err := rows.Scan(&severity, &issue.Category, &issue.Message, &issue.Suggestion, &issue.Line); err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		if issue.Severity, err = quality.ParseSeverity(severity); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issues: %w", err)
	}
	return issues, nil
}

// Report rebuilds a quality report from the latest run of every path.
func (l *Log) Report(ctx context.Context, title string) (quality.Report, error) {
	runs, err := l.Latest(ctx)
	if err != nil {
		return quality.Report{}, err
	}

	report := quality.Report{Title: title}
	var newest time.Time
	for _, run := range runs {
		report.Files = append(report.Files, quality.FileReport{Path: run.Path, Issues: run.Issues})
		if !run.CheckedAt.Before(newest) {
			newest = run.CheckedAt
			report.Confidence = run.Confidence
		}
	}
	return report, nil
}
