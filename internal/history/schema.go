package history

const schema = `
-- One row per recorded check of one file
CREATE TABLE IF NOT EXISTS runs (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    path TEXT NOT NULL,
    checked_at TEXT NOT NULL,
    issue_count INTEGER NOT NULL DEFAULT 0,
    confidence REAL NOT NULL DEFAULT 0,
    lines_of_code INTEGER NOT NULL DEFAULT 0,
    function_count INTEGER NOT NULL DEFAULT 0,
    class_count INTEGER NOT NULL DEFAULT 0,
    documented_count INTEGER NOT NULL DEFAULT 0,
    comment_line_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_path ON runs(path, seq);

-- Issues reported by a run, in checker order
CREATE TABLE IF NOT EXISTS run_issues (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    severity TEXT NOT NULL,
    category TEXT NOT NULL,
    message TEXT NOT NULL,
    suggestion TEXT NOT NULL DEFAULT '',
    line INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, position),
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`
