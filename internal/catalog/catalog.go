// Package catalog persists audit records in SQLite so matches can be
// queried across runs (duplicate hashes, per-rule counts). The CSV
// audit log remains the record of authority; the catalog is a query
// convenience and its failures are non-fatal to a run.
package catalog

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id    TEXT NOT NULL,
	time      DATETIME NOT NULL,
	rule      TEXT NOT NULL,
	src       TEXT NOT NULL,
	mime      TEXT NOT NULL DEFAULT '',
	ext       TEXT NOT NULL DEFAULT '',
	sha256    TEXT NOT NULL DEFAULT '',
	size      INTEGER NOT NULL DEFAULT 0,
	copied_to TEXT NOT NULL DEFAULT '',
	metadata  TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_records_sha256 ON records(sha256);
CREATE INDEX IF NOT EXISTS idx_records_run ON records(run_id);
`

// Row mirrors one audit record plus the id of the run that produced it.
type Row struct {
	RunID    string
	Time     time.Time
	Rule     string
	Src      string
	MIME     string
	Ext      string
	SHA256   string
	Size     int64
	CopiedTo string
	Metadata string
}

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite catalog and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Insert appends one record.
func (db *DB) Insert(r Row) error {
	_, err := db.conn.Exec(`
		INSERT INTO records (run_id, time, rule, src, mime, ext, sha256, size, copied_to, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Time.UTC(), r.Rule, r.Src, r.MIME, r.Ext, r.SHA256, r.Size, r.CopiedTo, r.Metadata)
	if err != nil {
		return fmt.Errorf("catalog: insert record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest insertion first.
func (db *DB) Recent(limit int) ([]Row, error) {
	rows, err := db.conn.Query(`
		SELECT run_id, time, rule, src, mime, ext, sha256, size, copied_to, metadata
		FROM records ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: recent: %w", err)
	}
	return scanRows(rows)
}

// BySHA256 returns every record sharing the given content hash, across
// all runs. Useful for spotting the same evidence file in more than one
// place.
func (db *DB) BySHA256(sha string) ([]Row, error) {
	rows, err := db.conn.Query(`
		SELECT run_id, time, rule, src, mime, ext, sha256, size, copied_to, metadata
		FROM records WHERE sha256 = ? ORDER BY id
	`, sha)
	if err != nil {
		return nil, fmt.Errorf("catalog: by sha256: %w", err)
	}
	return scanRows(rows)
}

// CountByRule returns per-rule match counts for one run.
func (db *DB) CountByRule(runID string) (map[string]int64, error) {
	rows, err := db.conn.Query(`
		SELECT rule, COUNT(*) FROM records WHERE run_id = ? GROUP BY rule
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("catalog: count by rule: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var rule string
		var n int64
		if err := rows.Scan(&rule, &n); err != nil {
			return nil, err
		}
		out[rule] = n
	}
	return out, rows.Err()
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()
	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.RunID, &r.Time, &r.Rule, &r.Src, &r.MIME, &r.Ext,
			&r.SHA256, &r.Size, &r.CopiedTo, &r.Metadata); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
