// Package attemptlog provides a sqlite-backed attemptlog.Ledger: an
// append-only table of notarization attempts for operator observability.
package attemptlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/summitto/tlsn-prover-gateway/internal/domain/attemptlog"
)

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	host       TEXT NOT NULL,
	outcome    TEXT NOT NULL,
	error_kind TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	ts_unix    INTEGER NOT NULL
);
`

// SQLiteLedger implements attemptlog.Ledger on a single sqlite file.
type SQLiteLedger struct {
	db *sql.DB
}

// Open creates (or reuses) the sqlite database at path and ensures the
// attempts table exists.
func Open(path string) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("attemptlog: opening %s: %w", path, err)
	}
	// sqlite serializes writes; a single connection avoids SQLITE_BUSY
	// under the pipeline's modest write volume without WAL tuning.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("attemptlog: creating schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

// Record inserts one attempt row.
func (l *SQLiteLedger) Record(ctx context.Context, a attemptlog.Attempt) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO attempts (host, outcome, error_kind, detail, ts_unix) VALUES (?, ?, ?, ?, ?)`,
		a.Host, string(a.Outcome), string(a.ErrorKind), a.Detail, a.Timestamp.Unix(),
	)
	if err != nil {
		return fmt.Errorf("attemptlog: inserting attempt: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// Recent returns the n most recently recorded attempts, newest first. It
// exists for operator inspection tooling, not for the notarization
// pipeline itself.
func (l *SQLiteLedger) Recent(ctx context.Context, n int) ([]attemptlog.Attempt, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT host, outcome, error_kind, detail, ts_unix FROM attempts ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("attemptlog: querying recent attempts: %w", err)
	}
	defer rows.Close()

	var out []attemptlog.Attempt
	for rows.Next() {
		var (
			a       attemptlog.Attempt
			outcome string
			kind    string
			tsUnix  int64
		)
		if err := rows.Scan(&a.Host, &outcome, &kind, &a.Detail, &tsUnix); err != nil {
			return nil, fmt.Errorf("attemptlog: scanning row: %w", err)
		}
		a.Outcome = attemptlog.Outcome(outcome)
		a.ErrorKind = attemptlog.ErrorKind(kind)
		a.Timestamp = time.Unix(tsUnix, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
