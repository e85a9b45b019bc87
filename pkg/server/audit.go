package server

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/crystal-mush/gomoo/pkg/editor"
	"github.com/crystal-mush/gomoo/pkg/moodb"
)

// AuditLog records every compile attempt in a SQLite database so
// wizards can answer "who changed that verb, and when".
type AuditLog struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// AuditEntry is one recorded compile attempt.
type AuditEntry struct {
	ID       int64  `json:"id"`
	When     string `json:"when"`
	Player   int    `json:"player"`
	Target   string `json:"target"`
	Override string `json:"override,omitempty"`
	Lines    int    `json:"lines"`
	Outcome  string `json:"outcome"` // ok, diagnostics, error
	Detail   string `json:"detail,omitempty"`
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS compile_log (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	at       TEXT NOT NULL,
	player   INTEGER NOT NULL,
	target   TEXT NOT NULL,
	override TEXT NOT NULL DEFAULT '',
	lines    INTEGER NOT NULL,
	outcome  TEXT NOT NULL,
	detail   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS compile_log_at ON compile_log(at);
`

// OpenAuditLog opens (creating if needed) the audit database, sets
// WAL mode and a busy timeout.
func OpenAuditLog(path string) (*AuditLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating audit schema: %w", err)
	}
	return &AuditLog{db: db, path: path}, nil
}

// Close closes the audit database.
func (a *AuditLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Path returns the filesystem path of the audit database.
func (a *AuditLog) Path() string { return a.path }

// Record logs one compile attempt. Failures to write the log are
// swallowed: auditing never breaks the compile itself.
func (a *AuditLog) Record(player moodb.ObjID, sess *editor.Session, override string, result editor.CompileResult, compileErr error) {
	outcome := "ok"
	detail := ""
	switch {
	case compileErr != nil:
		outcome = "error"
		detail = compileErr.Error()
	case !result.OK():
		outcome = "diagnostics"
		detail = fmt.Sprintf("%d diagnostics", len(result.Diagnostics))
	}
	target := sess.Target.Home.String() + ":" + sess.Target.Verb.FirstName()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.db.Exec(
		`INSERT INTO compile_log (at, player, target, override, lines, outcome, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), int(player), target, override,
		sess.Buf.Len(), outcome, detail,
	)
}

// Recent returns up to limit most recent audit entries, newest first.
func (a *AuditLog) Recent(limit int) ([]AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rows, err := a.db.Query(
		`SELECT id, at, player, target, override, lines, outcome, detail
		 FROM compile_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.When, &e.Player, &e.Target, &e.Override, &e.Lines, &e.Outcome, &e.Detail); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
