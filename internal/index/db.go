package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Zuo-Peng/session-analyzer/internal/parse"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS sessions (
    file_path      TEXT PRIMARY KEY,
    session_id     TEXT NOT NULL,
    start_ms       INTEGER NOT NULL,
    last_update_ms INTEGER NOT NULL,
    mtime          INTEGER NOT NULL DEFAULT 0,
    size           INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS sessions_start ON sessions(start_ms);
CREATE INDEX IF NOT EXISTS sessions_id ON sessions(session_id);

CREATE TABLE IF NOT EXISTS updates (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id     TEXT NOT NULL,
    file_path      TEXT NOT NULL,
    start_ms       INTEGER NOT NULL,
    last_update_ms INTEGER NOT NULL,
    observed_ms    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS updates_session ON updates(session_id);

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	d := &DB{db: db}
	d.migrateSchemaVersion()

	return d, nil
}

// schemaVersion should be bumped whenever record parsing changes
// to force a full re-index.
const schemaVersion = "1"

func (d *DB) migrateSchemaVersion() {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err != nil || ver != schemaVersion {
		d.db.Exec("UPDATE sessions SET mtime = 0, size = 0")
		d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	}
}

func (d *DB) Close() error {
	return d.db.Close()
}

type FileInfo struct {
	Mtime int64
	Size  int64
}

// GetFileInfo returns the stored mtime and size for path, or nil if the
// file has not been indexed.
func (d *DB) GetFileInfo(path string) (*FileInfo, error) {
	var info FileInfo
	err := d.db.QueryRow(
		"SELECT mtime, size FROM sessions WHERE file_path = ?",
		path,
	).Scan(&info.Mtime, &info.Size)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (d *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := d.db.Query("SELECT file_path FROM sessions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths[p] = struct{}{}
	}
	return paths, rows.Err()
}

func (d *DB) UpsertSession(rec parse.SessionRecord, mtime, size int64) error {
	_, err := d.db.Exec(
		`INSERT INTO sessions (file_path, session_id, start_ms, last_update_ms, mtime, size)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET
		     session_id = excluded.session_id,
		     start_ms = excluded.start_ms,
		     last_update_ms = excluded.last_update_ms,
		     mtime = excluded.mtime,
		     size = excluded.size`,
		rec.Path,
		rec.ID,
		rec.Start.UnixMilli(),
		rec.LastUpdate.UnixMilli(),
		mtime,
		size,
	)
	return err
}

func (d *DB) DeleteSession(path string) error {
	_, err := d.db.Exec("DELETE FROM sessions WHERE file_path = ?", path)
	return err
}

func (d *DB) SessionCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}

func (d *DB) UpdateCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM updates").Scan(&n)
	return n, err
}

type SessionRow struct {
	SessionID  string
	FilePath   string
	Start      time.Time
	LastUpdate time.Time
}

func (s SessionRow) Record() parse.SessionRecord {
	return parse.SessionRecord{
		ID:         s.SessionID,
		Start:      s.Start,
		LastUpdate: s.LastUpdate,
		Duration:   s.LastUpdate.Sub(s.Start),
		Path:       s.FilePath,
	}
}

type ListOptions struct {
	Since time.Time // zero = no lower bound on start
	Limit int       // <= 0 = no limit
}

// ListSessions returns indexed sessions, newest start first.
func (d *DB) ListSessions(opts ListOptions) ([]SessionRow, error) {
	query := "SELECT session_id, file_path, start_ms, last_update_ms FROM sessions"
	var args []any
	if !opts.Since.IsZero() {
		query += " WHERE start_ms >= ?"
		args = append(args, opts.Since.UnixMilli())
	}
	query += " ORDER BY start_ms DESC, file_path"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSessionByID returns the most recently updated row for sessionID, or nil.
func (d *DB) GetSessionByID(sessionID string) (*SessionRow, error) {
	row := d.db.QueryRow(
		`SELECT session_id, file_path, start_ms, last_update_ms FROM sessions
		 WHERE session_id = ? ORDER BY last_update_ms DESC LIMIT 1`,
		sessionID,
	)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (SessionRow, error) {
	var s SessionRow
	var startMs, lastMs int64
	if err := r.Scan(&s.SessionID, &s.FilePath, &startMs, &lastMs); err != nil {
		return s, err
	}
	s.Start = time.UnixMilli(startMs).Local()
	s.LastUpdate = time.UnixMilli(lastMs).Local()
	return s, nil
}

type UpdateRow struct {
	SessionRow
	ObservedAt time.Time
}

// RecordUpdate appends one observed change of a session.
func (d *DB) RecordUpdate(rec parse.SessionRecord, observedAt time.Time) error {
	_, err := d.db.Exec(
		`INSERT INTO updates (session_id, file_path, start_ms, last_update_ms, observed_ms)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Path,
		rec.Start.UnixMilli(),
		rec.LastUpdate.UnixMilli(),
		observedAt.UnixMilli(),
	)
	return err
}

// Updates returns the recorded updates for sessionID in observation order.
func (d *DB) Updates(sessionID string) ([]UpdateRow, error) {
	rows, err := d.db.Query(
		`SELECT session_id, file_path, start_ms, last_update_ms, observed_ms FROM updates
		 WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UpdateRow
	for rows.Next() {
		var u UpdateRow
		var startMs, lastMs, observedMs int64
		if err := rows.Scan(&u.SessionID, &u.FilePath, &startMs, &lastMs, &observedMs); err != nil {
			return nil, err
		}
		u.Start = time.UnixMilli(startMs).Local()
		u.LastUpdate = time.UnixMilli(lastMs).Local()
		u.ObservedAt = time.UnixMilli(observedMs).Local()
		out = append(out, u)
	}
	return out, rows.Err()
}
