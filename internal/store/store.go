package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/sagatest/internal/canon"
)

//go:embed schema.sql
var schemaSQL string

// Store is the run history database.
// One connection serves reads and writes; runs are only appended.
type Store struct {
	db *sql.DB
}

// pragma is a connection setting and the value SQLite reports once it holds.
type pragma struct {
	name  string
	value string
	want  string
}

var pragmas = []pragma{
	{name: "journal_mode", value: "WAL", want: "wal"},
	{name: "synchronous", value: "NORMAL", want: "1"},
	{name: "busy_timeout", value: "5000", want: "5000"},
	{name: "foreign_keys", value: "ON", want: "1"},
}

// migration upgrades the history from version-1 to version.
type migration struct {
	version int
	name    string
	up      func(tx *sql.Tx) error
}

// migrations run in order inside their own transaction. user_version
// records the last one applied.
var migrations = []migration{
	{version: 1, name: "index trace hashes", up: indexTraceHashes},
	{version: 2, name: "backfill trace hashes", up: backfillTraceHashes},
}

// schemaVersion is the user_version of a fully migrated history.
var schemaVersion = migrations[len(migrations)-1].version

// Open opens the run history at path, creating it if needed, and brings
// its schema up to date. Reopening an existing history keeps its runs.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}

	// SQLite allows one writer; a single connection also keeps pragmas
	// applied for every statement.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := configure(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing a closed store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// configure applies every pragma and checks that SQLite accepted it.
// journal_mode in particular falls back silently on some filesystems.
func configure(db *sql.DB) error {
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("set %s: %w", p.name, err)
		}
		got, err := readPragma(db, p.name)
		if err != nil {
			return err
		}
		if !strings.EqualFold(got, p.want) {
			return fmt.Errorf("pragma %s = %q, want %q", p.name, got, p.want)
		}
	}
	return nil
}

func readPragma(db *sql.DB, name string) (string, error) {
	var value string
	if err := db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return value, nil
}

// migrate applies the migrations newer than the stored user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("history schema v%d is newer than supported v%d", version, schemaVersion)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func applyMigration(db *sql.DB, m migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := m.up(tx); err != nil {
		return err
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
		return err
	}
	return tx.Commit()
}

// indexTraceHashes backs FindRunsByHash.
func indexTraceHashes(tx *sql.Tx) error {
	_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_trace_hash ON runs(trace_hash, seq)`)
	return err
}

// backfillTraceHashes hashes runs recorded without a trace hash, so replay
// can compare every recorded run. Stored traces are canonical JSON and hash
// the same way NewRun hashes a fresh trace.
func backfillTraceHashes(tx *sql.Tx) error {
	rows, err := tx.Query(`SELECT id, trace_json FROM runs WHERE trace_hash = '' ORDER BY seq ASC`)
	if err != nil {
		return err
	}

	type pending struct {
		id    string
		trace string
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.trace); err != nil {
			rows.Close()
			return err
		}
		todo = append(todo, p)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return err
	}

	for _, p := range todo {
		hash := canon.Hash([]byte(p.trace))
		if _, err := tx.Exec(`UPDATE runs SET trace_hash = ? WHERE id = ?`, hash, p.id); err != nil {
			return fmt.Errorf("run %s: %w", p.id, err)
		}
	}
	return nil
}
