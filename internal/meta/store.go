package meta

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite index of external type metadata.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
// Use ":memory:" for a session-local index.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// The index is shared by concurrent resolvers; a single connection
	// keeps the in-memory database visible to all of them.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the metadata tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS modules (
  name            TEXT PRIMARY KEY,
  indexed         BOOLEAN NOT NULL DEFAULT FALSE,
  unreadable      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS types (
  fqn             TEXT PRIMARY KEY,
  module          TEXT NOT NULL REFERENCES modules(name),
  reachable       BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS members (
  id              INTEGER PRIMARY KEY,
  type_fqn        TEXT NOT NULL REFERENCES types(fqn),
  name            TEXT NOT NULL,
  signature       TEXT,
  UNIQUE(type_fqn, name, signature)
);

CREATE INDEX IF NOT EXISTS idx_types_module ON types(module);
CREATE INDEX IF NOT EXISTS idx_members_type ON members(type_fqn);
`

func (s *Store) getType(fqn string) (*TypeDescriptor, error) {
	row := s.db.QueryRow("SELECT fqn, module, reachable FROM types WHERE fqn = ?", fqn)
	td := &TypeDescriptor{}
	if err := row.Scan(&td.FQN, &td.Module, &td.Reachable); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query type %s: %w", fqn, err)
	}
	rows, err := s.db.Query(
		"SELECT name, signature FROM members WHERE type_fqn = ? ORDER BY name, signature", fqn)
	if err != nil {
		return nil, fmt.Errorf("query members of %s: %w", fqn, err)
	}
	defer rows.Close()
	for rows.Next() {
		var m Member
		var sig sql.NullString
		if err := rows.Scan(&m.Name, &sig); err != nil {
			return nil, fmt.Errorf("scan member of %s: %w", fqn, err)
		}
		m.Signature = sig.String
		td.Members = append(td.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members of %s: %w", fqn, err)
	}
	return td, nil
}

func (s *Store) allNames() ([]string, error) {
	rows, err := s.db.Query("SELECT fqn FROM types ORDER BY fqn")
	if err != nil {
		return nil, fmt.Errorf("query type names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var fqn string
		if err := rows.Scan(&fqn); err != nil {
			return nil, fmt.Errorf("scan type name: %w", err)
		}
		names = append(names, fqn)
	}
	return names, rows.Err()
}

func (s *Store) moduleIndexed(name string) (bool, error) {
	row := s.db.QueryRow("SELECT indexed FROM modules WHERE name = ?", name)
	var indexed bool
	if err := row.Scan(&indexed); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("query module %s: %w", name, err)
	}
	return indexed, nil
}

func (s *Store) unreadableCount(name string) (int, error) {
	row := s.db.QueryRow("SELECT unreadable FROM modules WHERE name = ?", name)
	var n int
	if err := row.Scan(&n); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("query module %s: %w", name, err)
	}
	return n, nil
}

func (s *Store) reset() error {
	for _, q := range []string{
		"DELETE FROM members",
		"DELETE FROM types",
		"DELETE FROM modules",
	} {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("reset metadata index: %w", err)
		}
	}
	return nil
}
