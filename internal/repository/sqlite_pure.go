package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentSchemaVersion = 1

// SQLRepository stores collections through database/sql on the pure-Go
// SQLite driver, for builds without cgo.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository opens (or creates) the SQLite database at dbPath and runs migrations.
func NewSQLRepository(dbPath string) (*SQLRepository, error) {
	if !isMemoryDSN(dbPath) {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	r := &SQLRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLRepository) migrate() error {
	var version int
	if err := r.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version >= currentSchemaVersion {
		return nil
	}

	const ddl = `
	CREATE TABLE IF NOT EXISTS collections (
		name        TEXT PRIMARY KEY,
		payload     BLOB NOT NULL,
		updated_at  TEXT NOT NULL
	);`
	if _, err := r.db.Exec(ddl); err != nil {
		return err
	}

	_, err := r.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion))
	return err
}

func (r *SQLRepository) Load(ctx context.Context, name string) ([]byte, bool, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM collections WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get collection %s: %w", name, err)
	}
	return payload, true, nil
}

func (r *SQLRepository) Replace(ctx context.Context, name string, payload []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO collections (name, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		name, payload, now,
	)
	if err != nil {
		return fmt.Errorf("replace collection %s: %w", name, err)
	}
	return nil
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}
