// Package directory resolves people metadata for hierarchy nodes: display
// name and contact details keyed by owner id. It only decorates reads and
// holds no tree state.
package directory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/uplinehq/upline/internal/hierarchy"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	owner_id TEXT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL
);
`

// Service is a SQLite-backed profile directory.
type Service struct {
	db *sql.DB
}

// Open opens (creating if needed) the directory database at dbPath.
func Open(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open directory db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Service{db: db}, nil
}

// Upsert stores or replaces a profile.
func (s *Service) Upsert(ctx context.Context, ownerID, name, email, phone string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (owner_id, name, email, phone, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET
		   name = excluded.name, email = excluded.email,
		   phone = excluded.phone, updated_at = excluded.updated_at`,
		ownerID, name, email, phone, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Profiles resolves display metadata for a batch of owner ids. Owners
// without a profile are simply absent from the result.
func (s *Service) Profiles(ctx context.Context, ownerIDs []string) (map[string]hierarchy.Profile, error) {
	out := make(map[string]hierarchy.Profile, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ownerIDs)), ",")
	args := make([]any, len(ownerIDs))
	for i, id := range ownerIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT owner_id, name, email FROM profiles WHERE owner_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var p hierarchy.Profile
		if err := rows.Scan(&id, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out[id] = p
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Service) Close() error { return s.db.Close() }
