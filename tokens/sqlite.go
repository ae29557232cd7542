package tokens

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `CREATE TABLE IF NOT EXISTS push_tokens (
	token         TEXT PRIMARY KEY,
	platform      TEXT NOT NULL,
	registered_at TEXT NOT NULL
)`

// SQLite is a Registry in a SQLite database file.
type SQLite struct {
	db   *sql.DB
	path string
}

// NewSQLite opens (or creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating push_tokens table: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Add(ctx context.Context, t Token) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO push_tokens (token, platform, registered_at) VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET platform = excluded.platform, registered_at = excluded.registered_at`,
		t.Token, string(t.Platform), t.RegisteredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("cannot save push token: %w", err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context) ([]Token, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token, platform, registered_at FROM push_tokens`)
	if err != nil {
		return nil, fmt.Errorf("cannot list push tokens: %w", err)
	}
	defer rows.Close()

	list := []Token{}
	for rows.Next() {
		var token, platform, registeredAt string
		if err := rows.Scan(&token, &platform, &registeredAt); err != nil {
			return nil, fmt.Errorf("cannot read push token: %w", err)
		}
		at, _ := time.Parse(time.RFC3339Nano, registeredAt)
		list = append(list, Token{Token: token, Platform: ParsePlatform(platform), RegisteredAt: at})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot list push tokens: %w", err)
	}
	sortTokens(list)
	return list, nil
}

func (s *SQLite) Count(ctx context.Context) (n int, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM push_tokens`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cannot count push tokens: %w", err)
	}
	return n, nil
}

func (s *SQLite) Delete(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM push_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("cannot delete push token: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM push_tokens`); err != nil {
		return fmt.Errorf("cannot delete push tokens: %w", err)
	}
	return nil
}
