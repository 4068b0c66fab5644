package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type dialect struct {
	name        string
	placeholder func(n int) string
}

var (
	postgresDialect = dialect{name: "postgres", placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
	sqliteDialect   = dialect{name: "sqlite", placeholder: func(int) string { return "?" }}
)

// SQLStore keeps keys in a single kv_entries table. Both postgres and sqlite
// compare keys bytewise, which keeps cursor paging stable.
type SQLStore struct {
	db      *sql.DB
	dialect dialect

	getQuery    string
	putQuery    string
	deleteQuery string
	listQuery   string
}

func OpenPostgres(ctx context.Context, databaseURL string) (*SQLStore, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	return newSQLStore(ctx, db, postgresDialect)
}

func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite allows a single writer.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{`PRAGMA journal_mode=WAL;`, `PRAGMA busy_timeout=5000;`} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}

	return newSQLStore(ctx, db, sqliteDialect)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if err := applyMigrations(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	p := d.placeholder
	return &SQLStore{
		db:          db,
		dialect:     d,
		getQuery:    fmt.Sprintf(`SELECT value FROM kv_entries WHERE key = %s`, p(1)),
		putQuery:    fmt.Sprintf(`INSERT INTO kv_entries(key, value) VALUES(%s, %s) ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`, p(1), p(2)),
		deleteQuery: fmt.Sprintf(`DELETE FROM kv_entries WHERE key = %s`, p(1)),
		listQuery:   fmt.Sprintf(`SELECT key FROM kv_entries WHERE substr(key, 1, %s) = %s AND key > %s ORDER BY key LIMIT %s`, p(1), p(2), p(3), p(4)),
	}, nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.getQuery, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%s get %s: %w", s.dialect.name, key, err)
	}
	return value, nil
}

func (s *SQLStore) Put(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.putQuery, key, value); err != nil {
		return fmt.Errorf("%s put %s: %w", s.dialect.name, key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteQuery, key); err != nil {
		return fmt.Errorf("%s delete %s: %w", s.dialect.name, key, err)
	}
	return nil
}

// List fetches one extra row to learn whether another page exists.
func (s *SQLStore) List(ctx context.Context, prefix, cursor string, limit int) (Page, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, s.listQuery, utf8.RuneCountInString(prefix), prefix, cursor, limit+1)
	if err != nil {
		return Page{}, fmt.Errorf("%s list %s: %w", s.dialect.name, prefix, err)
	}
	defer rows.Close()

	keys := make([]string, 0, limit)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return Page{}, fmt.Errorf("%s scan key: %w", s.dialect.name, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("%s list %s: %w", s.dialect.name, prefix, err)
	}

	if len(keys) <= limit {
		return Page{Keys: keys, Complete: true}, nil
	}
	keys = keys[:limit]
	return Page{Keys: keys, Cursor: keys[len(keys)-1]}, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
