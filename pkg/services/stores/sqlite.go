package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/liut/campus-assistant/data/schemas"
)

type sqliteKV struct {
	db *sql.DB
}

// OpenSqliteKV opens (and creates) a local history database
func OpenSqliteKV(path string) (KV, error) {
	if path == "" {
		return nil, errors.New("sqlite path must be provided")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one connection, so that ":memory:" is one database
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrateSqlite(db); err != nil {
		db.Close()
		return nil, err
	}
	logger().Debugw("opened sqlite", "path", path)
	return &sqliteKV{db: db}, nil
}

func migrateSqlite(db *sql.DB) error {
	fsys := schemas.SqliteFS()
	names, err := fs.Glob(fsys, "sqlite_*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return err
		}
		if _, err := db.Exec(string(b)); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
}

func (s *sqliteKV) GetItem(ctx context.Context, key string) (value string, err error) {
	err = s.db.QueryRowContext(ctx, "SELECT value FROM kv_items WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNoItem
	}
	return
}

func (s *sqliteKV) SetItem(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv_items (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	return err
}

func (s *sqliteKV) RemoveItem(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv_items WHERE key = ?", key)
	return err
}

func (s *sqliteKV) Close() error {
	return s.db.Close()
}
