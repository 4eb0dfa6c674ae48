// Package sqlitesource provides a SQLite-backed page source: each fetch is
// one page-aligned SELECT. It backs the demo and serves as the reference
// Source implementation.
package sqlitesource

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ncruces/go-sqlite3"
	"github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/pressly/goose/v3"

	"github.com/charmbracelet/vgrid/pager"
)

// Item is one row of the items table.
type Item struct {
	ID    int64
	Title string
}

// Source serves pages of items from a SQLite database.
type Source struct {
	db    *sql.DB
	page  *sql.Stmt
	count *sql.Stmt
}

var _ pager.Source[Item] = (*Source)(nil)

// Open opens (creating if needed) the database at path and applies
// migrations. Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string) (*Source, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlitesource: path is not set")
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA cache_size = -8000;",
	}

	db, err := driver.Open(path, func(c *sqlite3.Conn) error {
		for _, pragma := range pragmas {
			if err := c.Exec(pragma); err != nil {
				return fmt.Errorf("failed to set pragma `%s`: %w", pragma, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	goose.SetBaseFS(FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	page, err := db.PrepareContext(ctx, "SELECT id, title FROM items ORDER BY id LIMIT ? OFFSET ?")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare page statement: %w", err)
	}
	count, err := db.PrepareContext(ctx, "SELECT COUNT(*) FROM items")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare count statement: %w", err)
	}

	return &Source{db: db, page: page, count: count}, nil
}

// Page implements pager.Source: items [number*size, number*size+size) in id
// order. A short final page returns fewer than size items.
func (s *Source) Page(ctx context.Context, number, size int) ([]Item, error) {
	if number < 0 || size <= 0 {
		return nil, nil
	}
	rows, err := s.page.QueryContext(ctx, size, number*size)
	if err != nil {
		return nil, fmt.Errorf("sqlitesource: query page %d: %w", number, err)
	}
	defer rows.Close()

	items := make([]Item, 0, size)
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Title); err != nil {
			return nil, fmt.Errorf("sqlitesource: scan page %d: %w", number, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlitesource: read page %d: %w", number, err)
	}
	return items, nil
}

// Count returns the total number of items.
func (s *Source) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.count.QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlitesource: count items: %w", err)
	}
	return n, nil
}

// Seed inserts n demo rows if the table is empty. It returns the number of
// rows inserted.
func (s *Source) Seed(ctx context.Context, n int) (int, error) {
	existing, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 || n <= 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlitesource: begin seed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO items (title) VALUES (?)")
	if err != nil {
		return 0, fmt.Errorf("sqlitesource: prepare seed: %w", err)
	}
	defer stmt.Close()

	for i := range n {
		if _, err := stmt.ExecContext(ctx, fmt.Sprintf("Item %06d", i)); err != nil {
			return 0, fmt.Errorf("sqlitesource: seed row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlitesource: commit seed: %w", err)
	}
	slog.Debug("sqlitesource: seeded items", "count", n)
	return n, nil
}

// Close releases the prepared statements and the database.
func (s *Source) Close() error {
	s.page.Close()
	s.count.Close()
	return s.db.Close()
}
