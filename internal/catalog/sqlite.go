package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/memohai/storefront/internal/logger"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id          INTEGER PRIMARY KEY,
	name        TEXT    NOT NULL,
	description TEXT    NOT NULL DEFAULT '',
	image_url   TEXT    NOT NULL DEFAULT '',
	category    TEXT    NOT NULL DEFAULT '',
	price_cents INTEGER NOT NULL DEFAULT 0,
	currency    TEXT    NOT NULL DEFAULT 'IDR',
	stock       INTEGER NOT NULL DEFAULT 0,
	active      INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_products_category ON products (category);
`

// SQLiteStore keeps the catalog in a local SQLite file, or in memory for ":memory:".
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLiteStore opens (or creates) the database at path and ensures the schema.
func OpenSQLiteStore(ctx context.Context, log *slog.Logger, path string) (*SQLiteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Each connection to ":memory:" is its own database.
	conn.SetMaxOpenConns(1)
	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLiteStore{
		db:     conn,
		logger: logger.OrDiscard(log).With(slog.String("store", "sqlite"), slog.String("path", path)),
	}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.Category, &p.PriceCents, &p.Currency, &p.Stock)
	return p, err
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanSQLiteProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Snapshot lists active products ordered by id.
func (s *SQLiteStore) Snapshot(ctx context.Context, category string) ([]Product, error) {
	products, err := s.query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE active = 1 AND (? = '' OR category = ?)
		 ORDER BY id`, category, category)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return products, nil
}

// Get returns one active product.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE active = 1 AND id = ?`, id)
	p, err := scanSQLiteProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("query product %d: %w", id, err)
	}
	return p, nil
}

// GetMany returns active products in the order of ids.
func (s *SQLiteStore) GetMany(ctx context.Context, ids []int64) ([]Product, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []Product{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	found, err := s.query(ctx, `SELECT `+productColumns+` FROM products WHERE active = 1 AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query products by id: %w", err)
	}
	return orderByIDs(found, ids), nil
}

// Upsert writes products in one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO products (`+productColumns+`, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			image_url = excluded.image_url,
			category = excluded.category,
			price_cents = excluded.price_cents,
			currency = excluded.currency,
			stock = excluded.stock,
			active = 1`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range products {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Description, p.ImageURL, p.Category, p.PriceCents, p.Currency, p.Stock); err != nil {
			return fmt.Errorf("upsert product %d: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	s.logger.Info("products upserted", slog.Int("count", len(products)))
	return nil
}
