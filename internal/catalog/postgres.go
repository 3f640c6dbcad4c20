package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memohai/storefront/internal/db"
	"github.com/memohai/storefront/internal/logger"
)

const productColumns = "id, name, description, image_url, category, price_cents, currency, stock"

// PostgresStore reads products from the migrated products table.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(log *slog.Logger, pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.OrDiscard(log).With(slog.String("store", "postgres")),
	}
}

func scanProduct(row pgx.CollectableRow) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.Category, &p.PriceCents, &p.Currency, &p.Stock)
	return p, err
}

// Snapshot lists active products ordered by id.
func (s *PostgresStore) Snapshot(ctx context.Context, category string) ([]Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE active AND ($1 = '' OR category = $1)
		 ORDER BY id`, category)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

// Get returns one active product.
func (s *PostgresStore) Get(ctx context.Context, id int64) (Product, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE active AND id = $1`, id)
	if err != nil {
		return Product{}, fmt.Errorf("query product %d: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if db.IsNoRows(err) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("scan product %d: %w", id, err)
	}
	return p, nil
}

// GetMany returns active products in the order of ids.
func (s *PostgresStore) GetMany(ctx context.Context, ids []int64) ([]Product, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return []Product{}, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE active AND id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query products by id: %w", err)
	}
	found, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("scan products by id: %w", err)
	}
	return orderByIDs(found, ids), nil
}

// Upsert writes products in one batch, reactivating any that were retired.
func (s *PostgresStore) Upsert(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`INSERT INTO products (`+productColumns+`, active, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, now())
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				image_url = EXCLUDED.image_url,
				category = EXCLUDED.category,
				price_cents = EXCLUDED.price_cents,
				currency = EXCLUDED.currency,
				stock = EXCLUDED.stock,
				active = TRUE,
				updated_at = now()`,
			p.ID, p.Name, p.Description, p.ImageURL, p.Category, p.PriceCents, p.Currency, p.Stock)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert products: %w", err)
	}
	s.logger.Info("products upserted", slog.Int("count", len(products)))
	return nil
}
