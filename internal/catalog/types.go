// Package catalog holds the product model, its Postgres and SQLite stores, and the
// snapshot cache the assistant resolves against.
package catalog

import (
	"context"
	"errors"

	"github.com/memohai/storefront/internal/reference"
)

// ErrProductNotFound is returned by Get when no active product has the id.
var ErrProductNotFound = errors.New("product not found")

// Product is one active catalog record.
type Product struct {
	ID          int64  `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	ImageURL    string `json:"image_url,omitempty" yaml:"image_url"`
	Category    string `json:"category,omitempty" yaml:"category"`
	PriceCents  int64  `json:"price_cents" yaml:"price_cents"`
	Currency    string `json:"currency" yaml:"currency"`
	Stock       int    `json:"stock" yaml:"stock"`
}

// Item projects the product onto what the reference resolver matches on.
func (p Product) Item() reference.Item {
	return reference.Item{ID: p.ID, Name: p.Name}
}

// Items projects products in order.
func Items(products []Product) []reference.Item {
	items := make([]reference.Item, len(products))
	for i, p := range products {
		items[i] = p.Item()
	}
	return items
}

// Store reads the catalog. Snapshot is ordered by id; an empty category means every category.
type Store interface {
	Snapshot(ctx context.Context, category string) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	// GetMany returns products in the order of ids. Unknown and repeated ids are dropped.
	GetMany(ctx context.Context, ids []int64) ([]Product, error)
}

// Writer upserts products by id. Both stores implement it for seeding.
type Writer interface {
	Upsert(ctx context.Context, products []Product) error
}

// orderByIDs arranges found in the order of ids, dropping ids with no product and repeats.
func orderByIDs(found []Product, ids []int64) []Product {
	byID := make(map[int64]Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]Product, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
