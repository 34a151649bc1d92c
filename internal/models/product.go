package models

import (
	"github.com/google/uuid"
)

// Product mirrors the storefront catalog fields the assistant cares about.
// The catalog itself (CRUD, images, stock management) is owned elsewhere;
// the assistant only reads active products during knowledge refresh.
type Product struct {
	ID            uuid.UUID `db:"id"`
	Name          string    `db:"name"`
	Price         *float64  `db:"price"`
	Description   string    `db:"description"`
	Category      string    `db:"category"`
	Tags          []string  `db:"tags"`
	Brand         string    `db:"brand"`
	SKU           string    `db:"sku"`
	StockQuantity int       `db:"stock_quantity"`
	MainImage     string    `db:"main_image"`
	IsActive      bool      `db:"is_active"`
}

// ProductKnowledgeEntry is a product flattened into a searchable snapshot.
// Entries are rebuilt wholesale on every knowledge refresh and never
// mutated in place; the embedding vector lives in a parallel slice owned
// by the knowledge cache.
type ProductKnowledgeEntry struct {
	ID       uuid.UUID
	Name     string
	Price    *float64
	Category string
	Tags     []string
	Image    string
	Brand    string
	SKU      string
	Stock    int

	Description string

	// Context is the concatenated searchable text the entry was embedded from.
	Context string
}
