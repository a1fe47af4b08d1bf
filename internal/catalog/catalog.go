package catalog

import (
	"context"

	"pizzaria/internal/model"
)

// Catalog is the read-only product reference data.
type Catalog interface {
	// All returns every product in menu order.
	All() []model.Product

	// ByCategory returns the products of one category, or all of them for "" and "all".
	ByCategory(category string) ([]model.Product, error)

	// ByID returns a single product.
	ByID(id string) (model.Product, bool)

	// Size returns the number of products.
	Size() int
}

// Loader reads a catalog document.
type Loader interface {
	// Load reads the YAML catalog at path and returns a Catalog.
	Load(ctx context.Context, path string) (Catalog, error)
}
