package catalog

import (
	"fmt"

	"pizzaria/internal/model"
)

// memCatalog implements Catalog over an ordered slice with an id index.
type memCatalog struct {
	products []model.Product
	byID     map[string]int
}

// NewMemCatalog creates a catalog from products, keeping their order.
// Product ids must be unique.
func NewMemCatalog(products []model.Product) (Catalog, error) {
	c := &memCatalog{
		products: make([]model.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		if _, exists := c.byID[p.ID]; exists {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

// All returns a copy of every product.
func (c *memCatalog) All() []model.Product {
	out := make([]model.Product, len(c.products))
	copy(out, c.products)
	return out
}

// ByCategory filters products by category.
func (c *memCatalog) ByCategory(category string) ([]model.Product, error) {
	if category == "" || category == "all" {
		return c.All(), nil
	}
	cat := model.Category(category)
	if !cat.Valid() {
		return nil, model.ValidationError("unknown category %q", category)
	}
	out := make([]model.Product, 0)
	for _, p := range c.products {
		if p.Category == cat {
			out = append(out, p)
		}
	}
	return out, nil
}

// ByID looks up a product.
func (c *memCatalog) ByID(id string) (model.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Product{}, false
	}
	return c.products[i], true
}

// Size returns the number of products.
func (c *memCatalog) Size() int {
	return len(c.products)
}
