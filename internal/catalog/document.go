package catalog

import (
	"fmt"
	"io"

	"pizzaria/internal/model"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// document is the YAML layout of a catalog file. Prices are quoted strings
// so they are parsed as exact decimals.
type document struct {
	Products []productDoc `yaml:"products"`
}

type productDoc struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Prices      map[string]string `yaml:"prices"`
	Image       string            `yaml:"image"`
	Category    string            `yaml:"category"`
	Ingredients []string          `yaml:"ingredients"`
	Popular     bool              `yaml:"popular"`
}

// Parse decodes and validates a YAML catalog.
func Parse(r io.Reader) (Catalog, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if len(doc.Products) == 0 {
		return nil, fmt.Errorf("catalog has no products")
	}

	products := make([]model.Product, 0, len(doc.Products))
	for i, pd := range doc.Products {
		p, err := pd.toProduct()
		if err != nil {
			return nil, fmt.Errorf("product %d (%s): %w", i, pd.ID, err)
		}
		products = append(products, p)
	}

	return NewMemCatalog(products)
}

func (pd productDoc) toProduct() (model.Product, error) {
	if pd.ID == "" {
		return model.Product{}, fmt.Errorf("id is required")
	}
	if pd.Name == "" {
		return model.Product{}, fmt.Errorf("name is required")
	}
	category := model.Category(pd.Category)
	if !category.Valid() {
		return model.Product{}, fmt.Errorf("invalid category %q", pd.Category)
	}

	var prices model.Prices
	for _, size := range []model.Size{model.SizeP, model.SizeM, model.SizeG} {
		raw, ok := pd.Prices[string(size)]
		if !ok {
			return model.Product{}, fmt.Errorf("missing price for size %s", size)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return model.Product{}, fmt.Errorf("invalid price for size %s: %w", size, err)
		}
		if amount.IsNegative() {
			return model.Product{}, fmt.Errorf("negative price for size %s", size)
		}
		switch size {
		case model.SizeP:
			prices.P = amount
		case model.SizeM:
			prices.M = amount
		case model.SizeG:
			prices.G = amount
		}
	}

	return model.Product{
		ID:          pd.ID,
		Name:        pd.Name,
		Description: pd.Description,
		Prices:      prices,
		Image:       pd.Image,
		Category:    category,
		Ingredients: pd.Ingredients,
		Popular:     pd.Popular,
	}, nil
}
