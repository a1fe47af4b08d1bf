package service

import (
	"context"

	"pizzaria/internal/catalog"
	"pizzaria/internal/model"

	"github.com/rs/zerolog"
)

// productService implements ProductService.
type productService struct {
	catalog catalog.Catalog
	logger  zerolog.Logger
}

// NewProductService creates a new product service over a loaded catalog.
func NewProductService(c catalog.Catalog, logger zerolog.Logger) ProductService {
	return &productService{
		catalog: c,
		logger:  logger.With().Str("service", "product").Logger(),
	}
}

// List returns the products of a category in menu order.
func (s *productService) List(ctx context.Context, category string) ([]model.Product, error) {
	products, err := s.catalog.ByCategory(category)
	if err != nil {
		s.logger.Debug().Str("category", category).Err(err).Msg("invalid category filter")
		return nil, err
	}

	s.logger.Debug().
		Str("category", category).
		Int("count", len(products)).
		Msg("listed products")

	return products, nil
}

// GetByID retrieves a single product by ID.
func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	if id == "" {
		s.logger.Warn().Msg("product ID is empty")
		return nil, model.ErrProductNotFound
	}

	product, ok := s.catalog.ByID(id)
	if !ok {
		s.logger.Debug().Str("product_id", id).Msg("product not found")
		return nil, model.ErrProductNotFound
	}

	return &product, nil
}
