package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Category groups pizzas on the menu.
type Category string

const (
	CategoryTradicional Category = "tradicional"
	CategoryEspecial    Category = "especial"
	CategoryDoce        Category = "doce"
	CategoryVegetariana Category = "vegetariana"
)

// Valid reports whether c is one of the known menu categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryTradicional, CategoryEspecial, CategoryDoce, CategoryVegetariana:
		return true
	}
	return false
}

// Size is the pizza size.
type Size string

const (
	SizeP Size = "P"
	SizeM Size = "M"
	SizeG Size = "G"
)

// Valid reports whether s is a known size.
func (s Size) Valid() bool {
	return s == SizeP || s == SizeM || s == SizeG
}

// Prices holds per-size prices for a product.
type Prices struct {
	P decimal.Decimal `json:"P"`
	M decimal.Decimal `json:"M"`
	G decimal.Decimal `json:"G"`
}

// For returns the price for the given size.
func (p Prices) For(size Size) (decimal.Decimal, error) {
	switch size {
	case SizeP:
		return p.P, nil
	case SizeM:
		return p.M, nil
	case SizeG:
		return p.G, nil
	}
	return decimal.Zero, fmt.Errorf("unknown size %q", size)
}

// Product represents a pizza in the catalogue.
type Product struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Prices      Prices   `json:"prices"`
	Image       string   `json:"image,omitempty"`
	Category    Category `json:"category"`
	Ingredients []string `json:"ingredients"`
	Popular     bool     `json:"popular"`
}
