// Package cart holds the in-memory cart of a browsing session.
package cart

import (
	"sync"

	"pizzaria/internal/model"
	"pizzaria/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is an ordered collection of cart lines. All methods are safe for
// concurrent use; mutations are serialized.
type Store struct {
	mu    sync.Mutex
	lines []model.CartLine
}

// New creates an empty cart.
func New() *Store {
	return &Store{}
}

// Add puts quantity units of product into the cart. A line with the same
// product and customization gets its quantity incremented; otherwise a new
// line is appended.
func (s *Store) Add(product model.Product, c model.Customization, quantity int) (model.CartLine, error) {
	if quantity < 1 {
		return model.CartLine{}, model.ErrInvalidQuantity
	}
	unit, err := pricing.UnitPrice(product, c.Size, c.Border)
	if err != nil {
		return model.CartLine{}, model.ValidationError("%v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sig := c.Signature()
	for i := range s.lines {
		line := &s.lines[i]
		if line.Product.ID == product.ID && line.Customization.Signature() == sig {
			line.Quantity += quantity
			reprice(line)
			return *line, nil
		}
	}

	line := model.CartLine{
		ID:            uuid.New(),
		Product:       product,
		Customization: c,
		Quantity:      quantity,
		UnitPrice:     unit,
	}
	reprice(&line)
	s.lines = append(s.lines, line)
	return line, nil
}

// UpdateQuantity sets the quantity of a line. Zero removes the line.
func (s *Store) UpdateQuantity(id uuid.UUID, quantity int) error {
	if quantity < 0 {
		return model.ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if quantity == 0 {
		if i >= 0 {
			s.removeAt(i)
		}
		return nil
	}
	if i < 0 {
		return model.ErrCartLineNotFound
	}
	s.lines[i].Quantity = quantity
	reprice(&s.lines[i])
	return nil
}

// Remove drops a line. Removing an absent line is a no-op.
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.removeAt(i)
	}
}

// Withdraw takes quantity units off a line, removing it when none remain.
func (s *Store) Withdraw(id uuid.UUID, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return
	}
	if s.lines[i].Quantity <= quantity {
		s.removeAt(i)
		return
	}
	s.lines[i].Quantity -= quantity
	reprice(&s.lines[i])
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// Snapshot returns a copy of the lines in insertion order.
func (s *Store) Snapshot() []model.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Len returns the number of lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// Summary returns the lines with totals for the given fulfillment type.
func (s *Store) Summary(t model.FulfillmentType) (model.CartSummary, error) {
	lines := s.Snapshot()

	subtotal, err := pricing.Subtotal(lines)
	if err != nil {
		return model.CartSummary{}, err
	}
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	shortfall, free := pricing.FreeDeliveryShortfall(subtotal)
	fee := pricing.DeliveryFee(t)

	return model.CartSummary{
		Lines:        lines,
		ItemCount:    count,
		Subtotal:     subtotal,
		DeliveryFee:  fee,
		Total:        subtotal.Add(fee),
		FreeDelivery: free,
		Shortfall:    shortfall,
		Fulfillment:  t,
	}, nil
}

func (s *Store) indexOf(id uuid.UUID) int {
	for i := range s.lines {
		if s.lines[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) removeAt(i int) {
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
}

func reprice(line *model.CartLine) {
	line.LineTotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
}
