// Package payment adapts external payment providers to one capability:
// creating a checkout session that the customer is redirected to.
package payment

import (
	"context"
	"sort"

	"pizzaria/internal/model"

	"github.com/google/uuid"
)

// Provider names.
const (
	ProviderStripe      = "stripe"
	ProviderMercadoPago = "mercadopago"
)

// SessionRequest is the provider-neutral input of a checkout session.
type SessionRequest struct {
	OrderID        uuid.UUID
	Items          []model.LineItem
	Customer       model.DeliveryInfo
	Reference      string
	IdempotencyKey string
}

// SessionResult is the provider session the customer is sent to.
type SessionResult struct {
	SessionID   string
	RedirectURL string
}

// Provider creates checkout sessions with one payment provider.
type Provider interface {
	// Name returns the registry name of the provider.
	Name() string

	// CreateSession performs the single network round-trip to the provider.
	CreateSession(ctx context.Context, req SessionRequest) (*SessionResult, error)
}

// Registry selects a provider by name.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry creates a registry whose empty-name lookups resolve to defaultName.
func NewRegistry(defaultName string, providers ...Provider) *Registry {
	r := &Registry{
		providers:   make(map[string]Provider, len(providers)),
		defaultName: defaultName,
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the named provider, or the default one for an empty name.
// Unknown providers fail with a not-configured error.
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, model.ProviderNotConfiguredError(name)
	}
	return p, nil
}

// Names lists the registered providers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
