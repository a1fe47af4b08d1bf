package model

// FulfillmentType selects pickup or home delivery.
type FulfillmentType string

const (
	FulfillmentRetirada FulfillmentType = "retirada"
	FulfillmentEntrega  FulfillmentType = "entrega"
)

// Valid reports whether t is a known fulfillment type.
func (t FulfillmentType) Valid() bool {
	return t == FulfillmentRetirada || t == FulfillmentEntrega
}

// Address is a Brazilian street address.
type Address struct {
	Street       string `json:"street" validate:"required"`
	Number       string `json:"number" validate:"required"`
	Neighborhood string `json:"neighborhood" validate:"required"`
	Complement   string `json:"complement,omitempty"`
	City         string `json:"city" validate:"required"`
	PostalCode   string `json:"postalCode" validate:"required"`
	State        string `json:"state,omitempty"`
}

// DeliveryInfo is the customer and fulfillment data collected before checkout.
type DeliveryInfo struct {
	Type    FulfillmentType `json:"type" validate:"required,oneof=retirada entrega"`
	Name    string          `json:"name" validate:"required"`
	Phone   string          `json:"phone" validate:"required"`
	Email   string          `json:"email" validate:"required,email"`
	Address *Address        `json:"address,omitempty" validate:"-"`
}

// LookupResult is a resolved postal code.
type LookupResult struct {
	PostalCode   string `json:"postalCode"`
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}
