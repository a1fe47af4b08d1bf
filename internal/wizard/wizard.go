// Package wizard implements the order composition flow as an explicit state
// machine: customize, then delivery info, then summary, then confirm.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pizzaria/internal/model"
	"pizzaria/internal/pricing"

	"github.com/google/uuid"
)

// State is the current wizard step.
type State string

const (
	StateIdle         State = "idle"
	StateCustomizing  State = "customizing"
	StateDeliveryInfo State = "delivery_info"
	StateSummary      State = "summary"
	StateClosed       State = "closed"
)

// DeliveryFeeItemID identifies the delivery fee line sent to providers.
const DeliveryFeeItemID = "taxa-entrega"

// Cart is the part of the cart store the wizard commits lines to.
type Cart interface {
	Add(product model.Product, c model.Customization, quantity int) (model.CartLine, error)
	Withdraw(id uuid.UUID, quantity int)
	Snapshot() []model.CartLine
	Clear()
}

// Checkout creates a provider checkout session.
type Checkout interface {
	CreateCheckoutSession(ctx context.Context, req model.CheckoutRequest) (*model.CheckoutResult, error)
}

// committed remembers the line contributed by "finalize" so that committing
// again after going back replaces it instead of adding to it.
type committed struct {
	lineID   uuid.UUID
	quantity int
}

// Wizard holds one state value plus the payload of the flow.
// It is not safe for concurrent use; callers serialize events per session.
type Wizard struct {
	cart     Cart
	provider string

	state         State
	product       *model.Product
	customization model.Customization
	quantity      int
	delivery      model.DeliveryInfo
	committed     *committed
	submitting    bool
	result        *model.CheckoutResult
	warning       string
	lastError     string
}

// New creates a wizard in the Idle state committing to cart.
// provider selects the payment provider; empty means the service default.
func New(cart Cart, provider string) *Wizard {
	return &Wizard{
		cart:     cart,
		provider: provider,
		state:    StateIdle,
	}
}

// View is a read-only snapshot of the wizard.
type View struct {
	State         State                 `json:"state"`
	Product       *model.Product        `json:"product,omitempty"`
	Customization model.Customization   `json:"customization"`
	Quantity      int                   `json:"quantity"`
	Delivery      model.DeliveryInfo    `json:"delivery"`
	Submitting    bool                  `json:"submitting"`
	Result        *model.CheckoutResult `json:"result,omitempty"`
	Warning       string                `json:"warning,omitempty"`
	Error         string                `json:"error,omitempty"`
}

// State returns the current step.
func (w *Wizard) State() State {
	return w.state
}

// View returns a snapshot of the wizard.
func (w *Wizard) View() View {
	v := View{
		State:         w.state,
		Customization: w.customization,
		Quantity:      w.quantity,
		Delivery:      w.delivery,
		Submitting:    w.submitting,
		Result:        w.result,
		Warning:       w.warning,
		Error:         w.lastError,
	}
	if w.product != nil {
		p := *w.product
		v.Product = &p
	}
	if w.delivery.Address != nil {
		a := *w.delivery.Address
		v.Delivery.Address = &a
	}
	return v
}

// Open starts customizing product with default choices.
// Allowed from Idle and Closed.
func (w *Wizard) Open(product model.Product) error {
	if err := w.guard("open", StateIdle, StateClosed); err != nil {
		return err
	}
	w.reset()
	w.product = &product
	w.customization = model.DefaultCustomization()
	w.quantity = 1
	w.state = StateCustomizing
	return nil
}

// Customize replaces the in-progress customization and quantity.
func (w *Wizard) Customize(c model.Customization, quantity int) error {
	if err := w.guard("customize", StateCustomizing); err != nil {
		return err
	}
	if !c.Size.Valid() {
		return model.ValidationError("unknown size %q", c.Size)
	}
	if !c.Border.Valid() {
		return model.ValidationError("unknown border %q", c.Border)
	}
	if quantity < 1 {
		return model.ErrInvalidQuantity
	}
	c.Observations = strings.TrimSpace(c.Observations)
	w.customization = c
	w.quantity = quantity
	return nil
}

// AddToCart commits the customization as a cart line and returns to Idle.
func (w *Wizard) AddToCart() (model.CartLine, error) {
	if err := w.guard("add-to-cart", StateCustomizing); err != nil {
		return model.CartLine{}, err
	}
	w.withdrawCommitted()
	line, err := w.cart.Add(*w.product, w.customization, w.quantity)
	if err != nil {
		return model.CartLine{}, err
	}
	w.reset()
	w.state = StateIdle
	return line, nil
}

// Finalize commits the customization as a cart line and moves on to
// delivery info.
func (w *Wizard) Finalize() (model.CartLine, error) {
	if err := w.guard("finalize", StateCustomizing); err != nil {
		return model.CartLine{}, err
	}
	w.withdrawCommitted()
	line, err := w.cart.Add(*w.product, w.customization, w.quantity)
	if err != nil {
		return model.CartLine{}, err
	}
	w.committed = &committed{lineID: line.ID, quantity: w.quantity}
	w.state = StateDeliveryInfo
	return line, nil
}

// SetDelivery replaces the delivery info being edited.
func (w *Wizard) SetDelivery(info model.DeliveryInfo) error {
	if err := w.guard("set-delivery", StateDeliveryInfo); err != nil {
		return err
	}
	w.delivery = info
	return nil
}

// Continue moves to the summary once the delivery info is valid.
func (w *Wizard) Continue() error {
	if err := w.guard("continue", StateDeliveryInfo); err != nil {
		return err
	}
	if err := w.delivery.Validate(); err != nil {
		return err
	}
	w.state = StateSummary
	return nil
}

// Back returns to the previous step keeping all entered data.
func (w *Wizard) Back() error {
	if err := w.guard("back", StateDeliveryInfo, StateSummary); err != nil {
		return err
	}
	switch w.state {
	case StateDeliveryInfo:
		w.state = StateCustomizing
	case StateSummary:
		w.state = StateDeliveryInfo
	}
	return nil
}

// Cancel closes the wizard from any state and discards in-progress edits.
// Lines already committed to the cart stay there.
func (w *Wizard) Cancel() error {
	if w.submitting {
		return model.ErrCheckoutInFlight
	}
	w.reset()
	w.state = StateClosed
	return nil
}

// BeginConfirm marks a checkout as in flight and returns the request to
// submit. Every other event is rejected until FinishConfirm.
func (w *Wizard) BeginConfirm() (model.CheckoutRequest, error) {
	if err := w.guard("confirm", StateSummary); err != nil {
		return model.CheckoutRequest{}, err
	}
	if err := w.delivery.Validate(); err != nil {
		return model.CheckoutRequest{}, err
	}
	req := model.CheckoutRequest{
		Items:    LineItems(w.cart.Snapshot(), w.delivery.Type),
		Customer: w.delivery,
		Provider: w.provider,
	}
	w.submitting = true
	w.lastError = ""
	return req, nil
}

// FinishConfirm applies the outcome of a checkout started with BeginConfirm.
// On success the cart is cleared and the wizard closes. A persistence failure
// that still produced a redirect URL counts as success with a warning. Any
// other failure leaves the wizard on the summary with the cart untouched.
func (w *Wizard) FinishConfirm(result *model.CheckoutResult, err error) {
	w.submitting = false

	if err != nil && !(errors.Is(err, model.ErrPersistence) && result != nil && result.RedirectURL != "") {
		w.lastError = err.Error()
		return
	}

	w.cart.Clear()
	w.reset()
	w.result = result
	if err != nil {
		w.warning = err.Error()
	}
	w.state = StateClosed
}

// Confirm runs BeginConfirm, the checkout call and FinishConfirm in one step.
func (w *Wizard) Confirm(ctx context.Context, checkout Checkout) (*model.CheckoutResult, error) {
	req, err := w.BeginConfirm()
	if err != nil {
		return nil, err
	}
	result, err := checkout.CreateCheckoutSession(ctx, req)
	w.FinishConfirm(result, err)
	return result, err
}

// guard rejects events while a checkout is in flight or outside the allowed states.
func (w *Wizard) guard(event string, allowed ...State) error {
	if w.submitting {
		return model.ErrCheckoutInFlight
	}
	for _, s := range allowed {
		if w.state == s {
			return nil
		}
	}
	return model.InvalidStateError(event, string(w.state))
}

func (w *Wizard) withdrawCommitted() {
	if w.committed == nil {
		return
	}
	w.cart.Withdraw(w.committed.lineID, w.committed.quantity)
	w.committed = nil
}

func (w *Wizard) reset() {
	w.product = nil
	w.customization = model.Customization{}
	w.quantity = 0
	w.delivery = model.DeliveryInfo{}
	w.committed = nil
	w.result = nil
	w.warning = ""
	w.lastError = ""
}

// LineItems maps cart lines to provider line items with their unit prices
// snapshotted. Delivery adds the delivery fee as its own item.
func LineItems(lines []model.CartLine, t model.FulfillmentType) []model.LineItem {
	items := make([]model.LineItem, 0, len(lines)+1)
	for _, line := range lines {
		c := line.Customization
		items = append(items, model.LineItem{
			ID:           line.Product.ID,
			Title:        fmt.Sprintf("%s (%s)", line.Product.Name, c.Size),
			Description:  describe(c),
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			Currency:     "BRL",
			CategoryID:   string(line.Product.Category),
			Image:        line.Product.Image,
			Size:         c.Size,
			Border:       c.Border,
			Observations: c.Observations,
		})
	}
	if len(items) > 0 && t == model.FulfillmentEntrega {
		items = append(items, model.LineItem{
			ID:        DeliveryFeeItemID,
			Title:     "Taxa de entrega",
			Quantity:  1,
			UnitPrice: pricing.DeliveryFeeAmount,
			Currency:  "BRL",
		})
	}
	return items
}

func describe(c model.Customization) string {
	desc := "Borda " + string(c.Border)
	if c.Observations != "" {
		desc += " - " + c.Observations
	}
	return desc
}
