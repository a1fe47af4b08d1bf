package router

import (
	"net/http"

	"pizzaria/internal/handler"
	"pizzaria/internal/metrics"
	"pizzaria/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Products *handler.ProductHandler
	Sessions *handler.SessionHandler
	Checkout *handler.CheckoutHandler
	Orders   *handler.OrderHandler
	Address  *handler.AddressHandler
}

// New creates a new HTTP router with all routes and middleware configured.
// Only the /api/admin routes require the API key. m may be nil, in which
// case no request metrics are recorded and /metrics is not served.
func New(h Handlers, apiKey string, m *metrics.Metrics, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware order: Recovery -> Logging -> Metrics -> CORS
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	if m != nil {
		r.Use(middleware.Metrics(m))
	}
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	})
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.Products.List)
		r.Get("/products/{id}", h.Products.GetByID)

		r.Post("/sessions", h.Sessions.Create)
		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Get("/", h.Sessions.Get)

			r.Get("/cart", h.Sessions.Cart)
			r.Delete("/cart", h.Sessions.ClearCart)
			r.Post("/cart/items", h.Sessions.AddItem)
			r.Patch("/cart/items/{lineId}", h.Sessions.UpdateItem)
			r.Delete("/cart/items/{lineId}", h.Sessions.RemoveItem)

			r.Route("/wizard", func(r chi.Router) {
				r.Get("/", h.Sessions.Wizard)
				r.Post("/open", h.Sessions.Open)
				r.Put("/customization", h.Sessions.Customize)
				r.Post("/add-to-cart", h.Sessions.AddToCart)
				r.Post("/finalize", h.Sessions.Finalize)
				r.Put("/delivery", h.Sessions.SetDelivery)
				r.Post("/continue", h.Sessions.Continue)
				r.Post("/back", h.Sessions.Back)
				r.Post("/cancel", h.Sessions.Cancel)
				r.Post("/confirm", h.Sessions.Confirm)
			})
		})

		r.Post("/mercado-pago/create-checkout", h.Checkout.CreatePreference)
		r.Post("/mercado-pago/webhook", h.Checkout.PaymentWebhook)
		r.Post("/create-payment", h.Checkout.CreatePayment)

		r.Get("/cep/{cep}", h.Address.Lookup)
		r.Get("/orders/by-session/{sessionId}", h.Orders.GetBySession)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.APIKeyAuth(apiKey, logger))
			r.Get("/orders", h.Orders.List)
			r.Get("/orders/stream", h.Orders.Stream)
			r.Post("/orders/{id}/advance", h.Orders.Advance)
		})
	})

	return r
}
