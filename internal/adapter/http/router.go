package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/YelzhanWeb/campuseats/internal/adapter/logger"
	"github.com/YelzhanWeb/campuseats/internal/domain"
)

// Handlers groups everything the router mounts. Cart may be nil when no cart
// store is configured.
type Handlers struct {
	Cart     *CartHandler
	Orders   *OrderHandler
	Kitchen  *KitchenHandler
	Delivery *DeliveryHandler
}

func NewRouter(h Handlers, parser TokenParser, lgr logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RecoveryMiddleware(lgr))
	r.Use(LoggingMiddleware(lgr))
	r.Use(TracingMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(parser))

		r.Get("/orders/{orderID}", h.Orders.GetOrder)
		r.Get("/orders/{orderID}/history", h.Orders.GetOrderHistory)
		r.Get("/riders", h.Orders.RidersStatus)

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(domain.RoleCustomer))

			if h.Cart != nil {
				r.Get("/carts/{cartID}", h.Cart.Get)
				r.Delete("/carts/{cartID}", h.Cart.Clear)
				r.Post("/carts/{cartID}/items", h.Cart.AddItem)
				r.Patch("/carts/{cartID}/items/{itemID}", h.Cart.UpdateQuantity)
				r.Delete("/carts/{cartID}/items/{itemID}", h.Cart.RemoveItem)
			}

			r.Post("/orders", h.Orders.SubmitOrder)
			r.Get("/customers/me/orders", h.Orders.CustomerOrders)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(domain.RoleVendor))

			r.Get("/restaurants/{restaurantID}/orders", h.Kitchen.Queue)
			r.Get("/restaurants/{restaurantID}/orders/counts", h.Kitchen.Counts)
			r.Post("/orders/{orderID}/advance", h.Kitchen.Advance)
			r.Post("/orders/{orderID}/decline", h.Kitchen.Decline)
			r.Post("/orders/{orderID}/cancel", h.Kitchen.Cancel)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireRole(domain.RoleRider))

			r.Get("/deliveries/available", h.Delivery.Available)
			r.Get("/deliveries/mine", h.Delivery.Mine)
			r.Get("/deliveries/history", h.Delivery.History)
			r.Post("/orders/{orderID}/claim", h.Delivery.Claim)
			r.Post("/orders/{orderID}/pickup", h.Delivery.PickUp)
			r.Post("/orders/{orderID}/deliver", h.Delivery.Deliver)
			r.Post("/riders/me/online", h.Delivery.GoOnline)
			r.Post("/riders/me/offline", h.Delivery.GoOffline)
			r.Post("/riders/me/heartbeat", h.Delivery.Heartbeat)
		})
	})

	return r
}
