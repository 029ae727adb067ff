package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/morningroast/brewpass/internal/orders"
	"github.com/morningroast/brewpass/internal/redisx"
)

// OrderReader is the slice of the order repo the read endpoints need; tests
// substitute an in-memory implementation.
type OrderReader interface {
	ListByUser(ctx context.Context, userID int64) ([]orders.Order, error)
	OrderByID(ctx context.Context, userID int64, orderID string) (orders.Order, []orders.LineSnapshot, error)
}

type OrdersHandler struct {
	Orders OrderReader
	Redis  *redis.Client
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/{id}/status", h.status)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	out, err := h.Orders.ListByUser(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type orderView struct {
	orders.Order
	Items []orders.LineSnapshot `json:"items"`
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	o, items, err := h.Orders.OrderByID(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView{Order: o, Items: items})
}

// status serves the cached order status when fresh, falling back to the
// database and repopulating the cache.
func (h *OrdersHandler) status(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	orderID := chi.URLParam(r, "id")

	key := fmt.Sprintf(redisx.KeyOrderStatus, uid, orderID)
	if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s))
		return
	}

	o, _, err := h.Orders.OrderByID(r.Context(), uid, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	body, _ := json.Marshal(map[string]any{"status": o.Status})
	_ = h.Redis.Set(r.Context(), key, body, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
