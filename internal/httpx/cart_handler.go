package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/morningroast/brewpass/internal/cart"
	"github.com/morningroast/brewpass/internal/fault"
)

type CartHandler struct {
	Cart *cart.Repo
}

func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.get)
	r.Post("/cart/items", h.addItem)
	r.Patch("/cart/items/{id}", h.updateQuantity)
	r.Delete("/cart/items/{id}", h.removeItem)
	r.Delete("/cart", h.clear)
	r.Post("/cart/items/{id}/free-drink", h.toggleFreeDrink)
}

func lineID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, fault.Invalid("invalid cart item id"))
		return 0, false
	}
	return id, true
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	lines, err := h.Cart.Lines(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

type addItemReq struct {
	MenuItemID    int64           `json:"menu_item_id"`
	Quantity      int             `json:"quantity"`
	MilkOption    cart.MilkOption `json:"milk_option"`
	EspressoShots int             `json:"espresso_shots"`
	FlavorName    string          `json:"flavor_name"`
	FlavorPumps   int             `json:"flavor_pumps"`
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fault.Invalid("invalid json"))
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	lines, err := h.Cart.AddItem(r.Context(), uid, req.MenuItemID, req.Quantity, cart.Customization{
		MilkOption:    req.MilkOption,
		EspressoShots: req.EspressoShots,
		FlavorName:    req.FlavorName,
		FlavorPumps:   req.FlavorPumps,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := lineID(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fault.Invalid("invalid json"))
		return
	}
	lines, err := h.Cart.UpdateQuantity(r.Context(), uid, id, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := lineID(w, r)
	if !ok {
		return
	}
	lines, err := h.Cart.RemoveItem(r.Context(), uid, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	lines, err := h.Cart.Clear(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}

func (h *CartHandler) toggleFreeDrink(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	id, ok := lineID(w, r)
	if !ok {
		return
	}
	var req struct {
		IsFreeDrink bool `json:"is_free_drink"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fault.Invalid("invalid json"))
		return
	}
	lines, err := h.Cart.ToggleFreeDrink(r.Context(), uid, id, req.IsFreeDrink)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lines)
}
