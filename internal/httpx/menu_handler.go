package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/morningroast/brewpass/internal/fault"
	"github.com/morningroast/brewpass/internal/menu"
)

type MenuHandler struct {
	Menu *menu.Repo
}

func (h *MenuHandler) Register(r chi.Router) {
	r.Get("/menu", h.list)
	r.Get("/menu/{id}", h.item)
}

func (h *MenuHandler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.Menu.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *MenuHandler) item(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, fault.Invalid("invalid menu item id"))
		return
	}
	it, err := h.Menu.ItemByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}
