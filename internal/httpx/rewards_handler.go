package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/morningroast/brewpass/internal/fault"
	"github.com/morningroast/brewpass/internal/ledger"
	"github.com/morningroast/brewpass/internal/orders"
)

type RewardsHandler struct {
	Ledger     *ledger.Repo
	Settlement *orders.Settlement
}

func (h *RewardsHandler) Register(r chi.Router) {
	r.Get("/rewards", h.summary)
	r.Post("/rewards/refill", h.refill)
}

func (h *RewardsHandler) summary(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	s, err := h.Ledger.Summary(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type refillReq struct {
	AmountCents     int64  `json:"amount_cents"`
	PaymentIntentID string `json:"payment_intent_id"`
}

func (h *RewardsHandler) refill(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req refillReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fault.Invalid("invalid json"))
		return
	}
	if req.PaymentIntentID == "" {
		writeError(w, fault.Invalid("payment_intent_id is required"))
		return
	}
	s, err := h.Settlement.ReloadGiftCard(r.Context(), uid, req.AmountCents, req.PaymentIntentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
