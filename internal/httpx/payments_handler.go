package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/morningroast/brewpass/internal/fault"
	"github.com/morningroast/brewpass/internal/orders"
	"github.com/morningroast/brewpass/internal/payments"
)

type PaymentsHandler struct {
	Settlement *orders.Settlement
	Provider   payments.Provider
	Reconciler *orders.Reconciler
	Log        zerolog.Logger
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Post("/payments/create-intent", h.createIntent)
	r.Post("/payments/gift-card-intent", h.createReloadIntent)
	r.Post("/payments/gift-card-checkout", h.giftCardCheckout)
	r.Post("/payments/free-checkout", h.freeCheckout)
	r.Post("/payments/complete", h.complete)
}

// RegisterWebhook mounts the unauthenticated provider callback.
func (h *PaymentsHandler) RegisterWebhook(r chi.Router) {
	r.Post("/payments/webhook", h.webhook)
}

func (h *PaymentsHandler) createIntent(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	intent, err := h.Settlement.CreateCheckoutIntent(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (h *PaymentsHandler) createReloadIntent(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req struct {
		AmountCents int64 `json:"amount_cents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fault.Invalid("invalid json"))
		return
	}
	intent, err := h.Settlement.CreateReloadIntent(r.Context(), uid, req.AmountCents)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (h *PaymentsHandler) giftCardCheckout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	o, err := h.Settlement.GiftCardCheckout(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *PaymentsHandler) freeCheckout(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	o, err := h.Settlement.FreeCheckout(r.Context(), uid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *PaymentsHandler) complete(w http.ResponseWriter, r *http.Request) {
	uid, ok := mustUserID(w, r)
	if !ok {
		return
	}
	var req struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fault.Invalid("invalid json"))
		return
	}
	if req.PaymentIntentID == "" {
		writeError(w, fault.Invalid("payment_intent_id is required"))
		return
	}
	o, err := h.Settlement.ConfirmCardPayment(r.Context(), uid, req.PaymentIntentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// webhook acknowledges every verifiable delivery; only a bad signature or a
// transient infrastructure failure changes the response code. Duplicate or
// non-actionable events are absorbed by the reconciler.
func (h *PaymentsHandler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, fault.Invalid("unreadable payload"))
		return
	}

	ev, err := h.Provider.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		var fe *fault.Error
		if errors.As(err, &fe) && fe.Kind == fault.KindSignature {
			h.Log.Warn().Err(err).Msg("webhook signature verification failed")
		}
		writeError(w, err)
		return
	}

	if err := h.Reconciler.HandleEvent(r.Context(), ev); err != nil {
		h.Log.Error().Err(err).Str("event_id", ev.ID).Msg("webhook processing failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Kind: "internal", Error: "temporary failure"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
