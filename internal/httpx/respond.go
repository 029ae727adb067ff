package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/morningroast/brewpass/internal/fault"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func statusForKind(k fault.Kind) int {
	switch k {
	case fault.KindNotFound:
		return http.StatusNotFound
	case fault.KindInvalid, fault.KindSignature:
		return http.StatusBadRequest
	case fault.KindInsufficientFunds, fault.KindInsufficientCredit:
		return http.StatusPaymentRequired
	case fault.KindConflict:
		return http.StatusConflict
	case fault.KindProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a fault kind to a status and exposes only the curated
// message, never the wrapped provider or database error.
func writeError(w http.ResponseWriter, err error) {
	var fe *fault.Error
	if errors.As(err, &fe) {
		writeJSON(w, statusForKind(fe.Kind), errorBody{Kind: fe.Kind.String(), Error: fe.Msg})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Kind: "internal", Error: "internal error"})
}
