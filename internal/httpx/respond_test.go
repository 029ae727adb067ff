package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morningroast/brewpass/internal/fault"
)

func TestWriteErrorMapsKinds(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantKind   string
	}{
		{fault.NotFound("order not found"), http.StatusNotFound, "not_found"},
		{fault.Invalid("quantity must be at least 1"), http.StatusBadRequest, "invalid_request"},
		{fault.InsufficientFunds("balance too low"), http.StatusPaymentRequired, "insufficient_funds"},
		{fault.InsufficientCredit("no free drinks"), http.StatusPaymentRequired, "insufficient_credit"},
		{fault.Conflict("already processed"), http.StatusConflict, "conflict"},
		{fault.Provider(errors.New("boom"), "try again"), http.StatusBadGateway, "provider_error"},
		{fault.Signature(errors.New("bad sig"), "invalid signature"), http.StatusBadRequest, "signature_invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.wantKind, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)
			assert.Equal(t, tt.wantStatus, rr.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Kind)
		})
	}
}

// Wrapped causes (provider or database detail) must never reach the client.
func TestWriteErrorHidesCause(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, fault.Provider(errors.New("stripe: secret detail"), "unable to start checkout, please try again"))
	assert.NotContains(t, rr.Body.String(), "secret detail")
	assert.Contains(t, rr.Body.String(), "unable to start checkout")
}

func TestWriteErrorUnknown(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, errors.New("pq: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "pq:")
}
