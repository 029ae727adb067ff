package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/morningroast/brewpass/internal/fault"
	"github.com/morningroast/brewpass/internal/payments"
)

func reloadIntent(mutate func(*payments.Intent)) payments.Intent {
	i := payments.Intent{
		ID:                  "pi_reload",
		AmountCents:         2500,
		AmountReceivedCents: 2500,
		Currency:            "usd",
		Status:              payments.IntentSucceeded,
		Metadata: map[string]string{
			payments.MetaUserID:  "42",
			payments.MetaPurpose: payments.PurposeGiftCardReload,
		},
	}
	if mutate != nil {
		mutate(&i)
	}
	return i
}

func TestValidateReloadIntent(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*payments.Intent)
		wantKind fault.Kind
	}{
		{"valid", nil, fault.KindUnknown},
		{"wrong purpose", func(i *payments.Intent) {
			i.Metadata[payments.MetaPurpose] = payments.PurposeOrderCheckout
		}, fault.KindInvalid},
		{"wrong user", func(i *payments.Intent) {
			i.Metadata[payments.MetaUserID] = "7"
		}, fault.KindInvalid},
		{"not settled", func(i *payments.Intent) {
			i.Status = "requires_payment_method"
		}, fault.KindInvalid},
		{"amount mismatch", func(i *payments.Intent) {
			i.AmountReceivedCents = 2000
		}, fault.KindInvalid},
		{"zero settled amount", func(i *payments.Intent) {
			i.AmountCents, i.AmountReceivedCents = 0, 0
		}, fault.KindInvalid},
		{"wrong currency", func(i *payments.Intent) {
			i.Currency = "eur"
		}, fault.KindInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReloadIntent(reloadIntent(tt.mutate), 42, 2500, "usd")
			if tt.wantKind == fault.KindUnknown {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantKind, fault.KindOf(err))
			}
		})
	}
}

func TestValidateReloadIntentFallsBackToAuthorizedAmount(t *testing.T) {
	i := reloadIntent(func(i *payments.Intent) { i.AmountReceivedCents = 0 })
	assert.NoError(t, ValidateReloadIntent(i, 42, 2500, "usd"))
}

func TestReloadNoteEmbedsIntentID(t *testing.T) {
	assert.Equal(t, "Stripe reload pi_123", ReloadNote("pi_123"))
	assert.NotEqual(t, ReloadNote("pi_123"), ReloadNote("pi_124"))
}
