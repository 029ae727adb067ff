package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	terminals := []Status{StatusPaid, StatusFailed, StatusCanceled}

	for _, to := range terminals {
		assert.True(t, CanTransition(StatusPending, to), "PENDING -> %s", to)
	}

	for _, from := range terminals {
		assert.True(t, from.Terminal())
		for _, to := range []Status{StatusPending, StatusPaid, StatusFailed, StatusCanceled} {
			assert.False(t, CanTransition(from, to), "%s -> %s must be blocked", from, to)
		}
	}

	assert.False(t, StatusPending.Terminal())
	assert.False(t, CanTransition(StatusPending, StatusPending))
}
