package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Cancelling the start context and then closing must not double-close the
// inbox.
func TestProducerCloseAfterContextCancel(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:9092"}, "order.settled", 8)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	assert.NotPanics(t, func() {
		p.Close()
		p.WaitClosed()
	})
}

func TestProducerCloseDrainsAndStops(t *testing.T) {
	p := NewProducer([]string{"127.0.0.1:9092"}, "order.settled", 8)
	p.Start(context.Background())

	assert.NotPanics(t, func() {
		p.Close()
		p.WaitClosed()
	})
}
