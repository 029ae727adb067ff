package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderSettled     = "OrderSettled"
	EventGiftCardReloaded = "GiftCardReloaded"
	EventPaymentNotice    = "PaymentNotice"
)

// Envelope wraps every event published to or consumed from Kafka.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// OrderSettledPayload announces a terminal status for an order.
type OrderSettledPayload struct {
	OrderID            string `json:"order_id"`
	UserID             int64  `json:"user_id"`
	Status             Status `json:"status"`
	AmountCents        int64  `json:"amount_cents"`
	FreeDrinksRedeemed int    `json:"free_drinks_redeemed"`
}

type GiftCardReloadedPayload struct {
	UserID       int64  `json:"user_id"`
	AmountCents  int64  `json:"amount_cents"`
	PointsEarned int    `json:"points_earned"`
	IntentID     string `json:"intent_id"`
}
