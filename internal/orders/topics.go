package orders

const (
	// Terminal settlements and reloads, published by the API.
	TopicOrderSettled = "order.settled"

	// Provider payment events bridged onto Kafka; the reconciler binary
	// consumes this as a second delivery path next to the HTTP webhook.
	TopicPaymentEvents = "payments.events"
)

// Partition key keeps all events for one intent in order.
func PartitionKey(intentID string) []byte { return []byte(intentID) }
