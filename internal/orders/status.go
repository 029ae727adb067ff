package orders

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusPaid     Status = "PAID"
	StatusFailed   Status = "FAILED"
	StatusCanceled Status = "CANCELED"
)

// PENDING is the only non-terminal state; nothing transitions out of a
// terminal state. Re-applying the same terminal status is treated as an
// idempotent no-op by the callers of CanTransition.
var validNext = map[Status]map[Status]bool{
	StatusPending:  {StatusPaid: true, StatusFailed: true, StatusCanceled: true},
	StatusPaid:     {},
	StatusFailed:   {},
	StatusCanceled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusCanceled
}
