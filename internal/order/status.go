package order

// Status is the order lifecycle state. Orders are never deleted, only
// transitioned, so the history of failed attempts stays auditable.
type Status string

const (
	StatusPending         Status = "pending"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusCancelled       Status = "cancelled"
	StatusFailed          Status = "failed"
)

func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled || s == StatusFailed
}

func (s Status) String() string {
	return string(s)
}

var transitions = map[Status][]Status{
	StatusPending:         {StatusAwaitingPayment, StatusFailed},
	StatusAwaitingPayment: {StatusPaid, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
