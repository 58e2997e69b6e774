package orders

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Every status except cancelled holds stock; moving between them has no stock effect.
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true, StatusShipped: true, StatusDelivered: true, StatusCompleted: true, StatusCancelled: true},
	StatusProcessing: {StatusPending: true, StatusShipped: true, StatusDelivered: true, StatusCompleted: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true, StatusCompleted: true, StatusCancelled: true},
	StatusDelivered:  {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:  {StatusCancelled: true},
	StatusCancelled:  {StatusPending: true, StatusProcessing: true, StatusShipped: true, StatusDelivered: true, StatusCompleted: true},
}

// AllStatuses lists the closed set in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCompleted, StatusCancelled}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validNext[st]; !ok {
		return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
	}
	return st, nil
}

// CanTransition reports whether from -> to is allowed. Staying in the same
// status is always allowed and is a no-op.
func CanTransition(from, to Status) bool {
	if from == to {
		_, ok := validNext[from]
		return ok
	}
	return validNext[from][to]
}

func (s Status) Cancelled() bool { return s == StatusCancelled }

// StockAction is the compensation a transition applies to the order's lines.
type StockAction string

const (
	StockNone    StockAction = "none"
	StockRestore StockAction = "restore"
	StockReduce  StockAction = "reduce"
)

func CompensationFor(from, to Status) StockAction {
	switch {
	case from == to:
		return StockNone
	case to.Cancelled():
		return StockRestore
	case from.Cancelled():
		return StockReduce
	default:
		return StockNone
	}
}
