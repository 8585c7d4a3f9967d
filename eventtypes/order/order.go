package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
)

var transitions = map[Status][]Status{
	New:             {Pending, PartiallyFilled, Filled, Rejected, Canceled},
	Pending:         {PartiallyFilled, Filled, Expired, Canceled},
	PartiallyFilled: {PartiallyFilled, Filled, Expired, Canceled},
}

// IsTerminal returns whether no further transition is possible
func (s Status) IsTerminal() bool {
	switch s {
	case Filled, Rejected, Expired, Canceled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is permitted
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition moves the order to next, stamping the update time
func (o *Order) Transition(next Status, at time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: order %d %s -> %s", ErrInvalidTransition, o.ID, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = at
	return nil
}

// Reject moves a new order to Rejected with a reason
func (o *Order) Reject(reason RejectionReason, at time.Time) error {
	if err := o.Transition(Rejected, at); err != nil {
		return err
	}
	o.Rejection = reason
	o.AppendReason(string(reason))
	return nil
}

// IsLive returns whether the order can still fill
func (o *Order) IsLive() bool {
	return o.Status == Pending || o.Status == PartiallyFilled
}

// Remaining returns the unfilled quantity
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// SignedQuantity returns the quantity signed by side, buys positive
func (o *Order) SignedQuantity() decimal.Decimal {
	if o.Side == common.Sell {
		return o.Quantity.Neg()
	}
	return o.Quantity
}
