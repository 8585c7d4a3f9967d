package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickforge/backtester/common"
)

func TestStatusTransitions(t *testing.T) {
	t.Parallel()
	all := []Status{New, Pending, PartiallyFilled, Filled, Rejected, Expired, Canceled}
	allowed := map[Status]map[Status]bool{
		New:             {Pending: true, PartiallyFilled: true, Filled: true, Rejected: true, Canceled: true},
		Pending:         {PartiallyFilled: true, Filled: true, Expired: true, Canceled: true},
		PartiallyFilled: {PartiallyFilled: true, Filled: true, Expired: true, Canceled: true},
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equalf(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()
	for _, s := range []Status{Filled, Rejected, Expired, Canceled} {
		assert.True(t, s.IsTerminal(), s)
		for _, next := range []Status{New, Pending, PartiallyFilled, Filled, Rejected, Expired, Canceled} {
			assert.False(t, s.CanTransitionTo(next), "terminal %s must not move to %s", s, next)
		}
	}
	for _, s := range []Status{New, Pending, PartiallyFilled} {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestTransition(t *testing.T) {
	t.Parallel()
	at := time.Unix(1700000000, 0)
	o := &Order{ID: 1, Status: New}
	require.NoError(t, o.Transition(Pending, at))
	assert.Equal(t, Pending, o.Status)
	assert.Equal(t, at, o.UpdatedAt)
	assert.True(t, o.IsLive())

	require.NoError(t, o.Transition(Expired, at.Add(time.Hour)))
	assert.False(t, o.IsLive())
	err := o.Transition(Filled, at)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, Expired, o.Status, "failed transition must not change status")
}

func TestReject(t *testing.T) {
	t.Parallel()
	o := &Order{ID: 2, Status: New}
	require.NoError(t, o.Reject(InsufficientFunds, time.Time{}))
	assert.Equal(t, Rejected, o.Status)
	assert.Equal(t, InsufficientFunds, o.Rejection)
	assert.Equal(t, "InsufficientFunds", o.Reason)

	o = &Order{ID: 3, Status: Pending}
	assert.ErrorIs(t, o.Reject(InsufficientFunds, time.Time{}), ErrInvalidTransition)
	assert.Empty(t, o.Rejection)
}

func TestRemainingAndSignedQuantity(t *testing.T) {
	t.Parallel()
	o := &Order{Side: common.Sell, Quantity: decimal.NewFromInt(10), FilledQuantity: decimal.NewFromInt(4)}
	assert.True(t, o.Remaining().Equal(decimal.NewFromInt(6)))
	assert.True(t, o.SignedQuantity().Equal(decimal.NewFromInt(-10)))
	o.Side = common.Buy
	assert.True(t, o.SignedQuantity().Equal(decimal.NewFromInt(10)))
}
