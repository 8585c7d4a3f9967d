package signal

import (
	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventtypes/event"
)

// Signal is a trade intent for one symbol at one bar timestamp.
// Exactly one of Quantity, TargetWeight or Strength drives sizing,
// checked in that order
type Signal struct {
	event.Base
	Direction common.Direction `json:"direction"`
	// Strength is the conviction in [0,1]. Unset is full strength, zero
	// asks for no trade
	Strength decimal.NullDecimal `json:"strength"`
	// TargetWeight is the desired signed fraction of equity in [-1,1]
	TargetWeight decimal.NullDecimal `json:"target-weight"`
	// Quantity is the desired absolute position size
	Quantity decimal.NullDecimal `json:"quantity"`
	// LimitPrice turns the resulting order into a limit order when positive
	LimitPrice decimal.Decimal `json:"limit-price"`
}
