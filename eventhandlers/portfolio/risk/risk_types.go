package risk

import (
	"errors"

	"github.com/shopspring/decimal"
)

// VetoReason names the limit an order would breach
type VetoReason string

// Veto reasons
const (
	PositionLimitExceeded VetoReason = "PositionLimitExceeded"
	ExposureLimitExceeded VetoReason = "ExposureLimitExceeded"
	DrawdownLimitExceeded VetoReason = "DrawdownLimitExceeded"
)

// Forced close reasons
const (
	StopLossTriggered   = "stop loss triggered"
	DrawdownLiquidation = "drawdown liquidation"
)

var errNoPrice = errors.New("no price available to assess order")

// Limits is the risk configuration of a run. A zero value disables that check
type Limits struct {
	MaxPositionNotional decimal.Decimal `json:"max-position-notional"`
	// MaxGrossExposure is gross notional divided by equity
	MaxGrossExposure    decimal.Decimal `json:"max-gross-exposure"`
	MaxDrawdownFraction decimal.Decimal `json:"max-drawdown-fraction"`
	StopLossFraction    decimal.Decimal `json:"stop-loss-fraction"`
}

// Decision is the outcome of a pre-trade check
type Decision struct {
	Allowed bool       `json:"allowed"`
	Reason  VetoReason `json:"reason,omitempty"`
	Detail  string     `json:"detail,omitempty"`
}

// Risk is the risk manager of one run. It is stateful only in remembering a
// drawdown breach until the liquidation is swept
type Risk struct {
	limits           Limits
	liquidatePending bool
}
