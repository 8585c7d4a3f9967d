package positions

import (
	"errors"

	"github.com/shopspring/decimal"
)

var errNonPositiveFill = errors.New("fill quantity and price must be positive")

// Position is the net holding of one symbol. A position that returns to zero
// is kept with a zero quantity so its realised P&L survives
type Position struct {
	Symbol      string          `json:"symbol"`
	Quantity    decimal.Decimal `json:"quantity"`
	AverageCost decimal.Decimal `json:"average-cost"`
	RealisedPNL decimal.Decimal `json:"realised-pnl"`
	Commission  decimal.Decimal `json:"commission"`
	FillCount   int             `json:"fill-count"`
}

// Delta describes how one fill changed a position
type Delta struct {
	Symbol           string          `json:"symbol"`
	PreviousQuantity decimal.Decimal `json:"previous-quantity"`
	Quantity         decimal.Decimal `json:"quantity"`
	PreviousAverage  decimal.Decimal `json:"previous-average"`
	AverageCost      decimal.Decimal `json:"average-cost"`
	// ClosedQuantity is the part of the fill that reduced the prior position
	ClosedQuantity decimal.Decimal `json:"closed-quantity"`
	RealisedPNL    decimal.Decimal `json:"realised-pnl"`
	Flipped        bool            `json:"flipped"`
}

// Manager owns every position of a single run
type Manager struct {
	positions map[string]*Position
}
