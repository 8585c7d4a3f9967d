package fill

import (
	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventtypes/event"
)

// Fill is an immutable record of an executed quantity of an order
type Fill struct {
	event.Base
	OrderID    int64           `json:"order-id"`
	Side       common.Side     `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	ClosePrice decimal.Decimal `json:"close-price"`
	// Slippage is the absolute per-unit price difference from the reference price
	Slippage    decimal.Decimal `json:"slippage"`
	Commission  decimal.Decimal `json:"commission"`
	ForcedClose bool            `json:"forced-close,omitempty"`
}
