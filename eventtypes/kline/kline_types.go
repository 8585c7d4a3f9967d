package kline

import (
	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/eventtypes/event"
)

// Kline holds one OHLCV bar for a symbol at a timestamp
type Kline struct {
	event.Base
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}
