package portfolio

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/eventhandlers/portfolio/positions"
	"github.com/tickforge/backtester/eventtypes/fill"
)

var (
	// ErrNonMonotonicMark is returned when an equity sample is not later than the last one
	ErrNonMonotonicMark = errors.New("equity curve timestamps must be strictly increasing")

	errNegativeFunds = errors.New("initial funds cannot be negative")
	errNoPrice       = errors.New("no price recorded for symbol")
)

// EquitySample is one point of the equity curve
type EquitySample struct {
	Time      time.Time       `json:"time"`
	Equity    decimal.Decimal `json:"equity"`
	Cash      decimal.Decimal `json:"cash"`
	Gross     decimal.Decimal `json:"gross-exposure"`
	Exposure  decimal.Decimal `json:"exposure"`
	Leveraged bool            `json:"leveraged"`
}

// Trade is a fill as it landed in the ledger
type Trade struct {
	fill.Fill
	RealisedPNL decimal.Decimal `json:"realised-pnl"`
	// Closing is set when the fill reduced an existing position
	Closing       bool            `json:"closing"`
	PositionAfter decimal.Decimal `json:"position-after"`
	CashAfter     decimal.Decimal `json:"cash-after"`
}

// PositionSnapshot is a position valued at its latest close
type PositionSnapshot struct {
	positions.Position
	Close         decimal.Decimal `json:"close"`
	CloseTime     time.Time       `json:"close-time"`
	MarketValue   decimal.Decimal `json:"market-value"`
	UnrealisedPNL decimal.Decimal `json:"unrealised-pnl"`
	// Stale is set when the symbol had no bar at the snapshot time
	Stale bool `json:"stale"`
}

// Snapshot is a read-only view of the portfolio handed to the risk manager
// and sizer
type Snapshot struct {
	Time       time.Time                   `json:"time"`
	Cash       decimal.Decimal             `json:"cash"`
	Equity     decimal.Decimal             `json:"equity"`
	PeakEquity decimal.Decimal             `json:"peak-equity"`
	Gross      decimal.Decimal             `json:"gross-exposure"`
	Exposure   decimal.Decimal             `json:"exposure"`
	Leveraged  bool                        `json:"leveraged"`
	Positions  map[string]PositionSnapshot `json:"positions"`
	Prices     map[string]decimal.Decimal  `json:"prices"`
}

type price struct {
	close decimal.Decimal
	time  time.Time
}

// Portfolio holds cash and positions for one run and records the equity
// curve. The backtest driver is its only mutator
type Portfolio struct {
	initialFunds decimal.Decimal
	cash         decimal.Decimal
	positions    *positions.Manager
	prices       map[string]price
	currentTime  time.Time
	peak         decimal.Decimal
	curve        []EquitySample
	trades       []Trade
}
