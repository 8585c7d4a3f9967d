package statistics

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	errReceivedNoData      = errors.New("received no data")
	errInvalidTicksPerYear = errors.New("ticks per year must be positive")
)

// Settings are the constants the analyser needs besides the run log
type Settings struct {
	TicksPerYear decimal.Decimal `json:"ticks-per-year"`
	// RiskFreeRate is annual and spread evenly across ticks
	RiskFreeRate decimal.Decimal `json:"risk-free-rate"`
	// InitialFunds is the equity before the first sample. When zero the
	// first sample is used
	InitialFunds decimal.Decimal `json:"initial-funds"`
}

// ValueAtTime is an equity value and when it was recorded
type ValueAtTime struct {
	Time  time.Time       `json:"time"`
	Value decimal.Decimal `json:"value"`
}

// Swing is a peak to trough movement of equity
type Swing struct {
	Highest  ValueAtTime     `json:"highest"`
	Lowest   ValueAtTime     `json:"lowest"`
	Fraction decimal.Decimal `json:"fraction"`
	// Ticks is the number of samples between peak and trough
	Ticks int64 `json:"ticks"`
}

// OrderCounts tallies orders by outcome
type OrderCounts struct {
	Total           int64 `json:"total"`
	Buy             int64 `json:"buy"`
	Sell            int64 `json:"sell"`
	Filled          int64 `json:"filled"`
	PartiallyFilled int64 `json:"partially-filled"`
	Rejected        int64 `json:"rejected"`
	Expired         int64 `json:"expired"`
	Canceled        int64 `json:"canceled"`
	ForcedCloses    int64 `json:"forced-closes"`
}

// Metrics is the performance summary of a run
type Metrics struct {
	StartDate     time.Time       `json:"start-date"`
	EndDate       time.Time       `json:"end-date"`
	Samples       int             `json:"samples"`
	InitialEquity decimal.Decimal `json:"initial-equity"`
	FinalEquity   decimal.Decimal `json:"final-equity"`
	TotalReturn   decimal.Decimal `json:"total-return"`
	// AnnualisedReturn is the compound annual growth rate as a fraction
	AnnualisedReturn float64 `json:"annualised-return"`
	MaxDrawdown      Swing   `json:"max-drawdown"`
	SharpeRatio      float64 `json:"sharpe-ratio"`
	SortinoRatio     float64 `json:"sortino-ratio"`
	CalmarRatio      float64 `json:"calmar-ratio"`

	ClosingTrades   int64           `json:"closing-trades"`
	WinningTrades   int64           `json:"winning-trades"`
	LosingTrades    int64           `json:"losing-trades"`
	WinRate         decimal.Decimal `json:"win-rate"`
	GrossProfit     decimal.Decimal `json:"gross-profit"`
	GrossLoss       decimal.Decimal `json:"gross-loss"`
	ProfitFactor    decimal.Decimal `json:"profit-factor"`
	TotalCommission decimal.Decimal `json:"total-commission"`
	TotalSlippage   decimal.Decimal `json:"total-slippage"`
	Orders          OrderCounts     `json:"orders"`
}
