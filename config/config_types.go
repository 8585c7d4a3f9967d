package config

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/data/kline/clickhouse"
	"github.com/tickforge/backtester/data/kline/database"
	"github.com/tickforge/backtester/log"
)

// EnvPrefix prefixes environment variables overriding config keys, for
// example BACKTESTER_EXCHANGE_SETTINGS_SLIPPAGE_RATE
const EnvPrefix = "BACKTESTER"

// Data sources
const (
	SourceCSV        = "csv"
	SourceDatabase   = "database"
	SourceClickHouse = "clickhouse"
)

// Signal sources
const (
	SignalCSV   = "csv"
	SignalJSONL = "jsonl"
	SignalRSI   = "rsi"
	SignalNone  = "none"
)

var (
	errFileNotFound      = errors.New("config file not found")
	errNoDataSource      = errors.New("no data source configured")
	errUnknownDataSource = errors.New("unknown data source")
	errUnknownSignal     = errors.New("unknown signal source")
	errNegativeValue     = errors.New("value cannot be negative")
	errFractionRange     = errors.New("fraction must be within [0,1]")
	errSlippageRange     = errors.New("slippage rate must be below 1")
	errMissingPath       = errors.New("path required")
)

// Config is a complete, immutable description of one backtest run
type Config struct {
	Nickname          string            `json:"nickname" mapstructure:"nickname"`
	Goal              string            `json:"goal" mapstructure:"goal"`
	DataSettings      DataSettings      `json:"data-settings" mapstructure:"data-settings"`
	SignalSettings    SignalSettings    `json:"signal-settings" mapstructure:"signal-settings"`
	FundingSettings   FundingSettings   `json:"funding-settings" mapstructure:"funding-settings"`
	ExchangeSettings  ExchangeSettings  `json:"exchange-settings" mapstructure:"exchange-settings"`
	RiskSettings      RiskSettings      `json:"risk-settings" mapstructure:"risk-settings"`
	SizeSettings      SizeSettings      `json:"size-settings" mapstructure:"size-settings"`
	StatisticSettings StatisticSettings `json:"statistic-settings" mapstructure:"statistic-settings"`
	LogSettings       *log.Config       `json:"log-settings,omitempty" mapstructure:"log-settings"`
}

// DataSettings selects where bars are loaded from
type DataSettings struct {
	Source     string             `json:"source" mapstructure:"source"`
	CSVFiles   []CSVFile          `json:"csv-files,omitempty" mapstructure:"csv-files"`
	Database   *database.Config   `json:"database,omitempty" mapstructure:"database"`
	ClickHouse *clickhouse.Config `json:"clickhouse,omitempty" mapstructure:"clickhouse"`
}

// CSVFile is one bar file
type CSVFile struct {
	Path      string `json:"path" mapstructure:"path"`
	Symbol    string `json:"symbol" mapstructure:"symbol"`
	HasHeader bool   `json:"has-header" mapstructure:"has-header"`
}

// SignalSettings selects where signals come from
type SignalSettings struct {
	Source string       `json:"source" mapstructure:"source"`
	Path   string       `json:"path,omitempty" mapstructure:"path"`
	RSI    *RSISettings `json:"rsi,omitempty" mapstructure:"rsi"`
}

// RSISettings configures the walk-forward RSI signal generator
type RSISettings struct {
	Period int     `json:"period" mapstructure:"period"`
	Low    float64 `json:"low" mapstructure:"low"`
	High   float64 `json:"high" mapstructure:"high"`
}

// FundingSettings holds the starting cash
type FundingSettings struct {
	InitialFunds decimal.Decimal `json:"initial-funds" mapstructure:"initial-funds"`
}

// ExchangeSettings is the cost model and execution policy
type ExchangeSettings struct {
	CommissionRate    decimal.Decimal `json:"commission-rate" mapstructure:"commission-rate"`
	FixedFee          decimal.Decimal `json:"fixed-fee" mapstructure:"fixed-fee"`
	SlippageRate      decimal.Decimal `json:"slippage-rate" mapstructure:"slippage-rate"`
	LimitExpiryBars   int             `json:"limit-expiry-bars" mapstructure:"limit-expiry-bars"`
	MaxVolumeFraction decimal.Decimal `json:"max-volume-fraction" mapstructure:"max-volume-fraction"`
	AllowShort        bool            `json:"allow-short" mapstructure:"allow-short"`
}

// RiskSettings are the risk limits, zero disables a limit
type RiskSettings struct {
	MaxPositionNotional decimal.Decimal `json:"max-position-notional" mapstructure:"max-position-notional"`
	MaxGrossExposure    decimal.Decimal `json:"max-gross-exposure" mapstructure:"max-gross-exposure"`
	MaxDrawdownFraction decimal.Decimal `json:"max-drawdown-fraction" mapstructure:"max-drawdown-fraction"`
	StopLossFraction    decimal.Decimal `json:"stop-loss-fraction" mapstructure:"stop-loss-fraction"`
}

// SizeSettings converts signals to quantities
type SizeSettings struct {
	DefaultPositionFraction decimal.Decimal `json:"default-position-fraction" mapstructure:"default-position-fraction"`
	MaxOrderQuantity        decimal.Decimal `json:"max-order-quantity" mapstructure:"max-order-quantity"`
	QuantityStep            decimal.Decimal `json:"quantity-step" mapstructure:"quantity-step"`
}

// StatisticSettings feed the performance analyser
type StatisticSettings struct {
	TicksPerYear decimal.Decimal `json:"ticks-per-year" mapstructure:"ticks-per-year"`
	RiskFreeRate decimal.Decimal `json:"risk-free-rate" mapstructure:"risk-free-rate"`
}
