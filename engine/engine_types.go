package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/data"
	"github.com/tickforge/backtester/eventhandlers/exchange"
	"github.com/tickforge/backtester/eventhandlers/portfolio"
	"github.com/tickforge/backtester/eventhandlers/portfolio/positions"
	"github.com/tickforge/backtester/eventhandlers/portfolio/risk"
	"github.com/tickforge/backtester/eventhandlers/portfolio/size"
	"github.com/tickforge/backtester/eventhandlers/statistics"
	"github.com/tickforge/backtester/eventtypes/order"
	"github.com/tickforge/backtester/eventtypes/signal"
)

var (
	errRunNotFound         = errors.New("run not found")
	errRunAlreadyMonitored = errors.New("run already monitored")
	errAlreadyRan          = errors.New("run already ran")
	errRunIsRunning        = errors.New("run is already running")
	errRunHasNotRan        = errors.New("run hasn't ran yet")
	errCannotClear         = errors.New("cannot clear run")
	errNoSeries            = errors.New("no bar series supplied")
)

// Settings is the immutable configuration of a single run
type Settings struct {
	InitialFunds decimal.Decimal
	Exchange     exchange.Settings
	Limits       risk.Limits
	Size         size.Settings
	Statistics   statistics.Settings
}

// MetaData identifies a run
type MetaData struct {
	ID          uuid.UUID `json:"id"`
	Nickname    string    `json:"nickname"`
	DateLoaded  time.Time `json:"date-loaded"`
	DateStarted time.Time `json:"date-started"`
	DateEnded   time.Time `json:"date-ended"`
}

// TickSummary records what happened at one timestamp
type TickSummary struct {
	Time    time.Time       `json:"time"`
	Offset  int64           `json:"offset"`
	Bars    int             `json:"bars"`
	Signals int             `json:"signals"`
	Orders  int             `json:"orders"`
	Fills   int             `json:"fills"`
	Vetoes  int             `json:"vetoes"`
	Forced  int             `json:"forced-closes"`
	Skipped int             `json:"skipped"`
	Equity  decimal.Decimal `json:"equity"`
	Cash    decimal.Decimal `json:"cash"`
}

// Result is everything a run produced. It is complete even when ticks or
// symbols were skipped; those are listed in Skipped with their reason
type Result struct {
	MetaData    MetaData                 `json:"meta-data"`
	Metrics     *statistics.Metrics      `json:"metrics"`
	Trades      []portfolio.Trade        `json:"trades"`
	EquityCurve []portfolio.EquitySample `json:"equity-curve"`
	Positions   []positions.Position     `json:"positions"`
	Orders      []order.Order            `json:"orders"`
	Events      []common.EventRecord     `json:"events"`
	Skipped     []common.EventRecord     `json:"skipped"`
	Ticks       []TickSummary            `json:"ticks"`
}

// BackTest is one isolated run. Bar series may be shared between runs but
// every piece of mutable state is owned here
type BackTest struct {
	MetaData MetaData

	settings  Settings
	data      *data.HandlerHolder
	signals   []*signal.Signal
	exchange  *exchange.Exchange
	portfolio *portfolio.Portfolio
	risk      *risk.Risk
	sizer     *size.Size

	events  []common.EventRecord
	skipped []common.EventRecord
	ticks   []TickSummary
	result  *Result

	m       sync.Mutex
	running bool
	hasRan  bool
}

// RunSummary is a lightweight status of a run held by the RunManager
type RunSummary struct {
	MetaData MetaData            `json:"meta-data"`
	Running  bool                `json:"running"`
	HasRan   bool                `json:"has-ran"`
	Metrics  *statistics.Metrics `json:"metrics,omitempty"`
}

// RunManager tracks runs and executes them, in parallel when asked
type RunManager struct {
	m    sync.Mutex
	runs []*BackTest
}

// Grid lists the cost parameters a sweep varies. An empty list keeps the
// base config's value
type Grid struct {
	SlippageRates   []decimal.Decimal
	CommissionRates []decimal.Decimal
}
