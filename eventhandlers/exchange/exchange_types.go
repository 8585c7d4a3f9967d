package exchange

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/eventtypes/fill"
	"github.com/tickforge/backtester/eventtypes/kline"
	"github.com/tickforge/backtester/eventtypes/order"
)

var (
	// ErrNoMarketData is returned when an order's symbol has no bar at the
	// current tick
	ErrNoMarketData = errors.New("no market data")

	errInvalidQuantity   = errors.New("order quantity must be greater than zero")
	errInvalidLimitPrice = errors.New("limit order requires a positive limit price")
	errInsufficientFunds = errors.New("insufficient funds")
	errShortNotAllowed   = errors.New("short selling not allowed")
	errOrderNotFound     = errors.New("order not found")
	errOrderNotLive      = errors.New("order is not live")
	errNotNew            = errors.New("submitted order must be new")
	errNotSetup          = errors.New("exchange not setup")
)

// Settings is the cost model and execution policy, fixed for a run
type Settings struct {
	CommissionRate decimal.Decimal
	FixedFee       decimal.Decimal
	SlippageRate   decimal.Decimal
	// LimitExpiryBars is how many bars after submission a live order is
	// re-evaluated before it expires. Zero keeps it live until the run ends
	LimitExpiryBars int
	// MaxVolumeFraction caps each evaluation at this share of bar volume.
	// Zero disables partial fills
	MaxVolumeFraction decimal.Decimal
	AllowShort        bool
}

// Account exposes the state the order manager needs for buying power checks
type Account interface {
	GetCash() decimal.Decimal
	PositionQuantity(symbol string) decimal.Decimal
}

// Result is the outcome of one submission or evaluation. Fill is nil when
// nothing executed
type Result struct {
	Order order.Order
	Fill  *fill.Fill
}

// Exchange is the simulated order manager. It owns every order from
// submission until the order reaches a terminal status
type Exchange struct {
	settings Settings
	symbols  map[string]struct{}
	nextID   int64
	orders   []*order.Order
	live     map[int64]*order.Order

	currentTime time.Time
	offset      int64
	bars        map[string]*kline.Kline
}
