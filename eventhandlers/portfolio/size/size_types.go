package size

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoOrder is returned when a signal needs no trade to reach its target
	ErrNoOrder = errors.New("signal requires no order")

	errNoEquity  = errors.New("equity must be positive to size by weight or strength")
	errNoPrice   = errors.New("no price to size order")
	errBadConfig = errors.New("sizing settings cannot be negative")
)

// Settings controls how signals become order quantities
type Settings struct {
	// DefaultPositionFraction is the share of equity a full strength signal
	// targets when it carries neither a quantity nor a target weight
	DefaultPositionFraction decimal.Decimal `json:"default-position-fraction"`
	// MaxOrderQuantity caps any single order, zero is unlimited
	MaxOrderQuantity decimal.Decimal `json:"max-order-quantity"`
	// QuantityStep rounds order quantities down to a multiple, zero disables
	QuantityStep decimal.Decimal `json:"quantity-step"`
}

// Size translates signals to orders
type Size struct {
	Settings
}
