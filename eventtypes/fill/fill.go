package fill

import (
	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
)

// Notional returns price multiplied by quantity
func (f *Fill) Notional() decimal.Decimal {
	return f.Price.Mul(f.Quantity)
}

// SignedQuantity returns the quantity signed by side, buys positive
func (f *Fill) SignedQuantity() decimal.Decimal {
	if f.Side == common.Sell {
		return f.Quantity.Neg()
	}
	return f.Quantity
}

// CashDelta is the change in cash when the fill settles:
// -(notional + commission) for buys and notional - commission for sells
func (f *Fill) CashDelta() decimal.Decimal {
	if f.Side == common.Sell {
		return f.Notional().Sub(f.Commission)
	}
	return f.Notional().Add(f.Commission).Neg()
}
