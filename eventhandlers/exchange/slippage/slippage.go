package slippage

import (
	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
)

// ApplySlippageToPrice moves price against the trader by rate: up for buys,
// down for sells
func ApplySlippageToPrice(side common.Side, price, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return price
	}
	one := decimal.NewFromInt(1)
	if side == common.Sell {
		return price.Mul(one.Sub(rate))
	}
	return price.Mul(one.Add(rate))
}

// PerUnit returns the absolute per-unit cost of slippage
func PerUnit(reference, executed decimal.Decimal) decimal.Decimal {
	return executed.Sub(reference).Abs()
}
