package kline

import (
	"fmt"

	"github.com/tickforge/backtester/common"
)

// Validate ensures prices are positive and the bar is internally consistent
func (k *Kline) Validate() error {
	if k == nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidBar, common.ErrNilEvent)
	}
	if k.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", common.ErrInvalidBar)
	}
	if k.Time.IsZero() {
		return fmt.Errorf("%w: %s zero timestamp", common.ErrInvalidBar, k.Symbol)
	}
	if !k.Close.IsPositive() || !k.Open.IsPositive() || !k.High.IsPositive() || !k.Low.IsPositive() {
		return fmt.Errorf("%w: %s %v non-positive price", common.ErrInvalidBar, k.Symbol, k.Time)
	}
	if k.Volume.IsNegative() {
		return fmt.Errorf("%w: %s %v negative volume", common.ErrInvalidBar, k.Symbol, k.Time)
	}
	if k.Low.GreaterThan(k.High) ||
		k.Open.GreaterThan(k.High) || k.Open.LessThan(k.Low) ||
		k.Close.GreaterThan(k.High) || k.Close.LessThan(k.Low) {
		return fmt.Errorf("%w: %s %v prices outside low/high range", common.ErrInvalidBar, k.Symbol, k.Time)
	}
	return nil
}
