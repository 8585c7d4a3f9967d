package signal

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
)

var (
	errInvalidDirection    = errors.New("invalid direction")
	errStrengthOutOfRange  = errors.New("strength must be within [0,1]")
	errWeightOutOfRange    = errors.New("target weight must be within [-1,1]")
	errNegativeQuantity    = errors.New("target quantity cannot be negative")
	errNegativeLimitPrice  = errors.New("limit price cannot be negative")
	errWeightDisagreesSide = errors.New("target weight sign disagrees with direction")
)

// GetDirection returns the direction
func (s *Signal) GetDirection() common.Direction {
	return s.Direction
}

// IsLimit returns whether the signal requests a limit order
func (s *Signal) IsLimit() bool {
	return s.LimitPrice.IsPositive()
}

// EffectiveStrength returns the strength, or full conviction when unset
func (s *Signal) EffectiveStrength() decimal.Decimal {
	if !s.Strength.Valid {
		return decimal.NewFromInt(1)
	}
	return s.Strength.Decimal
}

// SizedByStrength returns whether neither a quantity nor a target weight
// overrides the strength
func (s *Signal) SizedByStrength() bool {
	return !s.Quantity.Valid && !s.TargetWeight.Valid
}

// Validate checks the signal fields are within their allowed ranges
func (s *Signal) Validate() error {
	if s == nil {
		return common.ErrNilEvent
	}
	if !s.Direction.IsValid() {
		return fmt.Errorf("%s %v %w %q", s.Symbol, s.Time, errInvalidDirection, s.Direction)
	}
	if s.Strength.Valid && (s.Strength.Decimal.IsNegative() || s.Strength.Decimal.GreaterThan(decimal.NewFromInt(1))) {
		return fmt.Errorf("%s %v %w, received %v", s.Symbol, s.Time, errStrengthOutOfRange, s.Strength.Decimal)
	}
	if s.TargetWeight.Valid {
		w := s.TargetWeight.Decimal
		if w.Abs().GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("%s %v %w, received %v", s.Symbol, s.Time, errWeightOutOfRange, w)
		}
		if (s.Direction == common.Long && w.IsNegative()) ||
			(s.Direction == common.Short && w.IsPositive()) {
			return fmt.Errorf("%s %v %w", s.Symbol, s.Time, errWeightDisagreesSide)
		}
	}
	if s.Quantity.Valid && s.Quantity.Decimal.IsNegative() {
		return fmt.Errorf("%s %v %w", s.Symbol, s.Time, errNegativeQuantity)
	}
	if s.LimitPrice.IsNegative() {
		return fmt.Errorf("%s %v %w", s.Symbol, s.Time, errNegativeLimitPrice)
	}
	return nil
}
