package size

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventhandlers/portfolio"
	"github.com/tickforge/backtester/eventtypes/event"
	"github.com/tickforge/backtester/eventtypes/order"
	"github.com/tickforge/backtester/eventtypes/signal"
)

// Setup validates the settings
func Setup(s Settings) (*Size, error) {
	if s.DefaultPositionFraction.IsNegative() || s.MaxOrderQuantity.IsNegative() || s.QuantityStep.IsNegative() {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, errBadConfig)
	}
	if s.DefaultPositionFraction.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("%w: default position fraction must be within [0,1]", common.ErrInvalidConfig)
	}
	return &Size{Settings: s}, nil
}

// Target returns the signed position the signal asks for. An explicit
// quantity wins, then target weight, then strength of the default fraction
func (s *Size) Target(sig *signal.Signal, snap *portfolio.Snapshot) (decimal.Decimal, error) {
	if sig == nil || snap == nil {
		return decimal.Zero, common.ErrNilArguments
	}
	if sig.Direction == common.Flat {
		return decimal.Zero, nil
	}
	sign := decimal.NewFromInt(1)
	if sig.Direction == common.Short {
		sign = sign.Neg()
	}
	if sig.Quantity.Valid {
		return sig.Quantity.Decimal.Abs().Mul(sign), nil
	}
	px := sig.LimitPrice
	if !px.IsPositive() {
		var ok bool
		px, ok = snap.Prices[sig.Symbol]
		if !ok || !px.IsPositive() {
			return decimal.Zero, fmt.Errorf("%w %s", errNoPrice, sig.Symbol)
		}
	}
	if !snap.Equity.IsPositive() {
		return decimal.Zero, errNoEquity
	}
	if sig.TargetWeight.Valid {
		return sig.TargetWeight.Decimal.Abs().Mul(sign).Mul(snap.Equity).Div(px), nil
	}
	return sig.EffectiveStrength().Mul(s.DefaultPositionFraction).Mul(snap.Equity).Div(px).Mul(sign), nil
}

// SizeOrder returns the order moving the current position to the signal's
// target, bounded by the quantity step and max order quantity. ErrNoOrder is
// returned when nothing needs to trade
func (s *Size) SizeOrder(sig *signal.Signal, snap *portfolio.Snapshot) (*order.Order, error) {
	if sig != nil && sig.Direction != common.Flat && sig.SizedByStrength() &&
		sig.Strength.Valid && sig.Strength.Decimal.IsZero() {
		return nil, fmt.Errorf("%w: %s zero strength", ErrNoOrder, sig.Symbol)
	}
	target, err := s.Target(sig, snap)
	if err != nil {
		return nil, err
	}
	current := decimal.Zero
	if pos, ok := snap.Positions[sig.Symbol]; ok {
		current = pos.Quantity
	}
	delta := target.Sub(current)
	qty := delta.Abs()
	if s.QuantityStep.IsPositive() {
		qty = qty.Div(s.QuantityStep).Floor().Mul(s.QuantityStep)
	}
	if s.MaxOrderQuantity.IsPositive() && qty.GreaterThan(s.MaxOrderQuantity) {
		qty = s.MaxOrderQuantity
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: %s target %v holding %v", ErrNoOrder, sig.Symbol, target, current)
	}
	side := common.Buy
	if delta.IsNegative() {
		side = common.Sell
	}
	o := &order.Order{
		Base: event.Base{
			Offset: sig.Offset,
			Time:   sig.Time,
			Symbol: sig.Symbol,
			Reason: sig.Reason,
		},
		Side:     side,
		Type:     order.Market,
		Quantity: qty,
	}
	if sig.IsLimit() {
		o.Type = order.Limit
		o.LimitPrice = sig.LimitPrice
	}
	return o, nil
}
