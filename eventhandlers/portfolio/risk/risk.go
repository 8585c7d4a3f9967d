package risk

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventhandlers/portfolio"
	"github.com/tickforge/backtester/eventtypes/event"
	"github.com/tickforge/backtester/eventtypes/order"
	"github.com/tickforge/backtester/log"
)

// Validate checks the limits are usable
func (l *Limits) Validate() error {
	if l.MaxPositionNotional.IsNegative() || l.MaxGrossExposure.IsNegative() {
		return fmt.Errorf("%w: risk limits cannot be negative", common.ErrInvalidConfig)
	}
	one := decimal.NewFromInt(1)
	if l.MaxDrawdownFraction.IsNegative() || l.MaxDrawdownFraction.GreaterThan(one) {
		return fmt.Errorf("%w: max drawdown fraction must be within [0,1]", common.ErrInvalidConfig)
	}
	if l.StopLossFraction.IsNegative() || l.StopLossFraction.GreaterThan(one) {
		return fmt.Errorf("%w: stop loss fraction must be within [0,1]", common.ErrInvalidConfig)
	}
	return nil
}

// Setup returns a risk manager for the limits
func Setup(l Limits) (*Risk, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &Risk{limits: l}, nil
}

// GetLimits returns the configured limits
func (r *Risk) GetLimits() Limits {
	return r.limits
}

// LiquidationPending returns whether a drawdown breach awaits liquidation
func (r *Risk) LiquidationPending() bool {
	return r.liquidatePending
}

// Reset clears any pending liquidation
func (r *Risk) Reset() {
	r.liquidatePending = false
}

// Check evaluates a proposed order against the snapshot. Checks run in
// order, position notional, gross exposure then drawdown, and stop at the
// first veto. A drawdown veto schedules liquidation for the next sweep
func (r *Risk) Check(o *order.Order, s *portfolio.Snapshot) (Decision, error) {
	if o == nil || s == nil {
		return Decision{}, common.ErrNilArguments
	}
	px := o.LimitPrice
	if o.Type != order.Limit || !px.IsPositive() {
		var ok bool
		px, ok = s.Prices[o.Symbol]
		if !ok || !px.IsPositive() {
			return Decision{}, fmt.Errorf("%w %s", errNoPrice, o.Symbol)
		}
	}
	current := decimal.Zero
	currentNotional := decimal.Zero
	if pos, ok := s.Positions[o.Symbol]; ok {
		current = pos.Quantity
		currentNotional = pos.MarketValue.Abs()
	}
	next := current.Add(o.SignedQuantity())
	nextNotional := next.Abs().Mul(px)

	if r.limits.MaxPositionNotional.IsPositive() &&
		next.Abs().GreaterThan(current.Abs()) &&
		nextNotional.GreaterThan(r.limits.MaxPositionNotional) {
		return r.veto(o, s, PositionLimitExceeded,
			fmt.Sprintf("position notional %v would exceed %v", nextNotional.Round(8), r.limits.MaxPositionNotional)), nil
	}

	if r.limits.MaxGrossExposure.IsPositive() {
		nextGross := s.Gross.Sub(currentNotional).Add(nextNotional)
		if nextGross.GreaterThan(s.Gross) {
			if !s.Equity.IsPositive() {
				return r.veto(o, s, ExposureLimitExceeded, "equity is not positive"), nil
			}
			exposure := nextGross.Div(s.Equity)
			if exposure.GreaterThan(r.limits.MaxGrossExposure) {
				return r.veto(o, s, ExposureLimitExceeded,
					fmt.Sprintf("gross exposure %v would exceed %v", exposure.Round(8), r.limits.MaxGrossExposure)), nil
			}
		}
	}

	if dd := Drawdown(s); r.limits.MaxDrawdownFraction.IsPositive() && dd.GreaterThan(r.limits.MaxDrawdownFraction) {
		r.liquidatePending = true
		return r.veto(o, s, DrawdownLimitExceeded,
			fmt.Sprintf("drawdown %v exceeds %v", dd.Round(8), r.limits.MaxDrawdownFraction)), nil
	}
	return Decision{Allowed: true}, nil
}

func (r *Risk) veto(o *order.Order, s *portfolio.Snapshot, reason VetoReason, detail string) Decision {
	log.Warnf(log.RiskMgr, "%v %s %s %v vetoed: %s, %s", s.Time, o.Symbol, o.Side, o.Quantity, reason, detail)
	return Decision{Reason: reason, Detail: detail}
}

// Drawdown returns the decline of equity from its running peak as a fraction
func Drawdown(s *portfolio.Snapshot) decimal.Decimal {
	if !s.PeakEquity.IsPositive() || s.Equity.GreaterThanOrEqual(s.PeakEquity) {
		return decimal.Zero
	}
	return s.PeakEquity.Sub(s.Equity).Div(s.PeakEquity)
}

// Liquidating returns whether the next sweep closes every position, either
// from a pending drawdown veto or a current drawdown breach
func (r *Risk) Liquidating(s *portfolio.Snapshot) bool {
	if r.liquidatePending {
		return true
	}
	return s != nil && r.limits.MaxDrawdownFraction.IsPositive() &&
		Drawdown(s).GreaterThan(r.limits.MaxDrawdownFraction)
}

// Sweep returns forced market orders closing positions, sorted by symbol.
// A pending or current drawdown breach liquidates every position; otherwise
// each position whose loss fraction reaches the stop loss is closed.
// Positions without a bar at the snapshot time are left for a later tick
func (r *Risk) Sweep(s *portfolio.Snapshot) []*order.Order {
	if s == nil {
		return nil
	}
	liquidate := r.Liquidating(s)
	symbols := make([]string, 0, len(s.Positions))
	for symbol := range s.Positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var resp []*order.Order
	var deferred bool
	for _, symbol := range symbols {
		pos := s.Positions[symbol]
		if !pos.IsOpen() {
			continue
		}
		if pos.Stale {
			deferred = deferred || liquidate
			continue
		}
		var reason string
		switch {
		case liquidate:
			reason = DrawdownLiquidation
		case r.limits.StopLossFraction.IsPositive() &&
			pos.LossFraction(pos.Close).GreaterThanOrEqual(r.limits.StopLossFraction):
			reason = fmt.Sprintf("%s at loss fraction %v", StopLossTriggered, pos.LossFraction(pos.Close).Round(8))
		default:
			continue
		}
		side := common.Sell
		if pos.Quantity.IsNegative() {
			side = common.Buy
		}
		resp = append(resp, &order.Order{
			Base: event.Base{
				Time:   s.Time,
				Symbol: symbol,
				Reason: reason,
			},
			Side:        side,
			Type:        order.Market,
			Quantity:    pos.Quantity.Abs(),
			ForcedClose: true,
		})
		log.Warnf(log.RiskMgr, "%v %s forced close of %v: %s", s.Time, symbol, pos.Quantity, reason)
	}
	r.liquidatePending = deferred
	return resp
}
