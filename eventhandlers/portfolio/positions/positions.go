package positions

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventtypes/fill"
)

// NewManager returns an empty position manager
func NewManager() *Manager {
	return &Manager{positions: make(map[string]*Position)}
}

// Apply updates the fill's position using average cost. Additions in the
// position's direction re-weight the average, reductions realise
// (price - average) * closed * sign, and a reversal restarts the average at
// the fill price
func (m *Manager) Apply(f *fill.Fill) (Delta, error) {
	if f == nil {
		return Delta{}, common.ErrNilEvent
	}
	if !f.Quantity.IsPositive() || !f.Price.IsPositive() {
		return Delta{}, fmt.Errorf("%w: %s order %d", errNonPositiveFill, f.Symbol, f.OrderID)
	}
	if m.positions == nil {
		m.positions = make(map[string]*Position)
	}
	p, ok := m.positions[f.Symbol]
	if !ok {
		p = &Position{Symbol: f.Symbol}
		m.positions[f.Symbol] = p
	}
	d := Delta{
		Symbol:           f.Symbol,
		PreviousQuantity: p.Quantity,
		PreviousAverage:  p.AverageCost,
	}
	signed := f.SignedQuantity()
	next := p.Quantity.Add(signed)

	if p.Quantity.IsZero() || p.Quantity.Sign() == signed.Sign() {
		held := p.Quantity.Abs()
		p.AverageCost = held.Mul(p.AverageCost).Add(f.Quantity.Mul(f.Price)).Div(next.Abs())
	} else {
		closed := decimal.Min(p.Quantity.Abs(), f.Quantity)
		sign := decimal.NewFromInt(int64(p.Quantity.Sign()))
		d.ClosedQuantity = closed
		d.RealisedPNL = f.Price.Sub(p.AverageCost).Mul(closed).Mul(sign)
		p.RealisedPNL = p.RealisedPNL.Add(d.RealisedPNL)
		switch {
		case next.IsZero():
			p.AverageCost = decimal.Zero
		case next.Sign() != p.Quantity.Sign():
			p.AverageCost = f.Price
			d.Flipped = true
		}
	}
	p.Quantity = next
	p.Commission = p.Commission.Add(f.Commission)
	p.FillCount++
	d.Quantity = p.Quantity
	d.AverageCost = p.AverageCost
	return d, nil
}

// Get returns a copy of the symbol's position
func (m *Manager) Get(symbol string) (Position, bool) {
	p, ok := m.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Quantity returns the signed net quantity held, zero when never traded
func (m *Manager) Quantity(symbol string) decimal.Decimal {
	if p, ok := m.positions[symbol]; ok {
		return p.Quantity
	}
	return decimal.Zero
}

// All returns copies of every position in symbol order, including flat ones
func (m *Manager) All() []Position {
	resp := make([]Position, 0, len(m.positions))
	for _, p := range m.positions {
		resp = append(resp, *p)
	}
	sort.Slice(resp, func(i, j int) bool {
		return resp[i].Symbol < resp[j].Symbol
	})
	return resp
}

// Reset removes all positions
func (m *Manager) Reset() {
	m.positions = make(map[string]*Position)
}

// IsOpen returns whether the position holds a non-zero quantity
func (p *Position) IsOpen() bool {
	return !p.Quantity.IsZero()
}

// MarketValue is the signed value of the position at price
func (p *Position) MarketValue(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price)
}

// UnrealisedPNL is derived from price and never stored
func (p *Position) UnrealisedPNL(price decimal.Decimal) decimal.Decimal {
	return price.Sub(p.AverageCost).Mul(p.Quantity)
}

// LossFraction returns the unrealised loss relative to cost basis, positive
// when the position is losing
func (p *Position) LossFraction(price decimal.Decimal) decimal.Decimal {
	if !p.IsOpen() || !p.AverageCost.IsPositive() {
		return decimal.Zero
	}
	basis := p.AverageCost.Mul(p.Quantity.Abs())
	return p.UnrealisedPNL(price).Neg().Div(basis)
}
