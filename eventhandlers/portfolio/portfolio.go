package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventhandlers/portfolio/positions"
	"github.com/tickforge/backtester/eventtypes/fill"
	"github.com/tickforge/backtester/eventtypes/kline"
	"github.com/tickforge/backtester/log"
)

// Setup returns a portfolio holding only cash
func Setup(initialFunds decimal.Decimal) (*Portfolio, error) {
	if initialFunds.IsNegative() {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, errNegativeFunds)
	}
	return &Portfolio{
		initialFunds: initialFunds,
		cash:         initialFunds,
		positions:    positions.NewManager(),
		prices:       make(map[string]price),
		peak:         initialFunds,
	}, nil
}

// Reset returns the portfolio to its initial funds
func (p *Portfolio) Reset() {
	p.cash = p.initialFunds
	p.positions.Reset()
	p.prices = make(map[string]price)
	p.currentTime = time.Time{}
	p.peak = p.initialFunds
	p.curve = nil
	p.trades = nil
}

// Revalue moves the portfolio clock to t and records the closes of the bars
// stamped at t. Symbols without a bar keep their last known close
func (p *Portfolio) Revalue(t time.Time, bars map[string]*kline.Kline) {
	p.currentTime = t
	for symbol, b := range bars {
		if b == nil {
			continue
		}
		p.prices[symbol] = price{close: b.Close, time: t}
	}
}

// Mark revalues the portfolio at t and appends exactly one equity sample
func (p *Portfolio) Mark(t time.Time, bars map[string]*kline.Kline) (EquitySample, error) {
	if len(p.curve) > 0 && !t.After(p.curve[len(p.curve)-1].Time) {
		return EquitySample{}, fmt.Errorf("%w: %v is not after %v", ErrNonMonotonicMark, t, p.curve[len(p.curve)-1].Time)
	}
	p.Revalue(t, bars)
	equity, gross := p.valuation()
	exposure, leveraged := exposureOf(gross, equity)
	s := EquitySample{
		Time:      t,
		Equity:    equity,
		Cash:      p.cash,
		Gross:     gross,
		Exposure:  exposure,
		Leveraged: leveraged,
	}
	if equity.GreaterThan(p.peak) {
		p.peak = equity
	}
	p.curve = append(p.curve, s)
	return s, nil
}

// ApplyFill settles the fill against cash and its position
func (p *Portfolio) ApplyFill(f *fill.Fill) (Trade, error) {
	if f == nil {
		return Trade{}, common.ErrNilEvent
	}
	d, err := p.positions.Apply(f)
	if err != nil {
		return Trade{}, err
	}
	p.cash = p.cash.Add(f.CashDelta())
	if _, ok := p.prices[f.Symbol]; !ok && f.ClosePrice.IsPositive() {
		p.prices[f.Symbol] = price{close: f.ClosePrice, time: f.Time}
	}
	t := Trade{
		Fill:          *f,
		RealisedPNL:   d.RealisedPNL,
		Closing:       d.ClosedQuantity.IsPositive(),
		PositionAfter: d.Quantity,
		CashAfter:     p.cash,
	}
	p.trades = append(p.trades, t)
	log.Debugf(log.PortfolioMgr, "%v %s %s %v @ %v cash %v position %v realised %v",
		f.Time, f.Symbol, f.Side, f.Quantity, f.Price, p.cash, d.Quantity, d.RealisedPNL)
	return t, nil
}

// Snapshot values the portfolio at the latest known closes
func (p *Portfolio) Snapshot() *Snapshot {
	equity, gross := p.valuation()
	exposure, leveraged := exposureOf(gross, equity)
	s := &Snapshot{
		Time:       p.currentTime,
		Cash:       p.cash,
		Equity:     equity,
		PeakEquity: decimal.Max(p.peak, equity),
		Gross:      gross,
		Exposure:   exposure,
		Leveraged:  leveraged,
		Positions:  make(map[string]PositionSnapshot),
		Prices:     make(map[string]decimal.Decimal, len(p.prices)),
	}
	for symbol, px := range p.prices {
		s.Prices[symbol] = px.close
	}
	for _, pos := range p.positions.All() {
		if !pos.IsOpen() {
			continue
		}
		px := p.prices[pos.Symbol]
		s.Positions[pos.Symbol] = PositionSnapshot{
			Position:      pos,
			Close:         px.close,
			CloseTime:     px.time,
			MarketValue:   pos.MarketValue(px.close),
			UnrealisedPNL: pos.UnrealisedPNL(px.close),
			Stale:         !px.time.Equal(p.currentTime),
		}
	}
	return s
}

// valuation returns cash plus signed market value, and the gross notional
func (p *Portfolio) valuation() (equity, gross decimal.Decimal) {
	equity = p.cash
	for _, pos := range p.positions.All() {
		if !pos.IsOpen() {
			continue
		}
		mv := pos.MarketValue(p.prices[pos.Symbol].close)
		equity = equity.Add(mv)
		gross = gross.Add(mv.Abs())
	}
	return equity, gross
}

// exposureOf returns gross / equity. Non-positive equity holding anything is
// leveraged with an undefined ratio, reported as zero
func exposureOf(gross, equity decimal.Decimal) (decimal.Decimal, bool) {
	if !equity.IsPositive() {
		return decimal.Zero, gross.IsPositive()
	}
	e := gross.Div(equity)
	return e, e.GreaterThan(decimal.NewFromInt(1))
}

// GetCash returns available cash
func (p *Portfolio) GetCash() decimal.Decimal {
	return p.cash
}

// GetInitialFunds returns the cash the run started with
func (p *Portfolio) GetInitialFunds() decimal.Decimal {
	return p.initialFunds
}

// PositionQuantity returns the signed quantity held of symbol
func (p *Portfolio) PositionQuantity(symbol string) decimal.Decimal {
	return p.positions.Quantity(symbol)
}

// LatestPrice returns the last close seen for symbol
func (p *Portfolio) LatestPrice(symbol string) (decimal.Decimal, error) {
	px, ok := p.prices[symbol]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w %s", errNoPrice, symbol)
	}
	return px.close, nil
}

// Positions returns every position ever opened in symbol order
func (p *Portfolio) Positions() []positions.Position {
	return p.positions.All()
}

// OpenSymbols returns the symbols with a non-zero position, sorted
func (p *Portfolio) OpenSymbols() []string {
	var resp []string
	for _, pos := range p.positions.All() {
		if pos.IsOpen() {
			resp = append(resp, pos.Symbol)
		}
	}
	sort.Strings(resp)
	return resp
}

// EquityCurve returns a copy of the equity curve
func (p *Portfolio) EquityCurve() []EquitySample {
	resp := make([]EquitySample, len(p.curve))
	copy(resp, p.curve)
	return resp
}

// Trades returns a copy of the trade log
func (p *Portfolio) Trades() []Trade {
	resp := make([]Trade, len(p.trades))
	copy(resp, p.trades)
	return resp
}
