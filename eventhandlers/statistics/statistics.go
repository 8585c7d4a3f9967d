package statistics

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	gctmath "github.com/tickforge/backtester/common/math"
	"github.com/tickforge/backtester/eventhandlers/portfolio"
	"github.com/tickforge/backtester/eventtypes/order"
	"github.com/tickforge/backtester/log"
)

// Calculate derives the run metrics from the equity curve, trade log and
// order book. It holds no state; identical input yields identical output
func Calculate(curve []portfolio.EquitySample, trades []portfolio.Trade, orders []order.Order, s Settings) (*Metrics, error) {
	if len(curve) == 0 {
		return nil, fmt.Errorf("%w to calculate metrics", errReceivedNoData)
	}
	if !s.TicksPerYear.IsPositive() {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, errInvalidTicksPerYear)
	}
	m := &Metrics{
		StartDate:     curve[0].Time,
		EndDate:       curve[len(curve)-1].Time,
		Samples:       len(curve),
		InitialEquity: s.InitialFunds,
		FinalEquity:   curve[len(curve)-1].Equity,
	}
	if !m.InitialEquity.IsPositive() {
		m.InitialEquity = curve[0].Equity
	}
	if m.InitialEquity.IsPositive() {
		m.TotalReturn = m.FinalEquity.Sub(m.InitialEquity).Div(m.InitialEquity)
	}

	ticksPerYear := s.TicksPerYear.InexactFloat64()
	m.AnnualisedReturn = finite(gctmath.CompoundAnnualGrowthRate(
		m.InitialEquity.InexactFloat64(),
		m.FinalEquity.InexactFloat64(),
		ticksPerYear,
		float64(len(curve))))

	returns := periodReturns(m.InitialEquity, curve)
	riskFreePerTick := s.RiskFreeRate.InexactFloat64() / ticksPerYear
	m.SharpeRatio = finite(gctmath.SharpeRatio(returns, riskFreePerTick, ticksPerYear))
	m.SortinoRatio = finite(gctmath.SortinoRatio(returns, riskFreePerTick, ticksPerYear))
	m.MaxDrawdown = CalculateMaxDrawdown(m.InitialEquity, curve)
	m.CalmarRatio = finite(gctmath.CalmarRatio(m.AnnualisedReturn, m.MaxDrawdown.Fraction.InexactFloat64()))

	for i := range trades {
		m.TotalCommission = m.TotalCommission.Add(trades[i].Commission)
		m.TotalSlippage = m.TotalSlippage.Add(trades[i].Slippage.Mul(trades[i].Quantity))
		if !trades[i].Closing {
			continue
		}
		m.ClosingTrades++
		switch {
		case trades[i].RealisedPNL.IsPositive():
			m.WinningTrades++
			m.GrossProfit = m.GrossProfit.Add(trades[i].RealisedPNL)
		case trades[i].RealisedPNL.IsNegative():
			m.LosingTrades++
			m.GrossLoss = m.GrossLoss.Add(trades[i].RealisedPNL.Abs())
		}
	}
	if m.ClosingTrades > 0 {
		m.WinRate = decimal.NewFromInt(m.WinningTrades).Div(decimal.NewFromInt(m.ClosingTrades))
	}
	if m.GrossLoss.IsPositive() {
		m.ProfitFactor = m.GrossProfit.Div(m.GrossLoss)
	}
	m.Orders = countOrders(orders)
	return m, nil
}

// periodReturns are the simple returns between consecutive samples, the
// first measured from the initial equity
func periodReturns(initial decimal.Decimal, curve []portfolio.EquitySample) []float64 {
	resp := make([]float64, 0, len(curve))
	prev := initial
	for i := range curve {
		if prev.IsPositive() {
			resp = append(resp, curve[i].Equity.Sub(prev).Div(prev).InexactFloat64())
		}
		prev = curve[i].Equity
	}
	return resp
}

// CalculateMaxDrawdown returns the largest peak to trough decline of the
// curve, measured from initial equity when it is positive
func CalculateMaxDrawdown(initial decimal.Decimal, curve []portfolio.EquitySample) Swing {
	if len(curve) == 0 {
		return Swing{}
	}
	peak := ValueAtTime{Time: curve[0].Time, Value: curve[0].Equity}
	var peakIndex int
	if initial.GreaterThan(peak.Value) {
		peak.Value = initial
	}
	var worst Swing
	for i := range curve {
		if curve[i].Equity.GreaterThan(peak.Value) {
			peak = ValueAtTime{Time: curve[i].Time, Value: curve[i].Equity}
			peakIndex = i
			continue
		}
		if !peak.Value.IsPositive() {
			continue
		}
		fraction := peak.Value.Sub(curve[i].Equity).Div(peak.Value)
		if fraction.GreaterThan(worst.Fraction) {
			worst = Swing{
				Highest:  peak,
				Lowest:   ValueAtTime{Time: curve[i].Time, Value: curve[i].Equity},
				Fraction: fraction,
				Ticks:    int64(i - peakIndex),
			}
		}
	}
	return worst
}

// finite keeps overflowed ratios out of the JSON output
func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

func countOrders(orders []order.Order) OrderCounts {
	var c OrderCounts
	for i := range orders {
		c.Total++
		if orders[i].Side == common.Buy {
			c.Buy++
		} else {
			c.Sell++
		}
		if orders[i].ForcedClose {
			c.ForcedCloses++
		}
		switch orders[i].Status {
		case order.Filled:
			c.Filled++
		case order.PartiallyFilled:
			c.PartiallyFilled++
		case order.Rejected:
			c.Rejected++
		case order.Expired:
			c.Expired++
		case order.Canceled:
			c.Canceled++
		}
	}
	return c
}

// Serialise returns the metrics as indented JSON
func (m *Metrics) Serialise() (string, error) {
	resp, err := json.MarshalIndent(m, "", " ")
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// PrintResults logs the headline metrics
func (m *Metrics) PrintResults() {
	if m == nil {
		return
	}
	log.Infof(log.Statistics, "Run from %v to %v over %d samples", m.StartDate, m.EndDate, m.Samples)
	log.Infof(log.Statistics, "Initial equity: %v", m.InitialEquity.Round(8))
	log.Infof(log.Statistics, "Final equity: %v", m.FinalEquity.Round(8))
	log.Infof(log.Statistics, "Total return: %v%%", m.TotalReturn.Mul(decimal.NewFromInt(100)).Round(4))
	log.Infof(log.Statistics, "Annualised return: %v%%", gctmath.RoundFloat(m.AnnualisedReturn*100, 4))
	log.Infof(log.Statistics, "Max drawdown: %v%% from %v to %v", m.MaxDrawdown.Fraction.Mul(decimal.NewFromInt(100)).Round(4), m.MaxDrawdown.Highest.Time, m.MaxDrawdown.Lowest.Time)
	log.Infof(log.Statistics, "Sharpe ratio: %v", gctmath.RoundFloat(m.SharpeRatio, 4))
	log.Infof(log.Statistics, "Sortino ratio: %v", gctmath.RoundFloat(m.SortinoRatio, 4))
	log.Infof(log.Statistics, "Calmar ratio: %v", gctmath.RoundFloat(m.CalmarRatio, 4))
	log.Infof(log.Statistics, "Win rate: %v of %d closing trades", m.WinRate.Round(4), m.ClosingTrades)
	log.Infof(log.Statistics, "Profit factor: %v", m.ProfitFactor.Round(4))
	log.Infof(log.Statistics, "Total commission: %v", m.TotalCommission.Round(8))
	log.Infof(log.Statistics, "Orders: %d total, %d filled, %d rejected, %d expired, %d canceled, %d forced closes",
		m.Orders.Total, m.Orders.Filled, m.Orders.Rejected, m.Orders.Expired, m.Orders.Canceled, m.Orders.ForcedCloses)
}
