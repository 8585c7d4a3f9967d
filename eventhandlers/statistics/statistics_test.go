package statistics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickforge/backtester/common"
	gctmath "github.com/tickforge/backtester/common/math"
	"github.com/tickforge/backtester/eventhandlers/portfolio"
	"github.com/tickforge/backtester/eventtypes/fill"
	"github.com/tickforge/backtester/eventtypes/order"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func curve(values ...float64) []portfolio.EquitySample {
	resp := make([]portfolio.EquitySample, len(values))
	for i := range values {
		resp[i] = portfolio.EquitySample{Time: t0.AddDate(0, 0, i), Equity: d(values[i])}
	}
	return resp
}

func closing(pnl, commission float64) portfolio.Trade {
	return portfolio.Trade{
		Fill:        fill.Fill{Commission: d(commission), Quantity: d(1)},
		RealisedPNL: d(pnl),
		Closing:     true,
	}
}

func settings() Settings {
	return Settings{TicksPerYear: decimal.NewFromInt(252), RiskFreeRate: d(0.02), InitialFunds: d(100)}
}

func TestCalculateErrors(t *testing.T) {
	t.Parallel()
	_, err := Calculate(nil, nil, nil, settings())
	assert.ErrorIs(t, err, errReceivedNoData)
	_, err = Calculate(curve(1), nil, nil, Settings{})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestCalculate(t *testing.T) {
	t.Parallel()
	trades := []portfolio.Trade{
		{Fill: fill.Fill{Commission: d(1), Quantity: d(10), Slippage: d(0.1)}},
		closing(10, 1),
		closing(-5, 1),
		closing(0, 1),
	}
	orders := []order.Order{
		{Side: common.Buy, Status: order.Filled},
		{Side: common.Sell, Status: order.Rejected},
		{Side: common.Sell, Status: order.Expired, ForcedClose: true},
		{Side: common.Buy, Status: order.Canceled},
	}
	m, err := Calculate(curve(110, 99, 120), trades, orders, settings())
	require.NoError(t, err)

	assert.True(t, m.InitialEquity.Equal(d(100)))
	assert.True(t, m.FinalEquity.Equal(d(120)))
	assert.True(t, m.TotalReturn.Equal(d(0.2)))
	assert.Equal(t, 3, m.Samples)
	assert.Equal(t, t0, m.StartDate)

	assert.True(t, m.MaxDrawdown.Fraction.Equal(d(0.1)), m.MaxDrawdown.Fraction.String())
	assert.True(t, m.MaxDrawdown.Highest.Value.Equal(d(110)))
	assert.True(t, m.MaxDrawdown.Lowest.Value.Equal(d(99)))
	assert.Equal(t, int64(1), m.MaxDrawdown.Ticks)

	assert.Equal(t, int64(3), m.ClosingTrades)
	assert.Equal(t, int64(1), m.WinningTrades)
	assert.Equal(t, int64(1), m.LosingTrades)
	assert.True(t, m.WinRate.Equal(decimal.NewFromInt(1).Div(decimal.NewFromInt(3))))
	assert.True(t, m.ProfitFactor.Equal(d(2)))
	assert.True(t, m.TotalCommission.Equal(d(4)))
	assert.True(t, m.TotalSlippage.Equal(d(1)))

	assert.Equal(t, OrderCounts{Total: 4, Buy: 2, Sell: 2, Filled: 1, Rejected: 1, Expired: 1, Canceled: 1, ForcedCloses: 1}, m.Orders)

	returns := []float64{0.1, -0.1, 21.0 / 99.0}
	assert.InDelta(t, gctmath.SharpeRatio(returns, 0.02/252, 252), m.SharpeRatio, 1e-9)
	assert.Positive(t, m.SharpeRatio)
	assert.Positive(t, m.AnnualisedReturn)
	assert.InDelta(t, m.AnnualisedReturn/0.1, m.CalmarRatio, 1e-9)
}

func TestCalculateNoLosses(t *testing.T) {
	t.Parallel()
	m, err := Calculate(curve(100, 100, 100), []portfolio.Trade{closing(5, 0)}, nil, settings())
	require.NoError(t, err)
	assert.True(t, m.ProfitFactor.IsZero(), "undefined profit factor is reported as zero")
	assert.True(t, m.WinRate.Equal(d(1)))
	assert.Zero(t, m.SharpeRatio)
	assert.True(t, m.MaxDrawdown.Fraction.IsZero())
	assert.True(t, m.TotalReturn.IsZero())
}

func TestCalculateUsesFirstSampleWithoutFunds(t *testing.T) {
	t.Parallel()
	s := settings()
	s.InitialFunds = decimal.Zero
	m, err := Calculate(curve(50, 75), nil, nil, s)
	require.NoError(t, err)
	assert.True(t, m.InitialEquity.Equal(d(50)))
	assert.True(t, m.TotalReturn.Equal(d(0.5)))
}

func TestCalculateIsDeterministic(t *testing.T) {
	t.Parallel()
	c := curve(100, 101.5, 99.25, 103, 97, 110.125)
	trades := []portfolio.Trade{closing(3.5, 0.25), closing(-1.25, 0.25)}
	a, err := Calculate(c, trades, nil, settings())
	require.NoError(t, err)
	b, err := Calculate(c, trades, nil, settings())
	require.NoError(t, err)
	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, ja, jb)

	sa, err := a.Serialise()
	require.NoError(t, err)
	assert.Contains(t, sa, `"sharpe-ratio"`)
}

func TestCalculateMaxDrawdownFromInitialFunds(t *testing.T) {
	t.Parallel()
	s := CalculateMaxDrawdown(d(200), curve(150, 180, 120))
	assert.True(t, s.Fraction.Equal(d(0.4)))
	assert.True(t, s.Highest.Value.Equal(d(200)))
	assert.Equal(t, int64(2), s.Ticks)
	assert.Equal(t, Swing{}, CalculateMaxDrawdown(d(1), nil))
}

func TestPrintResults(t *testing.T) {
	t.Parallel()
	var m *Metrics
	m.PrintResults()
	m, err := Calculate(curve(100, 110), nil, nil, settings())
	require.NoError(t, err)
	m.PrintResults()
}
