package portfolio

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventtypes/event"
	"github.com/tickforge/backtester/eventtypes/fill"
	"github.com/tickforge/backtester/eventtypes/kline"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

func bars(t time.Time, closes map[string]float64) map[string]*kline.Kline {
	resp := make(map[string]*kline.Kline, len(closes))
	for s, c := range closes {
		resp[s] = &kline.Kline{
			Base:  event.Base{Symbol: s, Time: t},
			Open:  d(c),
			High:  d(c),
			Low:   d(c),
			Close: d(c),
		}
	}
	return resp
}

func newFill(symbol string, side common.Side, qty, px, commission float64) *fill.Fill {
	return &fill.Fill{
		Base:       event.Base{Symbol: symbol, Time: t0},
		Side:       side,
		Quantity:   d(qty),
		Price:      d(px),
		ClosePrice: d(px),
		Commission: d(commission),
	}
}

func TestSetup(t *testing.T) {
	t.Parallel()
	_, err := Setup(d(-1))
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
	p, err := Setup(d(1000))
	require.NoError(t, err)
	assert.True(t, p.GetCash().Equal(d(1000)))
	assert.True(t, p.GetInitialFunds().Equal(d(1000)))
}

func TestApplyFillScenario(t *testing.T) {
	t.Parallel()
	p, err := Setup(d(10000))
	require.NoError(t, err)
	p.Revalue(t0, bars(t0, map[string]float64{"X": 10}))
	tr, err := p.ApplyFill(newFill("X", common.Buy, 100, 10, 1))
	require.NoError(t, err)
	assert.True(t, p.GetCash().Equal(d(8999)), "cash debited 1001")
	assert.True(t, tr.CashAfter.Equal(d(8999)))
	assert.False(t, tr.Closing)
	require.Len(t, p.Positions(), 1)
	pos := p.Positions()[0]
	assert.True(t, pos.Quantity.Equal(d(100)))
	assert.True(t, pos.AverageCost.Equal(d(10)))

	tr, err = p.ApplyFill(newFill("X", common.Sell, 100, 11, 1.1))
	require.NoError(t, err)
	assert.True(t, tr.Closing)
	assert.True(t, tr.RealisedPNL.Equal(d(100)))
	assert.True(t, p.GetCash().Equal(d(10097.9)))
	assert.Empty(t, p.OpenSymbols())

	_, err = p.ApplyFill(nil)
	assert.ErrorIs(t, err, common.ErrNilEvent)
}

func TestCashHasNoDrift(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewSource(7))
	p, err := Setup(d(1000000))
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		side := common.Buy
		if r.Intn(2) == 0 {
			side = common.Sell
		}
		f := newFill("X", side, float64(r.Intn(100)+1), float64(r.Intn(10000)+1)/100, float64(r.Intn(500))/100)
		before := p.GetCash()
		_, err = p.ApplyFill(f)
		require.NoError(t, err)
		notional := f.Price.Mul(f.Quantity)
		want := before.Sub(notional).Sub(f.Commission)
		if side == common.Sell {
			want = before.Add(notional).Sub(f.Commission)
		}
		require.True(t, p.GetCash().Equal(want), "fill %d", i)
	}
	assert.Len(t, p.Trades(), 1000)
}

func TestMark(t *testing.T) {
	t.Parallel()
	p, err := Setup(d(1000))
	require.NoError(t, err)
	_, err = p.ApplyFill(newFill("X", common.Buy, 10, 10, 0))
	require.NoError(t, err)
	_, err = p.ApplyFill(newFill("Y", common.Sell, 5, 20, 0))
	require.NoError(t, err)

	s, err := p.Mark(t0, bars(t0, map[string]float64{"X": 12, "Y": 18}))
	require.NoError(t, err)
	// cash 1000 - 100 + 100, X 120, Y -90
	assert.True(t, s.Equity.Equal(d(1030)), s.Equity.String())
	assert.True(t, s.Gross.Equal(d(210)))
	assert.False(t, s.Leveraged)

	t1 := t0.Add(time.Hour)
	s, err = p.Mark(t1, bars(t1, map[string]float64{"X": 14}))
	require.NoError(t, err)
	assert.True(t, s.Equity.Equal(d(1050)), "missing bar uses the last close")

	_, err = p.Mark(t1, nil)
	assert.ErrorIs(t, err, ErrNonMonotonicMark)
	_, err = p.Mark(t0, nil)
	assert.ErrorIs(t, err, ErrNonMonotonicMark)

	curve := p.EquityCurve()
	require.Len(t, curve, 2)
	for i := range curve {
		var mv decimal.Decimal
		for _, pos := range p.Positions() {
			px, err := p.LatestPrice(pos.Symbol)
			require.NoError(t, err)
			if i == 0 && pos.Symbol == "X" {
				px = d(12)
			}
			mv = mv.Add(pos.Quantity.Mul(px))
		}
		assert.True(t, curve[i].Cash.Add(mv).Equal(curve[i].Equity))
	}
}

func TestMarkStrictlyIncreasing(t *testing.T) {
	t.Parallel()
	p, err := Setup(d(1000))
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err = p.Mark(t0.Add(time.Duration(i)*time.Minute), nil)
		require.NoError(t, err)
	}
	curve := p.EquityCurve()
	for i := 1; i < len(curve); i++ {
		assert.True(t, curve[i].Time.After(curve[i-1].Time))
	}
}

func TestSnapshotAndLeverage(t *testing.T) {
	t.Parallel()
	p, err := Setup(d(1000))
	require.NoError(t, err)
	p.Revalue(t0, bars(t0, map[string]float64{"X": 10, "Y": 10}))
	_, err = p.ApplyFill(newFill("X", common.Buy, 150, 10, 0))
	require.NoError(t, err)

	s := p.Snapshot()
	assert.True(t, s.Equity.Equal(d(1000)))
	assert.True(t, s.Exposure.Equal(d(1.5)))
	assert.True(t, s.Leveraged)
	require.Contains(t, s.Positions, "X")
	assert.False(t, s.Positions["X"].Stale)
	assert.True(t, s.Prices["Y"].Equal(d(10)))

	t1 := t0.Add(time.Hour)
	p.Revalue(t1, bars(t1, map[string]float64{"Y": 11}))
	s = p.Snapshot()
	assert.True(t, s.Positions["X"].Stale)
	assert.Equal(t, t1, s.Time)

	_, err = p.LatestPrice("Z")
	assert.ErrorIs(t, err, errNoPrice)
}

func TestSnapshotPeak(t *testing.T) {
	t.Parallel()
	p, err := Setup(d(1000))
	require.NoError(t, err)
	_, err = p.ApplyFill(newFill("X", common.Buy, 10, 10, 0))
	require.NoError(t, err)
	_, err = p.Mark(t0, bars(t0, map[string]float64{"X": 20}))
	require.NoError(t, err)
	t1 := t0.Add(time.Hour)
	p.Revalue(t1, bars(t1, map[string]float64{"X": 5}))
	s := p.Snapshot()
	assert.True(t, s.PeakEquity.Equal(d(1100)))
	assert.True(t, s.Equity.Equal(d(950)))

	p.Reset()
	assert.Empty(t, p.EquityCurve())
	assert.Empty(t, p.Trades())
	assert.True(t, p.GetCash().Equal(d(1000)))
}
