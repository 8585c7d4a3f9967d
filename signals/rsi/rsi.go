package rsi

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/gct-ta/indicators"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/data"
	"github.com/tickforge/backtester/eventtypes/event"
	"github.com/tickforge/backtester/eventtypes/signal"
	"github.com/tickforge/backtester/log"
)

// Name is the signal source name
const Name = "rsi"

var (
	errInvalidPeriod     = errors.New("rsi period must be greater than 1")
	errInvalidThresholds = errors.New("rsi thresholds must satisfy 0 <= low < high <= 100")
)

// Generator produces walk-forward signals from the relative strength index of
// each series' closes. Entering the low zone emits long, entering the high
// zone emits flat, or short when AllowShort is set
type Generator struct {
	Period     int
	Low        float64
	High       float64
	AllowShort bool
	Series     []*data.Series
}

// Validate checks the generator parameters
func (g *Generator) Validate() error {
	if g.Period <= 1 {
		return fmt.Errorf("%w, received %d", errInvalidPeriod, g.Period)
	}
	if g.Low < 0 || g.High > 100 || g.Low >= g.High {
		return fmt.Errorf("%w, received low %v high %v", errInvalidThresholds, g.Low, g.High)
	}
	return nil
}

// warmupPeriods bounds the closes fed to the indicator at each bar to a
// multiple of the period
const warmupPeriods = 10

// Load implements signals.Source. Bars are replayed through a fresh data
// cursor so each value only sees closes consumed up to its own bar
func (g *Generator) Load(ctx context.Context) ([]*signal.Signal, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	for i := range g.Series {
		if g.Series[i] == nil {
			return nil, common.ErrNilArguments
		}
	}
	if len(g.Series) == 0 {
		return nil, nil
	}
	h, err := data.NewHolder(g.Series)
	if err != nil {
		return nil, err
	}
	zones := make(map[string]int, len(g.Series))
	var resp []*signal.Signal
	for _, t := range h.Timestamps() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bars := h.AdvanceTo(t)
		for _, sym := range h.Symbols() {
			if _, ok := bars[sym]; !ok {
				continue
			}
			cur, err := h.GetDataForSymbol(sym)
			if err != nil {
				return nil, err
			}
			if sig := g.evaluate(cur, zones); sig != nil {
				resp = append(resp, sig)
			}
		}
	}
	log.Infof(log.SignalMgr, "%s generated %d signals across %d series", Name, len(resp), len(g.Series))
	return resp, nil
}

// evaluate computes the RSI at the cursor's current bar and returns a signal
// when it moves into a new zone
func (g *Generator) evaluate(cur *data.Base, zones map[string]int) *signal.Signal {
	bar := cur.Current()
	history := cur.StreamClose(g.Period * warmupPeriods)
	if bar == nil || len(history) <= g.Period {
		return nil
	}
	closes := make([]float64, len(history))
	for i := range history {
		closes[i] = history[i].InexactFloat64()
	}
	values := indicators.RSI(closes, g.Period)
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	next := 0
	switch {
	case v <= g.Low:
		next = -1
	case v >= g.High:
		next = 1
	}
	if next == zones[bar.Symbol] {
		return nil
	}
	zones[bar.Symbol] = next
	if next == 0 {
		return nil
	}
	sig := &signal.Signal{
		Base: event.Base{
			Offset: cur.Offset(),
			Time:   bar.Time,
			Symbol: bar.Symbol,
		},
		Direction: common.Long,
	}
	if next == 1 {
		sig.Direction = common.Flat
		if g.AllowShort {
			sig.Direction = common.Short
		}
	}
	sig.AppendReason("RSI at " + decimal.NewFromFloat(v).Round(2).String())
	return sig
}
