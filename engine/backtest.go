package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventhandlers/exchange"
	"github.com/tickforge/backtester/eventhandlers/portfolio/risk"
	"github.com/tickforge/backtester/eventhandlers/portfolio/size"
	"github.com/tickforge/backtester/eventhandlers/statistics"
	"github.com/tickforge/backtester/eventtypes/order"
	"github.com/tickforge/backtester/eventtypes/signal"
	"github.com/tickforge/backtester/log"
)

// Run replays every timestamp of the run's data in order. Failures of one
// symbol at one tick are recorded in Result.Skipped and never stop the run.
// The returned Result is complete for every processed tick even when an
// error is returned
func (bt *BackTest) Run(ctx context.Context) (*Result, error) {
	if bt == nil {
		return nil, fmt.Errorf("%w BackTest", common.ErrNilPointer)
	}
	bt.m.Lock()
	switch {
	case bt.running:
		bt.m.Unlock()
		return nil, fmt.Errorf("%w %v", errRunIsRunning, bt.MetaData.ID)
	case bt.hasRan:
		bt.m.Unlock()
		return nil, fmt.Errorf("%w %v", errAlreadyRan, bt.MetaData.ID)
	}
	bt.running = true
	bt.MetaData.DateStarted = time.Now().UTC()
	bt.m.Unlock()

	log.Infof(log.BackTester, "run %v %s starting over %d timestamps", bt.MetaData.ID, bt.MetaData.Nickname, len(bt.data.Timestamps()))
	runErr := bt.loop(ctx)
	res, err := bt.collect()
	runErr = common.AppendError(runErr, err)

	bt.m.Lock()
	bt.running = false
	bt.hasRan = true
	bt.MetaData.DateEnded = time.Now().UTC()
	res.MetaData = bt.MetaData
	bt.result = res
	bt.m.Unlock()

	log.Infof(log.BackTester, "run %v %s finished with %d trades, %d events and %d skipped",
		bt.MetaData.ID, bt.MetaData.Nickname, len(res.Trades), len(res.Events), len(res.Skipped))
	return res, runErr
}

func (bt *BackTest) loop(ctx context.Context) error {
	next := 0
	for i, t := range bt.data.Timestamps() {
		if err := ctx.Err(); err != nil {
			return err
		}
		for next < len(bt.signals) && bt.signals[next].Time.Before(t) {
			bt.dropSignal(bt.signals[next], "no bar data at signal time")
			next++
		}
		start := next
		for next < len(bt.signals) && bt.signals[next].Time.Equal(t) {
			next++
		}
		bt.processTick(int64(i+1), t, bt.signals[start:next])
	}
	for ; next < len(bt.signals); next++ {
		bt.dropSignal(bt.signals[next], "signal after end of data")
	}
	for _, o := range bt.exchange.CancelAll("end of data") {
		bt.recordEvent(o.UpdatedAt, o.Symbol, common.EventOrderCanceled, o.ID, o.Reason)
	}
	return nil
}

// processTick runs the six steps of a tick: revalue, re-evaluate live
// orders and sweep risk, turn signals to orders, check and submit them in
// symbol order, settle fills, then record the equity sample
func (bt *BackTest) processTick(offset int64, t time.Time, due []*signal.Signal) {
	tick := TickSummary{Time: t, Offset: offset, Signals: len(due)}
	bars := bt.data.AdvanceTo(t)
	tick.Bars = len(bars)
	bt.exchange.SetCurrentBars(t, offset, bars)
	bt.portfolio.Revalue(t, bars)

	if bt.risk.Liquidating(bt.portfolio.Snapshot()) {
		for _, c := range bt.exchange.CancelAll(risk.DrawdownLiquidation) {
			bt.recordEvent(t, c.Symbol, common.EventOrderCanceled, c.ID, c.Reason)
		}
	}
	for _, o := range bt.exchange.LiveOrders() {
		if bt.dataEnded(o.Symbol) {
			if c, err := bt.exchange.Cancel(o.ID, "no further data for symbol"); err == nil {
				bt.recordEvent(t, c.Symbol, common.EventOrderCanceled, c.ID, c.Reason)
			}
			continue
		}
		if _, ok := bars[o.Symbol]; ok && !bt.recheck(&tick, t, &o) {
			continue
		}
		res, err := bt.exchange.Evaluate(o.ID, bt.portfolio)
		bt.handleResult(&tick, t, o.Symbol, res, err)
	}

	for _, o := range bt.risk.Sweep(bt.portfolio.Snapshot()) {
		for _, c := range bt.exchange.CancelForSymbol(o.Symbol, "superseded by forced close") {
			bt.recordEvent(t, c.Symbol, common.EventOrderCanceled, c.ID, c.Reason)
		}
		o.Offset = offset
		tick.Forced++
		tick.Orders++
		res, err := bt.exchange.Submit(o, bt.portfolio)
		var id int64
		if res != nil {
			id = res.Order.ID
		}
		bt.recordEvent(t, o.Symbol, common.EventForcedClose, id, o.Reason)
		bt.handleResult(&tick, t, o.Symbol, res, err)
	}

	for _, o := range bt.ordersFromSignals(&tick, offset, t, due) {
		dec, err := bt.risk.Check(o, bt.portfolio.Snapshot())
		if err != nil {
			bt.skip(&tick, t, o.Symbol, common.EventDataError, 0, err)
			continue
		}
		if !dec.Allowed {
			tick.Vetoes++
			bt.recordEvent(t, o.Symbol, common.EventRiskVeto, 0, fmt.Sprintf("%s: %s", dec.Reason, dec.Detail))
			continue
		}
		tick.Orders++
		res, err := bt.exchange.Submit(o, bt.portfolio)
		bt.handleResult(&tick, t, o.Symbol, res, err)
	}

	sample, err := bt.portfolio.Mark(t, bars)
	if err != nil {
		bt.skip(&tick, t, "", common.EventDataError, 0, err)
	} else {
		tick.Equity = sample.Equity
		tick.Cash = sample.Cash
	}
	bt.ticks = append(bt.ticks, tick)
}

// dataEnded reports whether every bar of the symbol was consumed before
// this tick, so its orders can never fill
func (bt *BackTest) dataEnded(symbol string) bool {
	cur, err := bt.data.GetDataForSymbol(symbol)
	return err == nil && cur.IsLastEvent() && cur.Current() == nil
}

// recheck runs the pre-trade checks again on the unfilled remainder of a
// live order before it can fill. A vetoed order is canceled
func (bt *BackTest) recheck(tick *TickSummary, t time.Time, o *order.Order) bool {
	if o.ForcedClose {
		return true
	}
	remainder := *o
	remainder.Quantity = o.Remaining()
	remainder.FilledQuantity = decimal.Zero
	dec, err := bt.risk.Check(&remainder, bt.portfolio.Snapshot())
	if err != nil {
		bt.skip(tick, t, o.Symbol, common.EventDataError, o.ID, err)
		return false
	}
	if dec.Allowed {
		return true
	}
	tick.Vetoes++
	bt.recordEvent(t, o.Symbol, common.EventRiskVeto, o.ID, fmt.Sprintf("%s: %s", dec.Reason, dec.Detail))
	c, err := bt.exchange.Cancel(o.ID, "vetoed before fill")
	if err != nil {
		bt.skip(tick, t, o.Symbol, common.EventDataError, o.ID, err)
		return false
	}
	bt.recordEvent(t, c.Symbol, common.EventOrderCanceled, c.ID, c.Reason)
	return false
}

// ordersFromSignals sizes each due signal into an order. A new signal
// replaces any live order for its symbol
func (bt *BackTest) ordersFromSignals(tick *TickSummary, offset int64, t time.Time, due []*signal.Signal) []*order.Order {
	var resp []*order.Order
	seen := make(map[string]struct{}, len(due))
	for _, sig := range due {
		if _, ok := seen[sig.Symbol]; ok {
			bt.dropSignal(sig, "duplicate signal for timestamp")
			continue
		}
		seen[sig.Symbol] = struct{}{}
		if err := sig.Validate(); err != nil {
			bt.skip(tick, t, sig.Symbol, common.EventSignalRejected, 0, err)
			continue
		}
		if !bt.data.HasSymbol(sig.Symbol) {
			bt.skip(tick, t, sig.Symbol, common.EventSignalRejected, 0, common.ErrUnknownSymbol)
			continue
		}
		for _, c := range bt.exchange.CancelForSymbol(sig.Symbol, "superseded by new signal") {
			bt.recordEvent(t, c.Symbol, common.EventOrderCanceled, c.ID, c.Reason)
		}
		o, err := bt.sizer.SizeOrder(sig, bt.portfolio.Snapshot())
		if err != nil {
			if errors.Is(err, size.ErrNoOrder) {
				log.Debugf(log.BackTester, "%v %s %v", t, sig.Symbol, err)
				continue
			}
			bt.skip(tick, t, sig.Symbol, common.EventSignalRejected, 0, err)
			continue
		}
		o.Offset = offset
		resp = append(resp, o)
	}
	sort.SliceStable(resp, func(i, j int) bool {
		return resp[i].Symbol < resp[j].Symbol
	})
	return resp
}

// handleResult settles any fill and records what happened to the order
func (bt *BackTest) handleResult(tick *TickSummary, t time.Time, symbol string, res *exchange.Result, err error) {
	if res != nil {
		if res.Fill != nil {
			if _, fillErr := bt.portfolio.ApplyFill(res.Fill); fillErr != nil {
				bt.skip(tick, t, symbol, common.EventDataError, res.Order.ID, fillErr)
			} else {
				tick.Fills++
			}
		}
		switch res.Order.Status {
		case order.Expired:
			bt.recordEvent(t, symbol, common.EventOrderExpired, res.Order.ID, res.Order.Reason)
		case order.Canceled:
			bt.recordEvent(t, symbol, common.EventOrderCanceled, res.Order.ID, res.Order.Reason)
		}
	}
	if err == nil {
		return
	}
	var id int64
	if res != nil {
		id = res.Order.ID
	}
	switch {
	case errors.Is(err, common.ErrDataError):
		bt.skip(tick, t, symbol, common.EventDataError, id, err)
	case errors.Is(err, common.ErrOrderRejection):
		if res != nil && res.Order.Status == order.Rejected {
			bt.recordEvent(t, symbol, common.EventOrderRejected, id, err.Error())
		}
	default:
		bt.skip(tick, t, symbol, common.EventDataError, id, err)
	}
}

func (bt *BackTest) dropSignal(sig *signal.Signal, reason string) {
	log.Warnf(log.BackTester, "%v %s signal dropped: %s", sig.Time, sig.Symbol, reason)
	bt.events = append(bt.events, common.EventRecord{
		Time:   sig.Time,
		Symbol: sig.Symbol,
		Kind:   common.EventSignalDropped,
		Reason: reason,
	})
}

func (bt *BackTest) recordEvent(t time.Time, symbol string, kind common.EventKind, id int64, reason string) {
	log.Infof(log.BackTester, "%v %s %s order %d: %s", t, symbol, kind, id, reason)
	bt.events = append(bt.events, common.EventRecord{
		Time:    t,
		Symbol:  symbol,
		Kind:    kind,
		OrderID: id,
		Reason:  reason,
	})
}

// skip records an isolated failure. The tick carries on with the next
// symbol
func (bt *BackTest) skip(tick *TickSummary, t time.Time, symbol string, kind common.EventKind, id int64, err error) {
	log.Warnf(log.BackTester, "%v %s skipped: %v", t, symbol, err)
	tick.Skipped++
	bt.skipped = append(bt.skipped, common.EventRecord{
		Time:    t,
		Symbol:  symbol,
		Kind:    kind,
		OrderID: id,
		Reason:  err.Error(),
	})
}

func (bt *BackTest) collect() (*Result, error) {
	res := &Result{
		Trades:      bt.portfolio.Trades(),
		EquityCurve: bt.portfolio.EquityCurve(),
		Positions:   bt.portfolio.Positions(),
		Orders:      bt.exchange.Orders(),
		Events:      append([]common.EventRecord(nil), bt.events...),
		Skipped:     append([]common.EventRecord(nil), bt.skipped...),
		Ticks:       append([]TickSummary(nil), bt.ticks...),
	}
	if len(res.EquityCurve) == 0 {
		return res, nil
	}
	m, err := statistics.Calculate(res.EquityCurve, res.Trades, res.Orders, bt.settings.Statistics)
	if err != nil {
		return res, err
	}
	res.Metrics = m
	return res, nil
}

// GenerateSummary returns the run's status and metrics when finished
func (bt *BackTest) GenerateSummary() RunSummary {
	bt.m.Lock()
	defer bt.m.Unlock()
	s := RunSummary{
		MetaData: bt.MetaData,
		Running:  bt.running,
		HasRan:   bt.hasRan,
	}
	if bt.result != nil {
		s.Metrics = bt.result.Metrics
	}
	return s
}

// GetResult returns the result of a finished run
func (bt *BackTest) GetResult() (*Result, error) {
	bt.m.Lock()
	defer bt.m.Unlock()
	if bt.result == nil {
		return nil, fmt.Errorf("%w %v", errRunHasNotRan, bt.MetaData.ID)
	}
	return bt.result, nil
}

// IsRunning returns whether the run is executing
func (bt *BackTest) IsRunning() bool {
	bt.m.Lock()
	defer bt.m.Unlock()
	return bt.running
}

// HasRan returns whether the run has finished
func (bt *BackTest) HasRan() bool {
	bt.m.Lock()
	defer bt.m.Unlock()
	return bt.hasRan
}

// MatchesID returns whether the run has the ID
func (bt *BackTest) MatchesID(id uuid.UUID) bool {
	return bt != nil && !id.IsNil() && bt.MetaData.ID == id
}

// Equal returns whether two runs share an ID
func (bt *BackTest) Equal(other *BackTest) bool {
	return bt != nil && other != nil && bt.MetaData.ID == other.MetaData.ID
}
