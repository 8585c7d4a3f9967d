package exchange

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventhandlers/exchange/slippage"
	"github.com/tickforge/backtester/eventtypes/event"
	"github.com/tickforge/backtester/eventtypes/fill"
	"github.com/tickforge/backtester/eventtypes/kline"
	"github.com/tickforge/backtester/eventtypes/order"
	"github.com/tickforge/backtester/log"
)

// Setup validates the settings and registers the tradable symbols
func (e *Exchange) Setup(s Settings, symbols []string) error {
	if s.CommissionRate.IsNegative() || s.FixedFee.IsNegative() || s.SlippageRate.IsNegative() {
		return fmt.Errorf("%w: commission rate, fixed fee and slippage rate cannot be negative", common.ErrInvalidConfig)
	}
	if s.SlippageRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: slippage rate must be below 1", common.ErrInvalidConfig)
	}
	if s.LimitExpiryBars < 0 {
		return fmt.Errorf("%w: limit expiry bars cannot be negative", common.ErrInvalidConfig)
	}
	if s.MaxVolumeFraction.IsNegative() || s.MaxVolumeFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: max volume fraction must be within [0,1]", common.ErrInvalidConfig)
	}
	*e = Exchange{
		settings: s,
		symbols:  make(map[string]struct{}, len(symbols)),
		live:     make(map[int64]*order.Order),
	}
	for i := range symbols {
		e.symbols[symbols[i]] = struct{}{}
	}
	return nil
}

// Reset returns the exchange to initial settings
func (e *Exchange) Reset() {
	*e = Exchange{}
}

// SetCurrentBars moves the exchange clock to t with the bars stamped at t
func (e *Exchange) SetCurrentBars(t time.Time, offset int64, bars map[string]*kline.Kline) {
	e.currentTime = t
	e.offset = offset
	e.bars = bars
}

// Submit takes ownership of a new order, assigns its id and evaluates it
// against the current bar. Rejections return the rejected order together
// with an error wrapping common.ErrOrderRejection; a missing bar wraps
// common.ErrDataError and ErrNoMarketData
func (e *Exchange) Submit(o *order.Order, acc Account) (*Result, error) {
	if o == nil || acc == nil {
		return nil, common.ErrNilArguments
	}
	if e.live == nil {
		return nil, errNotSetup
	}
	if o.Status == "" {
		o.Status = order.New
	}
	if o.Status != order.New {
		return nil, fmt.Errorf("%w, received %s", errNotNew, o.Status)
	}
	if o.Type == "" {
		o.Type = order.Market
	}
	e.nextID++
	o.ID = e.nextID
	o.Time = e.currentTime
	o.Offset = e.offset
	o.UpdatedAt = e.currentTime
	e.orders = append(e.orders, o)

	switch {
	case !o.Quantity.IsPositive():
		return e.reject(o, order.InvalidQuantity, errInvalidQuantity)
	case o.Type == order.Limit && !o.LimitPrice.IsPositive():
		return e.reject(o, order.InvalidLimitPrice, errInvalidLimitPrice)
	}
	if _, ok := e.symbols[o.Symbol]; !ok {
		return e.reject(o, order.UnknownSymbol, common.ErrUnknownSymbol)
	}
	bar, ok := e.bars[o.Symbol]
	if !ok || bar == nil {
		res, _ := e.reject(o, order.NoMarketData, ErrNoMarketData)
		return res, fmt.Errorf("%w: %w %s at %v", common.ErrDataError, ErrNoMarketData, o.Symbol, e.currentTime)
	}
	return e.evaluate(o, bar, acc)
}

// Evaluate re-evaluates a live order against the current bar. A live order
// whose symbol has no bar at this tick is left untouched
func (e *Exchange) Evaluate(id int64, acc Account) (*Result, error) {
	if acc == nil {
		return nil, common.ErrNilArguments
	}
	o, ok := e.live[id]
	if !ok {
		return nil, fmt.Errorf("%w %d", errOrderNotLive, id)
	}
	bar, ok := e.bars[o.Symbol]
	if !ok || bar == nil {
		return &Result{Order: *o}, nil
	}
	return e.evaluate(o, bar, acc)
}

func (e *Exchange) evaluate(o *order.Order, bar *kline.Kline, acc Account) (*Result, error) {
	o.BarsEvaluated++
	price, fillable := e.executionPrice(o, bar)
	qty := o.Remaining()
	if fillable && !o.ForcedClose && e.settings.MaxVolumeFraction.IsPositive() {
		limit := bar.Volume.Mul(e.settings.MaxVolumeFraction)
		if !limit.IsPositive() {
			fillable = false
		} else if qty.GreaterThan(limit) {
			o.AppendReason(fmt.Sprintf("quantity %v capped to %v by bar volume", qty, limit))
			qty = limit
		}
	}
	if !fillable {
		if o.Status == order.New {
			if err := o.Transition(order.Pending, e.currentTime); err != nil {
				return nil, err
			}
			e.live[o.ID] = o
		}
		return e.expireIfDue(o, nil)
	}

	notional := price.Mul(qty)
	commission := decimal.Max(e.settings.FixedFee, notional.Mul(e.settings.CommissionRate))
	if !o.ForcedClose {
		if o.Side == common.Sell && !e.settings.AllowShort &&
			acc.PositionQuantity(o.Symbol).Sub(qty).IsNegative() {
			return e.refuse(o, order.ShortNotAllowed, errShortNotAllowed)
		}
		cash := acc.GetCash()
		var sufficient bool
		if o.Side == common.Sell {
			sufficient = !cash.Add(notional).Sub(commission).IsNegative()
		} else {
			sufficient = cash.GreaterThanOrEqual(notional.Add(commission))
		}
		if !sufficient {
			return e.refuse(o, order.InsufficientFunds, errInsufficientFunds)
		}
	}

	f := &fill.Fill{
		Base: event.Base{
			Offset: e.offset,
			Time:   e.currentTime,
			Symbol: o.Symbol,
			Reason: o.Reason,
		},
		OrderID:     o.ID,
		Side:        o.Side,
		Quantity:    qty,
		Price:       price,
		ClosePrice:  bar.Close,
		Commission:  commission,
		ForcedClose: o.ForcedClose,
	}
	if o.Type == order.Market {
		f.Slippage = slippage.PerUnit(bar.Close, price)
	}
	o.FilledQuantity = o.FilledQuantity.Add(qty)
	next := order.Filled
	if o.Remaining().IsPositive() {
		next = order.PartiallyFilled
	}
	if err := o.Transition(next, e.currentTime); err != nil {
		return nil, err
	}
	if next == order.Filled {
		delete(e.live, o.ID)
	} else {
		e.live[o.ID] = o
	}
	log.Debugf(log.OrderMgr, "%v order %d %s %s %v @ %v commission %v %s",
		e.currentTime, o.ID, o.Symbol, o.Side, qty, price, commission, o.Status)
	if next == order.PartiallyFilled {
		return e.expireIfDue(o, f)
	}
	return &Result{Order: *o, Fill: f}, nil
}

// executionPrice returns the fill price for the order at this bar and
// whether the order can execute at all
func (e *Exchange) executionPrice(o *order.Order, bar *kline.Kline) (decimal.Decimal, bool) {
	if o.Type == order.Limit {
		if bar.Low.LessThanOrEqual(o.LimitPrice) && o.LimitPrice.LessThanOrEqual(bar.High) {
			return o.LimitPrice, true
		}
		return decimal.Zero, false
	}
	return slippage.ApplySlippageToPrice(o.Side, bar.Close, e.settings.SlippageRate), true
}

func (e *Exchange) expireIfDue(o *order.Order, f *fill.Fill) (*Result, error) {
	if e.settings.LimitExpiryBars > 0 && o.BarsEvaluated > e.settings.LimitExpiryBars {
		if err := o.Transition(order.Expired, e.currentTime); err != nil {
			return nil, err
		}
		o.AppendReason(fmt.Sprintf("expired after %d bars", o.BarsEvaluated))
		delete(e.live, o.ID)
		log.Debugf(log.OrderMgr, "%v order %d %s expired", e.currentTime, o.ID, o.Symbol)
	}
	return &Result{Order: *o, Fill: f}, nil
}

// reject moves a new order to Rejected
func (e *Exchange) reject(o *order.Order, reason order.RejectionReason, cause error) (*Result, error) {
	if err := o.Reject(reason, e.currentTime); err != nil {
		return nil, err
	}
	delete(e.live, o.ID)
	log.Debugf(log.OrderMgr, "%v order %d %s rejected: %s", e.currentTime, o.ID, o.Symbol, reason)
	return &Result{Order: *o}, fmt.Errorf("%w: order %d %s %w", common.ErrOrderRejection, o.ID, o.Symbol, cause)
}

// refuse rejects a new order, or cancels a live one which can no longer be
// funded
func (e *Exchange) refuse(o *order.Order, reason order.RejectionReason, cause error) (*Result, error) {
	if o.Status == order.New {
		return e.reject(o, reason, cause)
	}
	if err := o.Transition(order.Canceled, e.currentTime); err != nil {
		return nil, err
	}
	o.Rejection = reason
	o.AppendReason(string(reason))
	delete(e.live, o.ID)
	return &Result{Order: *o}, fmt.Errorf("%w: order %d %s canceled %w", common.ErrOrderRejection, o.ID, o.Symbol, cause)
}

// Cancel cancels a live order
func (e *Exchange) Cancel(id int64, reason string) (*order.Order, error) {
	o, ok := e.live[id]
	if !ok {
		for i := range e.orders {
			if e.orders[i].ID == id {
				return nil, fmt.Errorf("%w %d status %s", errOrderNotLive, id, e.orders[i].Status)
			}
		}
		return nil, fmt.Errorf("%w %d", errOrderNotFound, id)
	}
	if err := o.Transition(order.Canceled, e.currentTime); err != nil {
		return nil, err
	}
	o.AppendReason(reason)
	delete(e.live, id)
	cp := *o
	return &cp, nil
}

// CancelForSymbol cancels every live order for the symbol
func (e *Exchange) CancelForSymbol(symbol, reason string) []order.Order {
	var resp []order.Order
	for _, o := range e.LiveOrders() {
		if o.Symbol != symbol {
			continue
		}
		if c, err := e.Cancel(o.ID, reason); err == nil {
			resp = append(resp, *c)
		}
	}
	return resp
}

// CancelAll cancels every live order
func (e *Exchange) CancelAll(reason string) []order.Order {
	var resp []order.Order
	for _, o := range e.LiveOrders() {
		if c, err := e.Cancel(o.ID, reason); err == nil {
			resp = append(resp, *c)
		}
	}
	return resp
}

// LiveOrders returns copies of pending and partially filled orders in
// symbol then id order
func (e *Exchange) LiveOrders() []order.Order {
	resp := make([]order.Order, 0, len(e.live))
	for _, o := range e.live {
		resp = append(resp, *o)
	}
	sort.Slice(resp, func(i, j int) bool {
		if resp[i].Symbol != resp[j].Symbol {
			return resp[i].Symbol < resp[j].Symbol
		}
		return resp[i].ID < resp[j].ID
	})
	return resp
}

// Orders returns copies of every order ever submitted in id order
func (e *Exchange) Orders() []order.Order {
	resp := make([]order.Order, len(e.orders))
	for i := range e.orders {
		resp[i] = *e.orders[i]
	}
	return resp
}

// GetSettings returns the exchange settings
func (e *Exchange) GetSettings() Settings {
	return e.settings
}
