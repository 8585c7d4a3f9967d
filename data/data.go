package data

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventtypes/kline"
)

// NewSeries validates bars and wraps them in a Series. Every bar must pass
// kline validation, belong to symbol and be strictly later than the previous
func NewSeries(symbol string, bars []*kline.Kline) (*Series, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoData, symbol)
	}
	for i := range bars {
		if err := bars[i].Validate(); err != nil {
			return nil, err
		}
		if bars[i].Symbol != symbol {
			return nil, fmt.Errorf("%w: %w %q != %q", common.ErrInvalidBar, errSymbolMismatch, bars[i].Symbol, symbol)
		}
		if i > 0 && !bars[i].Time.After(bars[i-1].Time) {
			return nil, fmt.Errorf("%w: %w %s at %v", common.ErrInvalidBar, errNonIncreasingBarTime, symbol, bars[i].Time)
		}
	}
	cp := make([]*kline.Kline, len(bars))
	copy(cp, bars)
	return &Series{symbol: symbol, bars: cp}, nil
}

// GroupBySymbol splits a mixed slice of bars into one Series per symbol,
// keeping the order bars were supplied in
func GroupBySymbol(bars []*kline.Kline) ([]*Series, error) {
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	grouped := make(map[string][]*kline.Kline)
	for i := range bars {
		if bars[i] == nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidBar, common.ErrNilEvent)
		}
		grouped[bars[i].Symbol] = append(grouped[bars[i].Symbol], bars[i])
	}
	symbols := make([]string, 0, len(grouped))
	for s := range grouped {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	resp := make([]*Series, 0, len(symbols))
	for _, s := range symbols {
		series, err := NewSeries(s, grouped[s])
		if err != nil {
			return nil, err
		}
		resp = append(resp, series)
	}
	return resp, nil
}

// Symbol returns the series symbol
func (s *Series) Symbol() string {
	return s.symbol
}

// NewCursor returns a cursor positioned before the first bar of the series
func NewCursor(s *Series) *Base {
	return &Base{series: s}
}

// NewHolder creates a fresh set of cursors over the supplied series
func NewHolder(series []*Series) (*HandlerHolder, error) {
	if len(series) == 0 {
		return nil, ErrNoData
	}
	h := &HandlerHolder{data: make(map[string]*Base, len(series))}
	seen := make(map[int64]struct{})
	for i := range series {
		if series[i] == nil {
			return nil, common.ErrNilArguments
		}
		sym := series[i].symbol
		if _, ok := h.data[sym]; ok {
			return nil, fmt.Errorf("%w %s", errDuplicateSeries, sym)
		}
		h.data[sym] = NewCursor(series[i])
		h.symbols = append(h.symbols, sym)
		for _, b := range series[i].bars {
			k := b.Time.UnixNano()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			h.timestamps = append(h.timestamps, b.Time.UTC())
		}
	}
	sort.Strings(h.symbols)
	sort.Slice(h.timestamps, func(i, j int) bool {
		return h.timestamps[i].Before(h.timestamps[j])
	})
	return h, nil
}

// Symbols returns all symbols in lexical order
func (h *HandlerHolder) Symbols() []string {
	return slices.Clone(h.symbols)
}

// Timestamps returns the sorted union of every series' timestamps
func (h *HandlerHolder) Timestamps() []time.Time {
	return slices.Clone(h.timestamps)
}

// HasSymbol reports whether the symbol has a series
func (h *HandlerHolder) HasSymbol(symbol string) bool {
	_, ok := h.data[symbol]
	return ok
}

// GetDataForSymbol returns the cursor for a symbol
func (h *HandlerHolder) GetDataForSymbol(symbol string) (*Base, error) {
	d, ok := h.data[symbol]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrHandlerNotFound, symbol)
	}
	return d, nil
}

// AdvanceTo moves every cursor to t and returns the bars stamped exactly at t
func (h *HandlerHolder) AdvanceTo(t time.Time) map[string]*kline.Kline {
	current := make(map[string]*kline.Kline, len(h.symbols))
	for _, s := range h.symbols {
		if k, ok := h.data[s].AdvanceTo(t); ok {
			current[s] = k
		}
	}
	return current
}

// AdvanceTo consumes bars up to and including t. It returns the bar stamped
// exactly at t, if there is one
func (b *Base) AdvanceTo(t time.Time) (*kline.Kline, bool) {
	b.current = nil
	for b.offset < len(b.series.bars) && !b.series.bars[b.offset].Time.After(t) {
		b.latest = b.series.bars[b.offset]
		b.offset++
	}
	if b.latest != nil && b.latest.Time.Equal(t) {
		b.current = b.latest
		return b.current, true
	}
	return nil, false
}

// Current returns the bar at the current tick, or nil when the symbol has
// no bar at the tick
func (b *Base) Current() *kline.Kline {
	return b.current
}

// Offset returns how many bars have been consumed
func (b *Base) Offset() int64 {
	return int64(b.offset)
}

// IsLastEvent reports whether every bar has been consumed
func (b *Base) IsLastEvent() bool {
	return b.offset >= len(b.series.bars)
}

// StreamClose returns the close prices of the last n consumed bars, or of
// every consumed bar when n is not positive
func (b *Base) StreamClose(n int) []decimal.Decimal {
	from := 0
	if n > 0 && b.offset > n {
		from = b.offset - n
	}
	h := b.series.bars[from:b.offset]
	resp := make([]decimal.Decimal, len(h))
	for i := range h {
		resp[i] = h[i].Close
	}
	return resp
}
