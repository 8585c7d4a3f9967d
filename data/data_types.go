package data

import (
	"context"
	"errors"
	"time"

	"github.com/tickforge/backtester/eventtypes/kline"
)

var (
	// ErrHandlerNotFound returned when a handler is not found for specified symbol
	ErrHandlerNotFound = errors.New("handler not found")
	// ErrNoData is returned when a source yields no bars
	ErrNoData = errors.New("no data")

	errSymbolMismatch       = errors.New("bar symbol does not match series")
	errNonIncreasingBarTime = errors.New("bar timestamps must be strictly increasing")
	errDuplicateSeries      = errors.New("duplicate series for symbol")
)

// Loader is implemented by every bar source. Loading happens once before a
// run starts and returns bars for any number of symbols
type Loader interface {
	Load(ctx context.Context) ([]*kline.Kline, error)
}

// Series is a validated, time ordered sequence of bars for one symbol.
// It is never mutated after creation and is safe to share between runs
type Series struct {
	symbol string
	bars   []*kline.Kline
}

// Base is a per run cursor over a Series
type Base struct {
	series  *Series
	offset  int
	current *kline.Kline
	latest  *kline.Kline
}

// HandlerHolder owns the cursors for every symbol in a run and the sorted
// union of their timestamps
type HandlerHolder struct {
	data       map[string]*Base
	symbols    []string
	timestamps []time.Time
}
