package kline

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventtypes/event"
)

func bar(o, h, l, c, v float64) *Kline {
	return &Kline{
		Base:   event.Base{Time: time.Unix(1700000000, 0), Symbol: "X"},
		Open:   decimal.NewFromFloat(o),
		High:   decimal.NewFromFloat(h),
		Low:    decimal.NewFromFloat(l),
		Close:  decimal.NewFromFloat(c),
		Volume: decimal.NewFromFloat(v),
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	assert.NoError(t, bar(10, 11, 9, 10.5, 0).Validate())

	var nilKline *Kline
	assert.ErrorIs(t, nilKline.Validate(), common.ErrInvalidBar)

	for name, k := range map[string]*Kline{
		"zero close":      bar(10, 11, 9, 0, 1),
		"negative low":    bar(10, 11, -1, 10, 1),
		"negative volume": bar(10, 11, 9, 10, -1),
		"low above high":  bar(10, 9, 11, 10, 1),
		"close above":     bar(10, 11, 9, 12, 1),
		"open below":      bar(8, 11, 9, 10, 1),
	} {
		assert.ErrorIs(t, k.Validate(), common.ErrInvalidBar, name)
	}

	k := bar(10, 11, 9, 10, 1)
	k.Symbol = ""
	assert.ErrorIs(t, k.Validate(), common.ErrInvalidBar)
	k = bar(10, 11, 9, 10, 1)
	k.Time = time.Time{}
	assert.ErrorIs(t, k.Validate(), common.ErrInvalidBar)
}
