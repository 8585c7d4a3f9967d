package fill

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tickforge/backtester/common"
)

func TestCashDelta(t *testing.T) {
	t.Parallel()
	f := &Fill{
		Side:       common.Buy,
		Quantity:   decimal.NewFromInt(100),
		Price:      decimal.NewFromInt(10),
		Commission: decimal.NewFromInt(1),
	}
	assert.True(t, f.Notional().Equal(decimal.NewFromInt(1000)))
	assert.True(t, f.SignedQuantity().Equal(decimal.NewFromInt(100)))
	assert.True(t, f.CashDelta().Equal(decimal.NewFromInt(-1001)))

	f.Side = common.Sell
	assert.True(t, f.SignedQuantity().Equal(decimal.NewFromInt(-100)))
	assert.True(t, f.CashDelta().Equal(decimal.NewFromInt(999)))
}
