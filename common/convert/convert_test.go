package convert

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	t.Parallel()
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{
		"2024-01-02T00:00:00Z",
		"2024-01-02 00:00:00",
		"2024-01-02",
		"1704153600",
		"1704153600000",
	} {
		got, err := ParseTimestamp(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}

	_, err := ParseTimestamp("")
	assert.ErrorIs(t, err, errUnparsableTimestamp)
	_, err = ParseTimestamp("yesterday")
	assert.ErrorIs(t, err, errUnparsableTimestamp)
}

func TestDecimalFromString(t *testing.T) {
	t.Parallel()
	d, err := DecimalFromString(" 10.50 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("10.5")))
	_, err = DecimalFromString("ten")
	assert.Error(t, err)
}

func TestBoolPtr(t *testing.T) {
	t.Parallel()
	assert.True(t, *BoolPtr(true))
	assert.False(t, *BoolPtr(false))
}
