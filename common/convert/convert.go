package convert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var errUnparsableTimestamp = errors.New("unparsable timestamp")

// unix values above this are treated as milliseconds
const millisecondThreshold = 1e11

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339, common date-time layouts, unix seconds
// or unix milliseconds and returns a UTC time
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty", errUnparsableTimestamp)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return UnixToTime(n), nil
	}
	for i := range layouts {
		if tt, err := time.Parse(layouts[i], raw); err == nil {
			return tt.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errUnparsableTimestamp, raw)
}

// UnixToTime converts either unix seconds or unix milliseconds to UTC time
func UnixToTime(n int64) time.Time {
	if n > millisecondThreshold || n < -millisecondThreshold {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// DecimalFromString parses a trimmed decimal value
func DecimalFromString(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not convert value: %q %w", raw, err)
	}
	return d, nil
}

// BoolPtr takes in boolean condition and returns pointer version of it
func BoolPtr(condition bool) *bool {
	b := condition
	return &b
}
