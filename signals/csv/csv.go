package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/common/convert"
	"github.com/tickforge/backtester/eventtypes/signal"
	"github.com/tickforge/backtester/log"
)

var (
	errEmptyFilePath = errors.New("empty csv file path")
	errMissingColumn = errors.New("missing required column")
)

// Source reads signals from a CSV file with a header row. Required columns
// are timestamp, symbol and direction. Optional columns are strength,
// target-weight, quantity and limit-price
type Source struct {
	Path string
}

// Load implements signals.Source
func (s *Source) Load(_ context.Context) ([]*signal.Signal, error) {
	if s.Path == "" {
		return nil, errEmptyFilePath
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Errorln(log.SignalMgr, closeErr)
		}
	}()
	resp, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	log.Infof(log.SignalMgr, "loaded %d signals from %s", len(resp), s.Path)
	return resp, nil
}

// Read parses signals from r
func Read(r io.Reader) ([]*signal.Signal, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i := range header {
		cols[strings.ToLower(strings.TrimSpace(header[i]))] = i
	}
	for _, req := range []string{"timestamp", "symbol", "direction"} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("%w %q", errMissingColumn, req)
		}
	}
	get := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var resp []*signal.Signal
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		s := &signal.Signal{}
		s.Symbol = get(row, "symbol")
		if s.Time, err = convert.ParseTimestamp(get(row, "timestamp")); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.Direction, err = common.ParseDirection(get(row, "direction")); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.Strength, err = nullDecimal(get(row, "strength")); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.TargetWeight, err = nullDecimal(get(row, "target-weight")); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if s.Quantity, err = nullDecimal(get(row, "quantity")); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if v := get(row, "limit-price"); v != "" {
			if s.LimitPrice, err = convert.DecimalFromString(v); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		resp = append(resp, s)
	}
	return resp, nil
}

func nullDecimal(v string) (decimal.NullDecimal, error) {
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := convert.DecimalFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
