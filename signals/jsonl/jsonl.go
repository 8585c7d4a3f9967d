package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/buger/jsonparser"
	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/common/convert"
	"github.com/tickforge/backtester/eventtypes/signal"
	"github.com/tickforge/backtester/log"
)

var (
	errEmptyFilePath   = errors.New("empty json lines file path")
	errUnexpectedValue = errors.New("unexpected value type")
)

const maxLineSize = 1 << 20

// Source reads one JSON object per line, for example
// {"timestamp":"2024-01-01T00:00:00Z","symbol":"X","direction":"long","strength":0.5}
// timestamp may also be a unix number. Numeric fields may be JSON numbers
// or strings so exact decimals survive
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

// Read parses every non-blank line of r
func Read(r io.Reader) ([]*signal.Signal, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var resp []*signal.Signal
	for line := 1; scanner.Scan(); line++ {
		b := bytes.TrimSpace(scanner.Bytes())
		if len(b) == 0 {
			continue
		}
		s, err := parseLine(b)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		resp = append(resp, s)
	}
	return resp, scanner.Err()
}

func parseLine(b []byte) (*signal.Signal, error) {
	s := &signal.Signal{}
	var err error
	if s.Symbol, err = jsonparser.GetString(b, "symbol"); err != nil {
		return nil, fmt.Errorf("symbol: %w", err)
	}
	v, vt, _, err := jsonparser.Get(b, "timestamp")
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	if vt != jsonparser.String && vt != jsonparser.Number {
		return nil, fmt.Errorf("timestamp: %w %s", errUnexpectedValue, vt)
	}
	if s.Time, err = convert.ParseTimestamp(string(v)); err != nil {
		return nil, err
	}
	dir, err := jsonparser.GetString(b, "direction")
	if err != nil {
		return nil, fmt.Errorf("direction: %w", err)
	}
	if s.Direction, err = common.ParseDirection(dir); err != nil {
		return nil, err
	}
	if s.Strength, err = optionalDecimal(b, "strength"); err != nil {
		return nil, err
	}
	if s.TargetWeight, err = optionalDecimal(b, "target-weight"); err != nil {
		return nil, err
	}
	if s.Quantity, err = optionalDecimal(b, "quantity"); err != nil {
		return nil, err
	}
	limit, err := optionalDecimal(b, "limit-price")
	if err != nil {
		return nil, err
	}
	if limit.Valid {
		s.LimitPrice = limit.Decimal
	}
	return s, nil
}

func optionalDecimal(b []byte, key string) (decimal.NullDecimal, error) {
	v, vt, _, err := jsonparser.Get(b, key)
	switch {
	case errors.Is(err, jsonparser.KeyPathNotFoundError), vt == jsonparser.Null:
		return decimal.NullDecimal{}, nil
	case err != nil:
		return decimal.NullDecimal{}, fmt.Errorf("%s: %w", key, err)
	case vt != jsonparser.Number && vt != jsonparser.String:
		return decimal.NullDecimal{}, fmt.Errorf("%s: %w %s", key, errUnexpectedValue, vt)
	}
	d, err := convert.DecimalFromString(string(v))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%s: %w", key, err)
	}
	return decimal.NewNullDecimal(d), nil
}
