package csv

import (
	"bufio"
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
	"github.com/tickforge/backtester/eventtypes/kline"
	"github.com/tickforge/backtester/log"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	errNoSymbol       = errors.New("no symbol column and no default symbol configured")
	errMissingColumn  = errors.New("missing required column")
	errShortRow       = errors.New("row has too few fields")
	errEmptyFilePath  = errors.New("empty csv file path")
	errUnknownColumns = errors.New("header contains no recognised columns")
)

// headerless files follow the column order timestamp,volume,open,high,low,close
var defaultColumns = map[string]int{
	colTime:   0,
	colVolume: 1,
	colOpen:   2,
	colHigh:   3,
	colLow:    4,
	colClose:  5,
}

const (
	colTime   = "timestamp"
	colSymbol = "symbol"
	colOpen   = "open"
	colHigh   = "high"
	colLow    = "low"
	colClose  = "close"
	colVolume = "volume"
)

var aliases = map[string]string{
	"timestamp": colTime,
	"time":      colTime,
	"date":      colTime,
	"datetime":  colTime,
	"ts":        colTime,
	"symbol":    colSymbol,
	"ticker":    colSymbol,
	"open":      colOpen,
	"o":         colOpen,
	"high":      colHigh,
	"h":         colHigh,
	"low":       colLow,
	"l":         colLow,
	"close":     colClose,
	"c":         colClose,
	"volume":    colVolume,
	"vol":       colVolume,
	"v":         colVolume,
}

// Loader reads bars from a CSV file. Files may be UTF-8 or UTF-16 with a BOM
type Loader struct {
	Path string
	// Symbol is used for every row when the file has no symbol column
	Symbol string
	// HasHeader makes the first row select columns by name
	HasHeader bool
}

// Load implements data.Loader
func (l *Loader) Load(_ context.Context) ([]*kline.Kline, error) {
	if l.Path == "" {
		return nil, errEmptyFilePath
	}
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Errorln(log.DataLoader, closeErr)
		}
	}()
	bars, err := l.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.Path, err)
	}
	log.Infof(log.DataLoader, "loaded %d bars from %s", len(bars), l.Path)
	return bars, nil
}

// Read parses bars from r
func (l *Loader) Read(r io.Reader) ([]*kline.Kline, error) {
	reader := csv.NewReader(decodeBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	cols := defaultColumns
	if l.HasHeader {
		header, err := reader.Read()
		if err != nil {
			return nil, err
		}
		cols, err = columnsFromHeader(header)
		if err != nil {
			return nil, err
		}
	}
	_, hasSymbol := cols[colSymbol]
	if !hasSymbol && l.Symbol == "" {
		return nil, errNoSymbol
	}
	width := 0
	for _, idx := range cols {
		width = max(width, idx+1)
	}

	var resp []*kline.Kline
	line := 1
	if l.HasHeader {
		line++
	}
	for ; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) < width {
			return nil, fmt.Errorf("line %d: %w, expected %d received %d", line, errShortRow, width, len(row))
		}
		k, err := parseRow(row, cols, l.Symbol)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", common.ErrInvalidBar, line, err)
		}
		resp = append(resp, k)
	}
	return resp, nil
}

func parseRow(row []string, cols map[string]int, symbol string) (*kline.Kline, error) {
	k := &kline.Kline{}
	if idx, ok := cols[colSymbol]; ok && strings.TrimSpace(row[idx]) != "" {
		symbol = strings.TrimSpace(row[idx])
	}
	k.Symbol = symbol
	var err error
	k.Time, err = convert.ParseTimestamp(row[cols[colTime]])
	if err != nil {
		return nil, err
	}
	fields := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{colOpen, &k.Open},
		{colHigh, &k.High},
		{colLow, &k.Low},
		{colClose, &k.Close},
		{colVolume, &k.Volume},
	}
	for i := range fields {
		idx, ok := cols[fields[i].name]
		if !ok {
			continue
		}
		*fields[i].dst, err = convert.DecimalFromString(row[idx])
		if err != nil {
			return nil, err
		}
	}
	return k, nil
}

func columnsFromHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int)
	for i := range header {
		name := strings.ToLower(strings.Trim(strings.TrimSpace(header[i]), "\""))
		if c, ok := aliases[name]; ok {
			if _, dup := cols[c]; !dup {
				cols[c] = i
			}
		}
	}
	if len(cols) == 0 {
		return nil, errUnknownColumns
	}
	for _, req := range []string{colTime, colOpen, colHigh, colLow, colClose} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("%w %q", errMissingColumn, req)
		}
	}
	return cols, nil
}

// decodeBOM wraps r with a UTF-16 decoder when a UTF-16 byte order mark is
// present and strips a UTF-8 BOM otherwise
func decodeBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	b, _ := br.Peek(3)
	switch {
	case len(b) >= 2 && ((b[0] == 0xFF && b[1] == 0xFE) || (b[0] == 0xFE && b[1] == 0xFF)):
		return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
	case len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF:
		_, _ = br.Discard(3)
	}
	return br
}
