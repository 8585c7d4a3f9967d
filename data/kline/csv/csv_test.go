package csv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickforge/backtester/common"
	"golang.org/x/text/encoding/unicode"
)

const headered = `timestamp,symbol,open,high,low,close,volume
2024-01-01T00:00:00Z,AAA,10,11,9,10.5,1000
2024-01-01T00:00:00Z,BBB,20,21,19,20.5,500
2024-01-02T00:00:00Z,AAA,10.5,12,10,11,1200
`

func TestReadHeader(t *testing.T) {
	t.Parallel()
	l := &Loader{HasHeader: true}
	bars, err := l.Read(strings.NewReader(headered))
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, "BBB", bars[1].Symbol)
	assert.True(t, bars[2].Close.Equal(decimal.NewFromInt(11)))
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[2].Time)
}

func TestReadHeaderless(t *testing.T) {
	t.Parallel()
	l := &Loader{Symbol: "X"}
	bars, err := l.Read(strings.NewReader("1704067200,100,10,11,9,10.5\n\n1704153600,200,10.5,12,10,11\n"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "X", bars[0].Symbol)
	assert.True(t, bars[0].Volume.Equal(decimal.NewFromInt(100)))
	assert.True(t, bars[0].Open.Equal(decimal.NewFromInt(10)))
	assert.True(t, bars[0].Close.Equal(decimal.NewFromFloat(10.5)))

	_, err = (&Loader{}).Read(strings.NewReader("1704067200,100,10,11,9,10.5\n"))
	assert.ErrorIs(t, err, errNoSymbol)

	_, err = l.Read(strings.NewReader("1704067200,100,10\n"))
	assert.ErrorIs(t, err, errShortRow)

	_, err = l.Read(strings.NewReader("1704067200,100,ten,11,9,10.5\n"))
	assert.ErrorIs(t, err, common.ErrInvalidBar)
}

func TestReadHeaderErrors(t *testing.T) {
	t.Parallel()
	l := &Loader{HasHeader: true, Symbol: "X"}
	_, err := l.Read(strings.NewReader("a,b,c\n"))
	assert.ErrorIs(t, err, errUnknownColumns)
	_, err = l.Read(strings.NewReader("time,open,high,low\n"))
	assert.ErrorIs(t, err, errMissingColumn)
}

func TestReadUTF16(t *testing.T) {
	t.Parallel()
	enc, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(headered)
	require.NoError(t, err)
	bars, err := (&Loader{HasHeader: true}).Read(strings.NewReader(enc))
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestReadUTF8BOM(t *testing.T) {
	t.Parallel()
	bars, err := (&Loader{HasHeader: true}).Read(strings.NewReader("\xEF\xBB\xBF" + headered))
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	_, err := (&Loader{}).Load(context.Background())
	assert.ErrorIs(t, err, errEmptyFilePath)

	_, err = (&Loader{Path: filepath.Join(t.TempDir(), "missing.csv")}).Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(headered), 0o600))
	bars, err := (&Loader{Path: path, HasHeader: true}).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}
