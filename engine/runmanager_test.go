package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/config"
	"github.com/tickforge/backtester/data"
	"github.com/tickforge/backtester/eventtypes/signal"
)

const barsCSV = `timestamp,symbol,open,high,low,close,volume
2024-01-01T00:00:00Z,X,10,10.5,9.5,10,1000
2024-01-01T00:00:00Z,Y,20,21,19,20,1000
2024-01-02T00:00:00Z,X,10,11.5,9.5,11,1000
2024-01-02T00:00:00Z,Y,20,21,19,19.5,1000
2024-01-03T00:00:00Z,X,11,12.5,10.5,12,1000
2024-01-04T00:00:00Z,X,12,12.5,10.5,11,1000
2024-01-04T00:00:00Z,Y,19.5,21,19,21,1000
`

const signalsJSONL = `{"timestamp":"2024-01-01T00:00:00Z","symbol":"X","direction":"long","quantity":100}
{"timestamp":"2024-01-02T00:00:00Z","symbol":"Y","direction":"short","strength":0.5}
{"timestamp":"2024-01-04T00:00:00Z","symbol":"X","direction":"flat"}
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	barsPath := filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(barsPath, []byte(barsCSV), 0o600))
	sigPath := filepath.Join(dir, "signals.jsonl")
	require.NoError(t, os.WriteFile(sigPath, []byte(signalsJSONL), 0o600))

	cfg := config.Default()
	cfg.Nickname = "sweep"
	cfg.FundingSettings.InitialFunds = decimal.NewFromInt(10000)
	cfg.DataSettings = config.DataSettings{
		Source:   config.SourceCSV,
		CSVFiles: []config.CSVFile{{Path: barsPath, HasHeader: true}},
	}
	cfg.SignalSettings = config.SignalSettings{Source: config.SignalJSONL, Path: sigPath}
	return cfg
}

func testRun(t *testing.T, nickname string) *BackTest {
	t.Helper()
	bt, err := New(nickname, []*data.Series{series(t, "X", 0, 10, 11, 12)},
		[]*signal.Signal{qtySignal("X", day(0), common.Long, 10)}, settings())
	require.NoError(t, err)
	return bt
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	bt, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, bt.data.Symbols())
	assert.Len(t, bt.signals, 3)

	res, err := bt.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.EquityCurve, 4)
	require.Len(t, res.Trades, 3)
	assert.Equal(t, "X", res.Trades[0].Symbol)
	assert.Equal(t, "Y", res.Trades[1].Symbol)
	assert.True(t, res.Trades[1].PositionAfter.IsNegative())
	assert.True(t, res.Trades[2].Closing)
	assert.True(t, res.Trades[2].RealisedPNL.IsPositive())

	bad := testConfig(t)
	bad.FundingSettings.InitialFunds = decimal.NewFromInt(-1)
	_, err = NewFromConfig(context.Background(), bad)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	missing := testConfig(t)
	missing.DataSettings.CSVFiles[0].Path = filepath.Join(t.TempDir(), "nope.csv")
	_, err = NewFromConfig(context.Background(), missing)
	assert.Error(t, err)
}

func TestLoadSignalsRSI(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.SignalSettings = config.SignalSettings{
		Source: config.SignalRSI,
		RSI:    &config.RSISettings{Period: 2, Low: 30, High: 70},
	}
	series, err := LoadBars(context.Background(), cfg)
	require.NoError(t, err)
	sigs, err := LoadSignals(context.Background(), cfg, series)
	require.NoError(t, err)
	for _, s := range sigs {
		assert.NoError(t, s.Validate())
	}

	cfg.SignalSettings = config.SignalSettings{Source: config.SignalNone}
	sigs, err = LoadSignals(context.Background(), cfg, series)
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func TestRunManager(t *testing.T) {
	t.Parallel()
	rm := SetupRunManager()
	assert.ErrorIs(t, rm.AddRun(nil), common.ErrNilPointer)
	var nilRM *RunManager
	assert.ErrorIs(t, nilRM.AddRun(testRun(t, "a")), common.ErrNilPointer)

	a := testRun(t, "a")
	require.NoError(t, rm.AddRun(a))
	assert.ErrorIs(t, rm.AddRun(a), errRunAlreadyMonitored)
	b := testRun(t, "b")
	require.NoError(t, rm.AddRun(b))
	assert.Len(t, rm.List(), 2)

	_, err := rm.GetSummary(uuid.Nil)
	assert.ErrorIs(t, err, errRunNotFound)
	_, err = rm.GetResult(a.MetaData.ID)
	assert.ErrorIs(t, err, errRunHasNotRan)

	res, err := rm.StartRun(context.Background(), a.MetaData.ID)
	require.NoError(t, err)
	assert.Len(t, res.Trades, 1)
	sum, err := rm.GetSummary(a.MetaData.ID)
	require.NoError(t, err)
	assert.True(t, sum.HasRan)
	require.NotNil(t, sum.Metrics)

	results, err := rm.RunAll(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, results, 1, "only runs which have not ran are started")
	assert.Equal(t, "b", results[0].MetaData.Nickname)

	require.NoError(t, rm.ClearRun(a.MetaData.ID))
	assert.ErrorIs(t, rm.ClearRun(a.MetaData.ID), errRunNotFound)
	cleared, remaining := rm.ClearAllRuns()
	assert.Len(t, cleared, 1)
	assert.Empty(t, remaining)
	assert.Empty(t, rm.List())
}

func TestSweepFromConfig(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	rm := SetupRunManager()
	runs, err := rm.SweepFromConfig(context.Background(), cfg, Grid{
		SlippageRates:   []decimal.Decimal{decimal.Zero, decimal.NewFromFloat(0.01)},
		CommissionRates: []decimal.Decimal{decimal.Zero, decimal.NewFromFloat(0.001)},
	})
	require.NoError(t, err)
	require.Len(t, runs, 4)
	assert.Equal(t, "sweep slippage 0 commission 0", runs[0].MetaData.Nickname)
	assert.Equal(t, "sweep slippage 0.01 commission 0.001", runs[3].MetaData.Nickname)

	results, err := rm.RunAll(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i := range results {
		assert.Equal(t, runs[i].MetaData.ID, results[i].MetaData.ID, "results keep the order runs were added")
	}
	free := results[0].EquityCurve[len(results[0].EquityCurve)-1].Equity
	costly := results[3].EquityCurve[len(results[3].EquityCurve)-1].Equity
	assert.True(t, costly.LessThan(free), "costs reduce final equity")
}

func TestParallelRunsMatchSequential(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	grid := Grid{SlippageRates: []decimal.Decimal{decimal.NewFromFloat(0.002), decimal.NewFromFloat(0.004)}}

	parallel := SetupRunManager()
	_, err := parallel.SweepFromConfig(context.Background(), cfg, grid)
	require.NoError(t, err)
	pr, err := parallel.RunAll(context.Background(), 2)
	require.NoError(t, err)

	sequential := SetupRunManager()
	_, err = sequential.SweepFromConfig(context.Background(), cfg, grid)
	require.NoError(t, err)
	sr, err := sequential.RunAll(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, pr, 2)
	require.Len(t, sr, 2)
	for i := range pr {
		a, err := json.Marshal(pr[i].Trades)
		require.NoError(t, err)
		b, err := json.Marshal(sr[i].Trades)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
		a, err = json.Marshal(pr[i].Metrics)
		require.NoError(t, err)
		b, err = json.Marshal(sr[i].Metrics)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}
}
