package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickforge/backtester/common"
)

const testConfig = `{
 "nickname": "x-buy-and-hold",
 "data-settings": {
  "source": "csv",
  "csv-files": [{"path": "x.csv", "symbol": "X", "has-header": true}]
 },
 "signal-settings": {"source": "jsonl", "path": "signals.jsonl"},
 "funding-settings": {"initial-funds": "10000"},
 "exchange-settings": {
  "commission-rate": 0.001,
  "slippage-rate": "0",
  "limit-expiry-bars": 3,
  "allow-short": false
 },
 "risk-settings": {"max-gross-exposure": 1.5, "stop-loss-fraction": "0.1"},
 "statistic-settings": {"ticks-per-year": 365}
}`

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	c, err := LoadConfig([]byte(testConfig))
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, "x-buy-and-hold", c.Nickname)
	require.Len(t, c.DataSettings.CSVFiles, 1)
	assert.Equal(t, CSVFile{Path: "x.csv", Symbol: "X", HasHeader: true}, c.DataSettings.CSVFiles[0])
	assert.Equal(t, SignalJSONL, c.SignalSettings.Source)
	assert.True(t, c.FundingSettings.InitialFunds.Equal(decimal.NewFromInt(10000)))
	assert.True(t, c.ExchangeSettings.CommissionRate.Equal(decimal.NewFromFloat(0.001)))
	assert.True(t, c.ExchangeSettings.SlippageRate.IsZero())
	assert.Equal(t, 3, c.ExchangeSettings.LimitExpiryBars)
	assert.False(t, c.ExchangeSettings.AllowShort)
	assert.True(t, c.RiskSettings.MaxGrossExposure.Equal(decimal.NewFromFloat(1.5)))
	assert.True(t, c.RiskSettings.StopLossFraction.Equal(decimal.NewFromFloat(0.1)))
	assert.True(t, c.StatisticSettings.TicksPerYear.Equal(decimal.NewFromInt(365)))
	assert.True(t, c.StatisticSettings.RiskFreeRate.Equal(decimal.NewFromFloat(0.02)), "missing keys keep defaults")
	assert.True(t, c.SizeSettings.DefaultPositionFraction.Equal(decimal.NewFromFloat(0.1)))

	_, err = LoadConfig([]byte("{"))
	assert.Error(t, err)
	_, err = LoadConfig([]byte(`{"funding-settings": {"initial-funds": "lots"}}`))
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestLoadConfigDatabaseDates(t *testing.T) {
	t.Parallel()
	c, err := LoadConfig([]byte(`{"data-settings": {"source": "database", "database": {
		"driver": "sqlite3", "database": "bars.db", "symbols": ["A", "B"],
		"start-date": "2024-01-01T00:00:00Z"}}}`))
	require.NoError(t, err)
	require.NotNil(t, c.DataSettings.Database)
	assert.Equal(t, []string{"A", "B"}, c.DataSettings.Database.Symbols)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), c.DataSettings.Database.Start.UTC())
	assert.NoError(t, c.Validate())
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("BACKTESTER_EXCHANGE_SETTINGS_SLIPPAGE_RATE", "0.002")
	c, err := LoadConfig([]byte(testConfig))
	require.NoError(t, err)
	assert.True(t, c.ExchangeSettings.SlippageRate.Equal(decimal.NewFromFloat(0.002)))
}

func TestEnvironmentOverridesOmittedKeys(t *testing.T) {
	t.Setenv("BACKTESTER_STATISTIC_SETTINGS_RISK_FREE_RATE", "0.05")
	t.Setenv("BACKTESTER_SIZE_SETTINGS_MAX_ORDER_QUANTITY", "7")
	t.Setenv("BACKTESTER_EXCHANGE_SETTINGS_FIXED_FEE", "1.5")
	t.Setenv("BACKTESTER_DATA_SETTINGS_DATABASE_HOST", "db.local")
	c, err := LoadConfig([]byte(testConfig))
	require.NoError(t, err)
	assert.True(t, c.StatisticSettings.RiskFreeRate.Equal(decimal.NewFromFloat(0.05)), "key only present in defaults")
	assert.True(t, c.SizeSettings.MaxOrderQuantity.Equal(decimal.NewFromInt(7)), "zero default")
	assert.True(t, c.ExchangeSettings.FixedFee.Equal(decimal.NewFromFloat(1.5)))
	require.NotNil(t, c.DataSettings.Database)
	assert.Equal(t, "db.local", c.DataSettings.Database.Host)
	assert.True(t, c.StatisticSettings.TicksPerYear.Equal(decimal.NewFromInt(365)), "file values still apply")

	c, err = LoadConfig([]byte(`{"nickname": "bare"}`))
	require.NoError(t, err)
	assert.True(t, c.StatisticSettings.TicksPerYear.Equal(decimal.NewFromInt(252)))
	assert.True(t, c.ExchangeSettings.AllowShort)
	assert.Nil(t, c.DataSettings.ClickHouse, "unset sections stay nil")
	assert.Nil(t, c.LogSettings)
}

func TestReadConfigFromFile(t *testing.T) {
	t.Parallel()
	_, err := ReadConfigFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, errFileNotFound)

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	c, err := ReadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x-buy-and-hold", c.Nickname)

	out := filepath.Join(t.TempDir(), "nested", "copy.json")
	require.NoError(t, c.WriteFile(out))
	again, err := Load(out)
	require.NoError(t, err)
	assert.True(t, again.ExchangeSettings.CommissionRate.Equal(c.ExchangeSettings.CommissionRate))
	assert.Equal(t, c.DataSettings.CSVFiles, again.DataSettings.CSVFiles)

	yml := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("nickname: yaml\ndata-settings:\n  source: clickhouse\n  clickhouse:\n    addr: localhost:9000\n"), 0o600))
	c, err = Load(yml)
	require.NoError(t, err)
	assert.Equal(t, "yaml", c.Nickname)
	assert.Equal(t, "localhost:9000", c.DataSettings.ClickHouse.Addr)

	_, err = Load("")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	var nilConfig *Config
	assert.ErrorIs(t, nilConfig.Validate(), common.ErrInvalidConfig)

	c := Default()
	err := c.Validate()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
	assert.ErrorIs(t, err, errNoDataSource)

	valid := func() *Config {
		c := Default()
		c.DataSettings = DataSettings{Source: SourceCSV, CSVFiles: []CSVFile{{Path: "a.csv"}}}
		return c
	}
	require.NoError(t, valid().Validate())

	for name, mutate := range map[string]func(*Config){
		"negative commission": func(c *Config) { c.ExchangeSettings.CommissionRate = decimal.NewFromInt(-1) },
		"negative fee":        func(c *Config) { c.ExchangeSettings.FixedFee = decimal.NewFromInt(-1) },
		"slippage of one":     func(c *Config) { c.ExchangeSettings.SlippageRate = decimal.NewFromInt(1) },
		"negative expiry":     func(c *Config) { c.ExchangeSettings.LimitExpiryBars = -1 },
		"volume fraction":     func(c *Config) { c.ExchangeSettings.MaxVolumeFraction = decimal.NewFromInt(2) },
		"negative funds":      func(c *Config) { c.FundingSettings.InitialFunds = decimal.NewFromInt(-1) },
		"drawdown":            func(c *Config) { c.RiskSettings.MaxDrawdownFraction = decimal.NewFromFloat(1.5) },
		"stop loss":           func(c *Config) { c.RiskSettings.StopLossFraction = decimal.NewFromInt(-1) },
		"position notional":   func(c *Config) { c.RiskSettings.MaxPositionNotional = decimal.NewFromInt(-1) },
		"exposure":            func(c *Config) { c.RiskSettings.MaxGrossExposure = decimal.NewFromInt(-1) },
		"size fraction":       func(c *Config) { c.SizeSettings.DefaultPositionFraction = decimal.NewFromInt(2) },
		"quantity step":       func(c *Config) { c.SizeSettings.QuantityStep = decimal.NewFromInt(-1) },
		"ticks per year":      func(c *Config) { c.StatisticSettings.TicksPerYear = decimal.Zero },
		"unknown data":        func(c *Config) { c.DataSettings.Source = "ftp" },
		"csv without path":    func(c *Config) { c.DataSettings.CSVFiles[0].Path = "" },
		"database missing":    func(c *Config) { c.DataSettings.Source = SourceDatabase },
		"unknown signal":      func(c *Config) { c.SignalSettings.Source = "tea-leaves" },
		"signal without path": func(c *Config) { c.SignalSettings.Source = SignalCSV },
	} {
		c := valid()
		mutate(c)
		assert.ErrorIs(t, c.Validate(), common.ErrInvalidConfig, name)
	}

	c = valid()
	c.ExchangeSettings.CommissionRate = decimal.NewFromInt(-1)
	c.StatisticSettings.TicksPerYear = decimal.Zero
	err = c.Validate()
	assert.ErrorIs(t, err, errNegativeValue)
	assert.ErrorContains(t, err, "ticks-per-year", "every problem is reported")
}

func TestPrintSetting(t *testing.T) {
	t.Parallel()
	Default().PrintSetting()
}
