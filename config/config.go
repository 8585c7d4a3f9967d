package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/common/file"
	"github.com/tickforge/backtester/log"
)

// ReadConfigFromFile reads a run config from a json, yaml or toml file.
// Environment variables prefixed with EnvPrefix override file values
func ReadConfigFromFile(path string) (*Config, error) {
	if !file.Exists(path) {
		return nil, fmt.Errorf("%w: %s", errFileNotFound, path)
	}
	v := newViper()
	v.SetConfigFile(path)
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return decode(v)
}

// LoadConfig reads a JSON run config. Keys missing from data keep the
// values of Default
func LoadConfig(data []byte) (*Config, error) {
	v := newViper()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	registerKeys(v, "", reflect.ValueOf(Default()).Elem())
	return v
}

var timeType = reflect.TypeOf(time.Time{})

// registerKeys makes every config key known to v so AutomaticEnv can
// override keys the source omits. Non-zero defaults are registered as
// viper defaults, everything else is bound to its environment variable
func registerKeys(v *viper.Viper, prefix string, val reflect.Value) {
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		fv := val.Field(i)
		if opts == "squash" {
			registerKeys(v, prefix, fv)
			continue
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		key := prefix + name
		ft := f.Type
		if ft.Kind() == reflect.Pointer && ft.Elem().Kind() == reflect.Struct {
			if fv.IsNil() {
				fv = reflect.New(ft.Elem())
			}
			fv, ft = fv.Elem(), ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != decimalType && ft != timeType {
			registerKeys(v, key+".", fv)
			continue
		}
		if fv.IsZero() {
			_ = v.BindEnv(key)
			continue
		}
		if d, ok := fv.Interface().(decimal.Decimal); ok {
			v.SetDefault(key, d.String())
			continue
		}
		v.SetDefault(key, fv.Interface())
	}
}

func decode(v *viper.Viper) (*Config, error) {
	c := Default()
	err := v.Unmarshal(c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		decimalHook,
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return c, nil
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook decodes strings and numbers into decimal.Decimal fields
func decimalHook(_, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch d := data.(type) {
	case string:
		if strings.TrimSpace(d) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(d))
	case float64:
		return decimal.NewFromFloat(d), nil
	case float32:
		return decimal.NewFromFloat32(d), nil
	case int:
		return decimal.NewFromInt(int64(d)), nil
	case int64:
		return decimal.NewFromInt(d), nil
	case int32:
		return decimal.NewFromInt32(d), nil
	}
	return data, nil
}

// Default returns a config with every setting but the data and signal
// sources filled in
func Default() *Config {
	return &Config{
		SignalSettings: SignalSettings{Source: SignalNone},
		FundingSettings: FundingSettings{
			InitialFunds: decimal.NewFromInt(100000),
		},
		ExchangeSettings: ExchangeSettings{
			CommissionRate:  decimal.NewFromFloat(0.001),
			SlippageRate:    decimal.NewFromFloat(0.0005),
			LimitExpiryBars: 5,
			AllowShort:      true,
		},
		SizeSettings: SizeSettings{
			DefaultPositionFraction: decimal.NewFromFloat(0.1),
		},
		StatisticSettings: StatisticSettings{
			TicksPerYear: decimal.NewFromInt(252),
			RiskFreeRate: decimal.NewFromFloat(0.02),
		},
	}
}

// Validate checks all config settings and returns every problem found,
// each wrapping common.ErrInvalidConfig
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, common.ErrNilPointer)
	}
	var errs error
	for _, err := range []error{
		c.validateData(),
		c.validateSignals(),
		c.validateFunding(),
		c.validateExchange(),
		c.validateRisk(),
		c.validateSize(),
		c.validateStatistics(),
	} {
		if err != nil {
			errs = common.AppendError(errs, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err))
		}
	}
	return errs
}

func (c *Config) validateData() error {
	switch c.DataSettings.Source {
	case "":
		return errNoDataSource
	case SourceCSV:
		if len(c.DataSettings.CSVFiles) == 0 {
			return fmt.Errorf("csv-files %w", errMissingPath)
		}
		for i := range c.DataSettings.CSVFiles {
			if c.DataSettings.CSVFiles[i].Path == "" {
				return fmt.Errorf("csv-files[%d] %w", i, errMissingPath)
			}
		}
	case SourceDatabase:
		if c.DataSettings.Database == nil {
			return fmt.Errorf("%w: database settings missing", errNoDataSource)
		}
	case SourceClickHouse:
		if c.DataSettings.ClickHouse == nil {
			return fmt.Errorf("%w: clickhouse settings missing", errNoDataSource)
		}
	default:
		return fmt.Errorf("%w %q", errUnknownDataSource, c.DataSettings.Source)
	}
	return nil
}

func (c *Config) validateSignals() error {
	switch c.SignalSettings.Source {
	case "", SignalNone, SignalRSI:
	case SignalCSV, SignalJSONL:
		if c.SignalSettings.Path == "" {
			return fmt.Errorf("signal-settings path %w", errMissingPath)
		}
	default:
		return fmt.Errorf("%w %q", errUnknownSignal, c.SignalSettings.Source)
	}
	return nil
}

func (c *Config) validateFunding() error {
	if c.FundingSettings.InitialFunds.IsNegative() {
		return fmt.Errorf("initial-funds %w", errNegativeValue)
	}
	return nil
}

func (c *Config) validateExchange() error {
	e := &c.ExchangeSettings
	switch {
	case e.CommissionRate.IsNegative():
		return fmt.Errorf("commission-rate %w", errNegativeValue)
	case e.FixedFee.IsNegative():
		return fmt.Errorf("fixed-fee %w", errNegativeValue)
	case e.SlippageRate.IsNegative():
		return fmt.Errorf("slippage-rate %w", errNegativeValue)
	case e.SlippageRate.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return errSlippageRange
	case e.LimitExpiryBars < 0:
		return fmt.Errorf("limit-expiry-bars %w", errNegativeValue)
	case !inUnitRange(e.MaxVolumeFraction):
		return fmt.Errorf("max-volume-fraction %w", errFractionRange)
	}
	return nil
}

func (c *Config) validateRisk() error {
	r := &c.RiskSettings
	switch {
	case r.MaxPositionNotional.IsNegative():
		return fmt.Errorf("max-position-notional %w", errNegativeValue)
	case r.MaxGrossExposure.IsNegative():
		return fmt.Errorf("max-gross-exposure %w", errNegativeValue)
	case !inUnitRange(r.MaxDrawdownFraction):
		return fmt.Errorf("max-drawdown-fraction %w", errFractionRange)
	case !inUnitRange(r.StopLossFraction):
		return fmt.Errorf("stop-loss-fraction %w", errFractionRange)
	}
	return nil
}

func (c *Config) validateSize() error {
	s := &c.SizeSettings
	switch {
	case !inUnitRange(s.DefaultPositionFraction):
		return fmt.Errorf("default-position-fraction %w", errFractionRange)
	case s.MaxOrderQuantity.IsNegative():
		return fmt.Errorf("max-order-quantity %w", errNegativeValue)
	case s.QuantityStep.IsNegative():
		return fmt.Errorf("quantity-step %w", errNegativeValue)
	}
	return nil
}

func (c *Config) validateStatistics() error {
	if !c.StatisticSettings.TicksPerYear.IsPositive() {
		return fmt.Errorf("ticks-per-year must be positive, received %v", c.StatisticSettings.TicksPerYear)
	}
	return nil
}

func inUnitRange(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(1))
}

// PrintSetting logs the run settings
func (c *Config) PrintSetting() {
	log.Info(log.ConfigMgr, "-------------------------------------------------------------")
	log.Infof(log.ConfigMgr, "Nickname: %s", c.Nickname)
	if c.Goal != "" {
		log.Infof(log.ConfigMgr, "Goal: %s", c.Goal)
	}
	log.Infof(log.ConfigMgr, "Data source: %s", c.DataSettings.Source)
	log.Infof(log.ConfigMgr, "Signal source: %s", c.SignalSettings.Source)
	log.Infof(log.ConfigMgr, "Initial funds: %v", c.FundingSettings.InitialFunds)
	log.Infof(log.ConfigMgr, "Commission rate: %v fixed fee: %v slippage rate: %v",
		c.ExchangeSettings.CommissionRate, c.ExchangeSettings.FixedFee, c.ExchangeSettings.SlippageRate)
	log.Infof(log.ConfigMgr, "Limit expiry bars: %d max volume fraction: %v allow short: %v",
		c.ExchangeSettings.LimitExpiryBars, c.ExchangeSettings.MaxVolumeFraction, c.ExchangeSettings.AllowShort)
	log.Infof(log.ConfigMgr, "Max position notional: %v max gross exposure: %v max drawdown: %v stop loss: %v",
		c.RiskSettings.MaxPositionNotional, c.RiskSettings.MaxGrossExposure,
		c.RiskSettings.MaxDrawdownFraction, c.RiskSettings.StopLossFraction)
	log.Infof(log.ConfigMgr, "Ticks per year: %v risk free rate: %v",
		c.StatisticSettings.TicksPerYear, c.StatisticSettings.RiskFreeRate)
	log.Info(log.ConfigMgr, "-------------------------------------------------------------")
}

// WriteFile saves the config as indented JSON
func (c *Config) WriteFile(path string) error {
	return file.WriteJSON(path, c)
}

// Load is a convenience for the command line: it reads, validates and
// returns the config at path
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, errMissingPath)
	}
	c, err := ReadConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	return c, c.Validate()
}
