package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/config"
	"github.com/tickforge/backtester/data"
	"github.com/tickforge/backtester/data/kline/clickhouse"
	"github.com/tickforge/backtester/data/kline/csv"
	"github.com/tickforge/backtester/data/kline/database"
	"github.com/tickforge/backtester/eventhandlers/exchange"
	"github.com/tickforge/backtester/eventhandlers/portfolio"
	"github.com/tickforge/backtester/eventhandlers/portfolio/risk"
	"github.com/tickforge/backtester/eventhandlers/portfolio/size"
	"github.com/tickforge/backtester/eventhandlers/statistics"
	"github.com/tickforge/backtester/eventtypes/kline"
	"github.com/tickforge/backtester/eventtypes/signal"
	"github.com/tickforge/backtester/log"
	"github.com/tickforge/backtester/signals"
	signalcsv "github.com/tickforge/backtester/signals/csv"
	"github.com/tickforge/backtester/signals/jsonl"
	"github.com/tickforge/backtester/signals/rsi"
)

// New creates a run over the series and signals. Configuration errors are
// returned before any state is built
func New(nickname string, series []*data.Series, sigs []*signal.Signal, s *Settings) (*BackTest, error) {
	if s == nil {
		return nil, fmt.Errorf("%w settings", common.ErrNilArguments)
	}
	if len(series) == 0 {
		return nil, errNoSeries
	}
	settings := *s
	if !settings.Statistics.TicksPerYear.IsPositive() {
		return nil, fmt.Errorf("%w: ticks per year must be positive", common.ErrInvalidConfig)
	}
	if settings.Statistics.InitialFunds.IsZero() {
		settings.Statistics.InitialFunds = settings.InitialFunds
	}
	holder, err := data.NewHolder(series)
	if err != nil {
		return nil, err
	}
	bt := &BackTest{
		settings: settings,
		data:     holder,
		exchange: &exchange.Exchange{},
	}
	if err = bt.exchange.Setup(settings.Exchange, holder.Symbols()); err != nil {
		return nil, err
	}
	if bt.portfolio, err = portfolio.Setup(settings.InitialFunds); err != nil {
		return nil, err
	}
	if bt.risk, err = risk.Setup(settings.Limits); err != nil {
		return nil, err
	}
	if bt.sizer, err = size.Setup(settings.Size); err != nil {
		return nil, err
	}
	bt.signals = make([]*signal.Signal, 0, len(sigs))
	for i := range sigs {
		if sigs[i] == nil {
			continue
		}
		cp := *sigs[i]
		bt.signals = append(bt.signals, &cp)
	}
	signals.Sort(bt.signals)
	if err = bt.SetupMetaData(nickname); err != nil {
		return nil, err
	}
	return bt, nil
}

// NewFromConfig validates the config, loads its bars and signals and
// returns a run ready to execute
func NewFromConfig(ctx context.Context, cfg *config.Config) (*BackTest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	series, err := LoadBars(ctx, cfg)
	if err != nil {
		return nil, err
	}
	sigs, err := LoadSignals(ctx, cfg, series)
	if err != nil {
		return nil, err
	}
	return New(cfg.Nickname, series, sigs, SettingsFromConfig(cfg))
}

// SetupMetaData assigns a fresh run ID
func (bt *BackTest) SetupMetaData(nickname string) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}
	bt.MetaData = MetaData{
		ID:         id,
		Nickname:   nickname,
		DateLoaded: time.Now().UTC(),
	}
	return nil
}

// SettingsFromConfig maps a validated config onto run settings
func SettingsFromConfig(cfg *config.Config) *Settings {
	return &Settings{
		InitialFunds: cfg.FundingSettings.InitialFunds,
		Exchange: exchange.Settings{
			CommissionRate:    cfg.ExchangeSettings.CommissionRate,
			FixedFee:          cfg.ExchangeSettings.FixedFee,
			SlippageRate:      cfg.ExchangeSettings.SlippageRate,
			LimitExpiryBars:   cfg.ExchangeSettings.LimitExpiryBars,
			MaxVolumeFraction: cfg.ExchangeSettings.MaxVolumeFraction,
			AllowShort:        cfg.ExchangeSettings.AllowShort,
		},
		Limits: risk.Limits{
			MaxPositionNotional: cfg.RiskSettings.MaxPositionNotional,
			MaxGrossExposure:    cfg.RiskSettings.MaxGrossExposure,
			MaxDrawdownFraction: cfg.RiskSettings.MaxDrawdownFraction,
			StopLossFraction:    cfg.RiskSettings.StopLossFraction,
		},
		Size: size.Settings{
			DefaultPositionFraction: cfg.SizeSettings.DefaultPositionFraction,
			MaxOrderQuantity:        cfg.SizeSettings.MaxOrderQuantity,
			QuantityStep:            cfg.SizeSettings.QuantityStep,
		},
		Statistics: statistics.Settings{
			TicksPerYear: cfg.StatisticSettings.TicksPerYear,
			RiskFreeRate: cfg.StatisticSettings.RiskFreeRate,
			InitialFunds: cfg.FundingSettings.InitialFunds,
		},
	}
}

// LoadBars reads every bar from the configured source and groups them into
// validated series. Any invalid bar fails the load with common.ErrInvalidBar
func LoadBars(ctx context.Context, cfg *config.Config) ([]*data.Series, error) {
	var loaders []data.Loader
	switch cfg.DataSettings.Source {
	case config.SourceCSV:
		for _, f := range cfg.DataSettings.CSVFiles {
			loaders = append(loaders, &csv.Loader{Path: f.Path, Symbol: f.Symbol, HasHeader: f.HasHeader})
		}
	case config.SourceDatabase:
		loaders = append(loaders, &database.Loader{Config: *cfg.DataSettings.Database})
	case config.SourceClickHouse:
		loaders = append(loaders, &clickhouse.Loader{Config: *cfg.DataSettings.ClickHouse})
	default:
		return nil, fmt.Errorf("%w: unknown data source %q", common.ErrInvalidConfig, cfg.DataSettings.Source)
	}
	var bars []*kline.Kline
	for i := range loaders {
		b, err := loaders[i].Load(ctx)
		if err != nil {
			return nil, err
		}
		bars = append(bars, b...)
	}
	if len(bars) == 0 {
		return nil, data.ErrNoData
	}
	series, err := data.GroupBySymbol(bars)
	if err != nil {
		return nil, err
	}
	log.Infof(log.DataLoader, "loaded %d bars across %d symbols from %s", len(bars), len(series), cfg.DataSettings.Source)
	return series, nil
}

// LoadSignals reads the configured signal source. The RSI generator works
// from the already loaded series
func LoadSignals(ctx context.Context, cfg *config.Config, series []*data.Series) ([]*signal.Signal, error) {
	var src signals.Source
	switch cfg.SignalSettings.Source {
	case "", config.SignalNone:
		return nil, nil
	case config.SignalCSV:
		src = &signalcsv.Source{Path: cfg.SignalSettings.Path}
	case config.SignalJSONL:
		src = &jsonl.Source{Path: cfg.SignalSettings.Path}
	case config.SignalRSI:
		g := &rsi.Generator{
			Period:     14,
			Low:        30,
			High:       70,
			AllowShort: cfg.ExchangeSettings.AllowShort,
			Series:     series,
		}
		if r := cfg.SignalSettings.RSI; r != nil {
			g.Period, g.Low, g.High = r.Period, r.Low, r.High
		}
		src = g
	default:
		return nil, fmt.Errorf("%w: unknown signal source %q", common.ErrInvalidConfig, cfg.SignalSettings.Source)
	}
	sigs, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof(log.SignalMgr, "loaded %d signals from %s", len(sigs), cfg.SignalSettings.Source)
	return sigs, nil
}
