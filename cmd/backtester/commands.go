package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/common/file"
	"github.com/tickforge/backtester/config"
	"github.com/tickforge/backtester/engine"
	"github.com/tickforge/backtester/log"
	"github.com/urfave/cli/v2"
)

var errNoResults = errors.New("no results produced")

var configFlag = &cli.StringFlag{
	Name:     "config",
	Aliases:  []string{"c"},
	Usage:    "path to a json, yaml or toml run config",
	Required: true,
}

var outputFlag = &cli.StringFlag{
	Name:    "output",
	Aliases: []string{"o"},
	Usage:   "writes the json result to this file instead of stdout",
}

var runCommand = &cli.Command{
	Name:   "run",
	Usage:  "executes a single run from a config file",
	Flags:  []cli.Flag{configFlag, outputFlag},
	Action: run,
}

var sweepCommand = &cli.Command{
	Name:  "sweep",
	Usage: "executes one run per slippage and commission rate pair, in parallel",
	Flags: []cli.Flag{
		configFlag,
		outputFlag,
		&cli.StringFlag{
			Name:  "slippage",
			Usage: "comma separated slippage rates, eg 0,0.0005,0.001",
		},
		&cli.StringFlag{
			Name:  "commission",
			Usage: "comma separated commission rates",
		},
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "maximum concurrent runs, 0 uses every cpu",
		},
	},
	Action: sweep,
}

var validateCommand = &cli.Command{
	Name:   "validate",
	Usage:  "loads and validates a config file then prints its settings",
	Flags:  []cli.Flag{configFlag},
	Action: validate,
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	logCfg := log.GenDefaultSettings()
	logCfg.Output = "stderr"
	if cfg.LogSettings != nil {
		logCfg = *cfg.LogSettings
	}
	if lvl := c.String("loglevel"); lvl != "" {
		logCfg.Level = lvl
	}
	if err := log.SetupGlobalLogger(&logCfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	bt, err := engine.NewFromConfig(c.Context, cfg)
	if err != nil {
		return err
	}
	res, runErr := bt.Run(c.Context)
	if res == nil {
		return runErr
	}
	if res.Metrics != nil {
		res.Metrics.PrintResults()
	}
	return errors.Join(runErr, output(c, res))
}

func sweep(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	var g engine.Grid
	if g.SlippageRates, err = parseRates(c.String("slippage")); err != nil {
		return fmt.Errorf("slippage: %w", err)
	}
	if g.CommissionRates, err = parseRates(c.String("commission")); err != nil {
		return fmt.Errorf("commission: %w", err)
	}
	rm := engine.SetupRunManager()
	if _, err = rm.SweepFromConfig(c.Context, cfg, g); err != nil {
		return err
	}
	results, runErr := rm.RunAll(c.Context, c.Int("parallel"))
	var done []*engine.Result
	for _, res := range results {
		if res != nil {
			done = append(done, res)
		}
	}
	if len(done) == 0 {
		return errors.Join(runErr, errNoResults)
	}
	return errors.Join(runErr, output(c, done))
}

func validate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	cfg.PrintSetting()
	return nil
}

// parseRates splits a comma separated list of decimals. An empty string
// returns no rates
func parseRates(s string) ([]decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	resp := make([]decimal.Decimal, 0, len(parts))
	for _, p := range parts {
		d, err := decimal.NewFromString(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("%w: negative rate %v", common.ErrInvalidConfig, d)
		}
		resp = append(resp, d)
	}
	return resp, nil
}

func output(c *cli.Context, v any) error {
	if path := c.String(outputFlag.Name); path != "" {
		return file.WriteJSON(path, v)
	}
	j, err := json.MarshalIndent(v, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(j))
	return err
}
