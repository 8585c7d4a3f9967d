package engine

import (
	"context"
	"fmt"
	"runtime"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/config"
	"github.com/tickforge/backtester/log"
	"golang.org/x/sync/errgroup"
)

// SetupRunManager creates a run manager to execute multiple runs
func SetupRunManager() *RunManager {
	return &RunManager{}
}

// AddRun adds a run to the manager
func (r *RunManager) AddRun(b *BackTest) error {
	if r == nil {
		return fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	if b == nil {
		return fmt.Errorf("%w BackTest", common.ErrNilPointer)
	}
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.runs {
		if r.runs[i].Equal(b) {
			return fmt.Errorf("%w %s %s", errRunAlreadyMonitored, b.MetaData.ID, b.MetaData.Nickname)
		}
	}
	r.runs = append(r.runs, b)
	return nil
}

// List details all runs
func (r *RunManager) List() []RunSummary {
	r.m.Lock()
	defer r.m.Unlock()
	resp := make([]RunSummary, len(r.runs))
	for i := range r.runs {
		resp[i] = r.runs[i].GenerateSummary()
	}
	return resp
}

func (r *RunManager) find(id uuid.UUID) (*BackTest, error) {
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.runs {
		if r.runs[i].MatchesID(id) {
			return r.runs[i], nil
		}
	}
	return nil, fmt.Errorf("%s %w", id, errRunNotFound)
}

// GetSummary returns details about a run
func (r *RunManager) GetSummary(id uuid.UUID) (*RunSummary, error) {
	b, err := r.find(id)
	if err != nil {
		return nil, err
	}
	s := b.GenerateSummary()
	return &s, nil
}

// GetResult returns the result of a finished run
func (r *RunManager) GetResult(id uuid.UUID) (*Result, error) {
	b, err := r.find(id)
	if err != nil {
		return nil, err
	}
	return b.GetResult()
}

// StartRun executes a run and waits for it to finish
func (r *RunManager) StartRun(ctx context.Context, id uuid.UUID) (*Result, error) {
	b, err := r.find(id)
	if err != nil {
		return nil, err
	}
	return b.Run(ctx)
}

// RunAll executes every run that has not started, at most parallel at a
// time. Runs share nothing mutable, so one failing run does not stop the
// others; their errors are joined. Results keep the order runs were added
func (r *RunManager) RunAll(ctx context.Context, parallel int) ([]*Result, error) {
	r.m.Lock()
	var pending []*BackTest
	for i := range r.runs {
		if !r.runs[i].HasRan() && !r.runs[i].IsRunning() {
			pending = append(pending, r.runs[i])
		}
	}
	r.m.Unlock()
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}
	results := make([]*Result, len(pending))
	errs := make([]error, len(pending))
	var g errgroup.Group
	g.SetLimit(parallel)
	for i := range pending {
		i := i
		g.Go(func() error {
			results[i], errs[i] = pending[i].Run(ctx)
			if errs[i] != nil {
				log.Errorf(log.BackTester, "run %v %s: %v", pending[i].MetaData.ID, pending[i].MetaData.Nickname, errs[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	var err error
	for i := range errs {
		err = common.AppendError(err, errs[i])
	}
	return results, err
}

// ClearRun removes a run which is not executing
func (r *RunManager) ClearRun(id uuid.UUID) error {
	r.m.Lock()
	defer r.m.Unlock()
	for i := range r.runs {
		if !r.runs[i].MatchesID(id) {
			continue
		}
		if r.runs[i].IsRunning() {
			return fmt.Errorf("%w %v, currently running", errCannotClear, id)
		}
		r.runs = append(r.runs[:i], r.runs[i+1:]...)
		return nil
	}
	return fmt.Errorf("%s %w", id, errRunNotFound)
}

// ClearAllRuns removes every run which is not executing
func (r *RunManager) ClearAllRuns() (cleared, remaining []RunSummary) {
	r.m.Lock()
	defer r.m.Unlock()
	var keep []*BackTest
	for i := range r.runs {
		s := r.runs[i].GenerateSummary()
		if s.Running {
			keep = append(keep, r.runs[i])
			remaining = append(remaining, s)
			continue
		}
		cleared = append(cleared, s)
	}
	r.runs = keep
	return cleared, remaining
}

// SweepFromConfig loads the config's data once and adds one run per
// combination of the grid's slippage and commission rates
func (r *RunManager) SweepFromConfig(ctx context.Context, cfg *config.Config, g Grid) ([]*BackTest, error) {
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
	slippages := g.SlippageRates
	if len(slippages) == 0 {
		slippages = []decimal.Decimal{cfg.ExchangeSettings.SlippageRate}
	}
	commissions := g.CommissionRates
	if len(commissions) == 0 {
		commissions = []decimal.Decimal{cfg.ExchangeSettings.CommissionRate}
	}
	var resp []*BackTest
	for _, slip := range slippages {
		for _, comm := range commissions {
			s := SettingsFromConfig(cfg)
			s.Exchange.SlippageRate = slip
			s.Exchange.CommissionRate = comm
			name := fmt.Sprintf("%s slippage %v commission %v", cfg.Nickname, slip, comm)
			b, err := New(name, series, sigs, s)
			if err != nil {
				return nil, err
			}
			if err := r.AddRun(b); err != nil {
				return nil, err
			}
			resp = append(resp, b)
		}
	}
	return resp, nil
}
