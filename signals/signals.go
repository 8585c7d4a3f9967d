// Package signals holds the sources of trade intents fed to a run
package signals

import (
	"context"
	"sort"

	"github.com/tickforge/backtester/eventtypes/signal"
)

// Source yields every signal for a run up front
type Source interface {
	Load(ctx context.Context) ([]*signal.Signal, error)
}

// Static is a Source over an in-memory slice
type Static []*signal.Signal

// Load implements Source
func (s Static) Load(context.Context) ([]*signal.Signal, error) {
	return s, nil
}

// Sort orders signals by time then symbol, keeping input order for ties
func Sort(s []*signal.Signal) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].Time.Equal(s[j].Time) {
			return s[i].Time.Before(s[j].Time)
		}
		return s[i].Symbol < s[j].Symbol
	})
}
