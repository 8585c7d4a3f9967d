package event

import "time"

// Base is the underlying event across all actions that occur for the backtester
// Data, fill, order events all contain the base event and store important and
// consistent information
type Base struct {
	Offset int64     `json:"offset"`
	Time   time.Time `json:"time"`
	Symbol string    `json:"symbol"`
	Reason string    `json:"reason,omitempty"`
}
