package common

import (
	"errors"
	"time"
)

// Side is the side of an order or fill
type Side string

// Direction is the intent carried by a signal
type Direction string

// EventKind classifies a noteworthy occurrence during a run
type EventKind string

// Order sides
const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Signal directions
const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
	Flat  Direction = "FLAT"
)

// Event kinds recorded in the run log
const (
	EventRiskVeto       EventKind = "RISK VETO"
	EventOrderRejected  EventKind = "ORDER REJECTED"
	EventOrderExpired   EventKind = "EXPIRED"
	EventOrderCanceled  EventKind = "CANCELED"
	EventForcedClose    EventKind = "FORCED CLOSE"
	EventSignalDropped  EventKind = "SIGNAL DROPPED"
	EventDataError      EventKind = "DATA ERROR"
	EventSignalRejected EventKind = "SIGNAL REJECTED"
)

var (
	// ErrNilArguments is a common error response to highlight that nils were passed in
	// when they should not have been
	ErrNilArguments = errors.New("received nil argument(s)")
	// ErrNilEvent is a common error for whenever a nil event occurs when it shouldn't have
	ErrNilEvent = errors.New("nil event received")
	// ErrNilPointer is returned when a method receiver is unexpectedly nil
	ErrNilPointer = errors.New("nil pointer")
	// ErrDataError is the umbrella error for missing or malformed market data
	ErrDataError = errors.New("market data error")
	// ErrInvalidBar is returned when a bar violates low <= open,close <= high
	ErrInvalidBar = errors.New("invalid bar")
	// ErrOrderRejection is the umbrella error for an order refused by the order manager
	ErrOrderRejection = errors.New("order rejected")
	// ErrRiskVeto is the umbrella error for an order refused by the risk manager
	ErrRiskVeto = errors.New("risk veto")
	// ErrInvalidConfig is returned when a run configuration fails validation
	ErrInvalidConfig = errors.New("invalid config")
	// ErrUnknownSymbol is returned when a symbol is not part of the configured universe
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// EventRecord is a timestamped entry in the run event log
type EventRecord struct {
	Time    time.Time `json:"time"`
	Symbol  string    `json:"symbol,omitempty"`
	Kind    EventKind `json:"kind"`
	OrderID int64     `json:"order-id,omitempty"`
	Reason  string    `json:"reason"`
}

// Opposite returns the other side
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// IsValid returns whether the direction is one of the known values
func (d Direction) IsValid() bool {
	switch d {
	case Long, Short, Flat:
		return true
	}
	return false
}
