package order

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tickforge/backtester/common"
	"github.com/tickforge/backtester/eventtypes/event"
)

// Status is the lifecycle state of an order
type Status string

// Order statuses
const (
	New             Status = "NEW"
	Pending         Status = "PENDING"
	PartiallyFilled Status = "PARTIALLY FILLED"
	Filled          Status = "FILLED"
	Rejected        Status = "REJECTED"
	Expired         Status = "EXPIRED"
	Canceled        Status = "CANCELED"
)

// Type is the order type
type Type string

// Order types
const (
	Market Type = "MARKET"
	Limit  Type = "LIMIT"
)

// RejectionReason explains why an order was refused by the order manager
type RejectionReason string

// Rejection reasons
const (
	InvalidQuantity   RejectionReason = "InvalidQuantity"
	UnknownSymbol     RejectionReason = "UnknownSymbol"
	NoMarketData      RejectionReason = "NoMarketData"
	InsufficientFunds RejectionReason = "InsufficientFunds"
	ShortNotAllowed   RejectionReason = "ShortNotAllowed"
	InvalidLimitPrice RejectionReason = "InvalidLimitPrice"
)

// ErrInvalidTransition is returned when a status change is not permitted
var ErrInvalidTransition = errors.New("invalid order status transition")

// Order is a request to trade owned by the order manager until it reaches a
// terminal status
type Order struct {
	event.Base
	ID             int64           `json:"id"`
	Side           common.Side     `json:"side"`
	Type           Type            `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	FilledQuantity decimal.Decimal `json:"filled-quantity"`
	LimitPrice     decimal.Decimal `json:"limit-price"`
	Status         Status          `json:"status"`
	// ForcedClose is set for risk manager liquidations, which bypass
	// pre-trade checks and buying power
	ForcedClose   bool            `json:"forced-close,omitempty"`
	BarsEvaluated int             `json:"bars-evaluated"`
	Rejection     RejectionReason `json:"rejection,omitempty"`
	UpdatedAt     time.Time       `json:"updated-at"`
}
