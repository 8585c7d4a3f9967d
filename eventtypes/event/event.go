package event

import (
	"strings"
	"time"
)

// GetOffset returns the offset
func (b *Base) GetOffset() int64 {
	return b.Offset
}

// SetOffset sets the offset
func (b *Base) SetOffset(o int64) {
	b.Offset = o
}

// GetTime returns the time
func (b *Base) GetTime() time.Time {
	return b.Time.UTC()
}

// GetSymbol returns the symbol the event relates to
func (b *Base) GetSymbol() string {
	return b.Symbol
}

// GetReason returns the accumulated reasons for the event
func (b *Base) GetReason() string {
	return b.Reason
}

// AppendReason adds reasoning for a decision being made
func (b *Base) AppendReason(y string) {
	y = strings.TrimSpace(y)
	if y == "" {
		return
	}
	if b.Reason == "" {
		b.Reason = y
		return
	}
	b.Reason += ". " + y
}
