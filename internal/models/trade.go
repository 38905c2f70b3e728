package models

import "time"

// PositionStatus represents the lifecycle state of a position.
type PositionStatus string

const (
	PositionOpen            PositionStatus = "OPEN"
	PositionPartiallyClosed PositionStatus = "PARTIALLY_CLOSED"
	PositionClosed          PositionStatus = "CLOSED"
)

// ExitReason names the rule that closed (part of) a position.
type ExitReason string

const (
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitTrailingStop ExitReason = "TRAILING_STOP"
	ExitTarget       ExitReason = "TARGET"
	ExitPartial      ExitReason = "PARTIAL_TARGET"
	ExitLevelHit     ExitReason = "LEVEL_HIT"
	ExitEndOfDay     ExitReason = "END_OF_DAY"
	ExitShutdown     ExitReason = "SHUTDOWN"
	ExitManual       ExitReason = "MANUAL"
)

// TradeAction is the side of a fill in the trade log.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// TrailingState holds the trailing-stop state of a position.
// Once Active, TrailingStop only ever moves up for a long position.
type TrailingState struct {
	Active       bool
	ExtremePrice float64 // highest LTP seen since activation
	TrailingStop float64
}

// Position represents open exposure in a single instrument.
// Mutated tick-by-tick by the position manager only.
type Position struct {
	Instrument Instrument
	Strategy   string
	EntryPrice float64
	Quantity   int // in units (lots × lot size)
	StopLoss   float64
	Targets    []float64 // one or two ordered targets, nearest first
	Trailing   TrailingState
	EntryLevel float64 // level that produced the entry, for breach exits
	EntryTime  time.Time
	Status     PositionStatus
}

// Trade represents a completed (or partial) round trip in the trade log.
type Trade struct {
	Time       time.Time
	Symbol     string
	Exchange   Exchange
	Strategy   string
	Action     TradeAction
	Quantity   int
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Reason     ExitReason
}
