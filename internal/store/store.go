// Package store provides persistence for positions, risk state, and
// the trade log.
package store

import (
	"context"
	"time"

	"kite-levels-trader/internal/models"
)

// PositionSnapshot captures an open position together with the exit
// parameters needed to resume managing it after a restart.
type PositionSnapshot struct {
	Position       models.Position
	ATR            float64
	ActivationMult float64
	TrailMult      float64
	OppositeLevel  float64
	SavedAt        time.Time
}

// RiskSnapshot captures the session risk state for crash recovery.
type RiskSnapshot struct {
	Date       string // trading day, 2006-01-02
	DailyPnL   float64
	Halted     bool
	HaltReason string
}

// Store persists trading state. Implementations must be safe to call
// from the engine goroutine while queries run elsewhere.
type Store interface {
	// Positions: the saved set always reflects the currently open
	// positions, replaced wholesale on every mutation.
	SavePositions(ctx context.Context, snapshots []PositionSnapshot) error
	LoadPositions(ctx context.Context) ([]PositionSnapshot, error)

	// Risk state
	SaveRiskState(ctx context.Context, snap RiskSnapshot) error
	LoadRiskState(ctx context.Context, date string) (RiskSnapshot, bool, error)

	// Trade log
	LogTrade(ctx context.Context, trade models.Trade) error
	GetTrades(ctx context.Context, from, to time.Time) ([]models.Trade, error)

	Close() error
}
