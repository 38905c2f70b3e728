package trading

import (
	"time"

	"github.com/rs/zerolog"

	"kite-levels-trader/internal/errors"
)

// HaltReason names why trading is halted.
type HaltReason string

const (
	HaltNone   HaltReason = "NONE"
	HaltManual HaltReason = "MANUAL"
	HaltLimit  HaltReason = "LIMIT"
)

// RiskConfig holds the session risk limits.
type RiskConfig struct {
	MaxDailyLoss   float64 // signed, typically negative
	MaxDailyProfit float64
	HaltOnLimit    bool
	Cooldown       time.Duration // per-instrument re-entry cooldown
}

// RiskManager tracks realized daily P&L, enforces loss/profit halt
// thresholds, and manages per-instrument re-entry cooldowns. One per
// trading session; reset at the start of each trading day.
type RiskManager struct {
	logger zerolog.Logger
	cfg    RiskConfig

	dailyPnL   float64
	halted     bool
	haltReason HaltReason
	cooldowns  map[uint32]time.Time
}

// NewRiskManager creates a risk manager for one session.
func NewRiskManager(cfg RiskConfig, logger zerolog.Logger) *RiskManager {
	return &RiskManager{
		logger:     logger,
		cfg:        cfg,
		haltReason: HaltNone,
		cooldowns:  make(map[uint32]time.Time),
	}
}

// OnRealizedPnL accumulates a realized P&L delta and applies the halt
// thresholds. Returns true if this delta tripped a limit halt.
func (r *RiskManager) OnRealizedPnL(delta float64) bool {
	r.dailyPnL += delta

	if !r.cfg.HaltOnLimit || r.halted {
		return false
	}

	if r.dailyPnL <= r.cfg.MaxDailyLoss {
		r.halted = true
		r.haltReason = HaltLimit
		r.logger.Warn().Float64("daily_pnl", r.dailyPnL).Float64("limit", r.cfg.MaxDailyLoss).Msg("Daily loss limit hit, trading halted")
		return true
	}
	if r.cfg.MaxDailyProfit > 0 && r.dailyPnL >= r.cfg.MaxDailyProfit {
		r.halted = true
		r.haltReason = HaltLimit
		r.logger.Info().Float64("daily_pnl", r.dailyPnL).Float64("limit", r.cfg.MaxDailyProfit).Msg("Daily profit limit hit, trading halted")
		return true
	}
	return false
}

// CanEnter reports whether a new entry is allowed for the instrument.
func (r *RiskManager) CanEnter(token uint32, now time.Time) error {
	if r.halted {
		return errors.ErrTradingHalted
	}
	if exp, ok := r.cooldowns[token]; ok {
		if now.Before(exp) {
			return errors.ErrOnCooldown
		}
		delete(r.cooldowns, token)
	}
	return nil
}

// StartCooldown blocks re-entry on the instrument for the configured
// cooldown. Applied after every exit, winning or losing.
func (r *RiskManager) StartCooldown(token uint32, now time.Time) {
	if r.cfg.Cooldown > 0 {
		r.cooldowns[token] = now.Add(r.cfg.Cooldown)
	}
}

// IsOnCooldown reports whether the instrument is on cooldown.
func (r *RiskManager) IsOnCooldown(token uint32, now time.Time) bool {
	exp, ok := r.cooldowns[token]
	return ok && now.Before(exp)
}

// ManualHalt halts trading until manually resumed or the session resets.
func (r *RiskManager) ManualHalt() {
	r.halted = true
	r.haltReason = HaltManual
	r.logger.Warn().Msg("Trading halted manually")
}

// ManualResume resumes trading. Refused while the daily P&L is still
// beyond a limit threshold, so a limit breach cannot be silently
// overridden.
func (r *RiskManager) ManualResume() error {
	if r.cfg.HaltOnLimit {
		if r.dailyPnL <= r.cfg.MaxDailyLoss {
			return errors.NewRiskError("daily_loss", r.dailyPnL, r.cfg.MaxDailyLoss, "cannot resume beyond loss limit")
		}
		if r.cfg.MaxDailyProfit > 0 && r.dailyPnL >= r.cfg.MaxDailyProfit {
			return errors.NewRiskError("daily_profit", r.dailyPnL, r.cfg.MaxDailyProfit, "cannot resume beyond profit limit")
		}
	}
	r.halted = false
	r.haltReason = HaltNone
	r.logger.Info().Msg("Trading resumed")
	return nil
}

// ResetSession clears P&L, halt state, and cooldowns for a new day.
func (r *RiskManager) ResetSession() {
	r.dailyPnL = 0
	r.halted = false
	r.haltReason = HaltNone
	r.cooldowns = make(map[uint32]time.Time)
}

// DailyPnL returns the realized P&L for the session.
func (r *RiskManager) DailyPnL() float64 {
	return r.dailyPnL
}

// Halted returns the halt state and reason.
func (r *RiskManager) Halted() (bool, HaltReason) {
	return r.halted, r.haltReason
}
