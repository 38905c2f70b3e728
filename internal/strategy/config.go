// Package strategy implements the level-retest signal engine: support/
// resistance tracking, touch detection, and bar-close confirmation.
package strategy

import (
	"fmt"
	"time"
)

// EntryPolicy selects how the entry price is derived from a confirmed
// signal. Each strategy variant picks one explicitly.
type EntryPolicy string

const (
	// EntryAtClose enters at the confirming candle's close.
	EntryAtClose EntryPolicy = "close"
	// EntryAtOptionBand arms the mapped option contract and enters when
	// the option's own price reaches its Bollinger lower band.
	EntryAtOptionBand EntryPolicy = "option_band"
)

// Config parameterizes one strategy variant. The near-duplicate
// per-direction variants of the original system collapse into values of
// this type.
type Config struct {
	Name             string
	TradeSupports    bool // buy CE on support retest
	TradeResistances bool // buy PE on resistance retest
	IntervalMinutes  int
	ProximityFactor  float64 // |price-level|/price touch threshold, as a fraction
	MergeBandPct     float64
	ReactionLookback int
	MinReactions     int // 1 = every-touch variant
	MaxLevels        int
	EntryPolicy      EntryPolicy
	LevelCooldown    time.Duration // per-level re-touch cooldown after a trade
	ConfirmTimeout   time.Duration // confirmation that outlives this is rejected

	RSIEnabled      bool
	RSIPeriod       int
	ATREnabled      bool
	ATRPeriod       int
	BollingerPeriod int
	BollingerStdDev float64
	TickCadence     bool // recompute ATR/Bollinger on every tick
}

// Validate checks the variant for configuration errors. A failing
// variant must not prevent sibling strategies from starting.
func (c Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("strategy name is required")
	}
	if !c.TradeSupports && !c.TradeResistances {
		return fmt.Errorf("strategy %s: no trade direction enabled", c.Name)
	}
	if c.ProximityFactor <= 0 {
		return fmt.Errorf("strategy %s: proximity factor must be positive", c.Name)
	}
	if c.IntervalMinutes <= 0 {
		return fmt.Errorf("strategy %s: interval must be positive", c.Name)
	}
	if c.EntryPolicy != EntryAtClose && c.EntryPolicy != EntryAtOptionBand {
		return fmt.Errorf("strategy %s: unknown entry policy %q", c.Name, c.EntryPolicy)
	}
	if c.MinReactions <= 0 {
		return fmt.Errorf("strategy %s: min reactions must be at least 1", c.Name)
	}
	return nil
}
