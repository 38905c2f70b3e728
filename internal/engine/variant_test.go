package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kite-levels-trader/internal/config"
	"kite-levels-trader/internal/strategy"
)

func TestRuntimeConfigTranslation(t *testing.T) {
	raw := config.StrategyConfig{
		Name:             "retest-15m",
		Underlying:       "NIFTY 50",
		IntervalMinutes:  15,
		ProximityPct:     0.2,
		MergeBandPct:     0.5,
		ReactionLookback: 3,
		MinReactions:     2,
		MaxLevels:        3,
		TradeSupports:    true,
		EntryPolicy:      "option_band",
		CooldownMinutes:  30,
		ConfirmTimeoutSc: 45,
		RSI:              config.IndicatorToggle{Enabled: true, Period: 14},
		ATR:              config.IndicatorToggle{Enabled: true, Period: 14},
		BollingerPeriod:  20,
		BollingerStdDev:  2.0,
		TickCadence:      true,
	}

	cfg := runtimeConfig(raw)

	// Percent becomes a fraction of LTP.
	assert.InDelta(t, 0.002, cfg.ProximityFactor, 1e-12)
	assert.Equal(t, strategy.EntryAtOptionBand, cfg.EntryPolicy)
	assert.Equal(t, 30*time.Minute, cfg.LevelCooldown)
	assert.Equal(t, 45*time.Second, cfg.ConfirmTimeout)
	assert.True(t, cfg.RSIEnabled)
	assert.Equal(t, 14, cfg.ATRPeriod)
	assert.True(t, cfg.TickCadence)

	assert.NoError(t, cfg.Validate())
}
