package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))
	return dir
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := writeConfig(t, `
[trading]

[[strategies]]
name = "retest-15m"
underlying = "NIFTY 50"
trade_supports = true
`)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.Equal(t, "NSE", cfg.Trading.DefaultExchange)
	assert.Equal(t, 100, cfg.Trading.CandleCapacity)
	assert.Equal(t, 5, cfg.Trading.BackfillDays)
	assert.Equal(t, 15, cfg.Risk.CooldownMinutes)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.Len(t, cfg.Strategies, 1)
	s := cfg.Strategies[0]
	assert.Equal(t, "NSE", s.Exchange)
	assert.Equal(t, 15, s.IntervalMinutes)
	assert.Equal(t, 0.2, s.ProximityPct)
	assert.Equal(t, 2, s.MinReactions)
	assert.Equal(t, "weekly", s.ExpiryPreference)
	assert.Equal(t, "close", s.EntryPolicy)
	assert.Equal(t, 1.5, s.StopATRMult)
	assert.Equal(t, []float64{1.0, 2.0}, s.TargetATRMults)
	assert.Equal(t, 14, s.RSI.Period)
	assert.Equal(t, 20, s.BollingerPeriod)
}

func TestLoadMissingConfigFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "paper", cfg.Trading.Mode)
	assert.Empty(t, cfg.Strategies)
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	dir := writeConfig(t, `
[trading]
mode = "backtest"
`)

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadRejectsPositiveMaxDailyLoss(t *testing.T) {
	dir := writeConfig(t, `
[risk]
max_daily_loss = 5000.0
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_daily_loss")
}

func TestLoadRejectsDuplicateStrategyNames(t *testing.T) {
	dir := writeConfig(t, `
[[strategies]]
name = "retest"
underlying = "NIFTY 50"

[[strategies]]
name = "retest"
underlying = "NIFTY BANK"
`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate strategy name")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ZERODHA_API_KEY", "key-from-env")
	t.Setenv("ZERODHA_ACCESS_TOKEN", "token-from-env")
	t.Setenv("TRADING_MODE", "live")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "key-from-env", cfg.Credentials.Zerodha.APIKey)
	assert.Equal(t, "token-from-env", cfg.Credentials.Zerodha.AccessToken)
	assert.Equal(t, "live", cfg.Trading.Mode)
	assert.False(t, cfg.IsPaperMode())
}

func TestValidateStrategy(t *testing.T) {
	base := StrategyConfig{
		Name:             "retest",
		Underlying:       "NIFTY 50",
		TradeSupports:    true,
		ProximityPct:     0.2,
		TargetATRMults:   []float64{1, 2},
		EntryPolicy:      "close",
		ExpiryPreference: "weekly",
	}
	cfg := &Config{}

	assert.NoError(t, cfg.ValidateStrategy(base))

	noUnderlying := base
	noUnderlying.Underlying = ""
	assert.Error(t, cfg.ValidateStrategy(noUnderlying))

	noDirection := base
	noDirection.TradeSupports = false
	assert.Error(t, cfg.ValidateStrategy(noDirection))

	tooManyTargets := base
	tooManyTargets.TargetATRMults = []float64{1, 2, 3}
	assert.Error(t, cfg.ValidateStrategy(tooManyTargets))

	bandWithoutOption := base
	bandWithoutOption.EntryPolicy = "option_band"
	assert.Error(t, cfg.ValidateStrategy(bandWithoutOption))

	bandWithOption := bandWithoutOption
	bandWithOption.OptionMapped = true
	assert.NoError(t, cfg.ValidateStrategy(bandWithOption))

	badExpiry := base
	badExpiry.ExpiryPreference = "quarterly"
	assert.Error(t, cfg.ValidateStrategy(badExpiry))
}
