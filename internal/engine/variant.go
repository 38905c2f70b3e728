package engine

import (
	"context"
	"time"

	"kite-levels-trader/internal/broker"
	"kite-levels-trader/internal/candle"
	"kite-levels-trader/internal/config"
	apperrors "kite-levels-trader/internal/errors"
	"kite-levels-trader/internal/models"
	"kite-levels-trader/internal/strategy"
	"kite-levels-trader/pkg/utils"
)

// variant is the runtime state of one strategy variant bound to its
// underlying instrument.
type variant struct {
	cfg        strategy.Config
	raw        config.StrategyConfig
	underlying models.Instrument
	agg        *candle.Aggregator
	levels     *strategy.LevelEngine
	watcher    *strategy.Watcher
}

// runtimeConfig translates the TOML-facing strategy config into the
// strategy package's runtime config.
func runtimeConfig(s config.StrategyConfig) strategy.Config {
	return strategy.Config{
		Name:             s.Name,
		TradeSupports:    s.TradeSupports,
		TradeResistances: s.TradeResistances,
		IntervalMinutes:  s.IntervalMinutes,
		ProximityFactor:  s.ProximityPct / 100,
		MergeBandPct:     s.MergeBandPct,
		ReactionLookback: s.ReactionLookback,
		MinReactions:     s.MinReactions,
		MaxLevels:        s.MaxLevels,
		EntryPolicy:      strategy.EntryPolicy(s.EntryPolicy),
		LevelCooldown:    time.Duration(s.CooldownMinutes) * time.Minute,
		ConfirmTimeout:   time.Duration(s.ConfirmTimeoutSc) * time.Second,
		RSIEnabled:       s.RSI.Enabled,
		RSIPeriod:        s.RSI.Period,
		ATREnabled:       s.ATR.Enabled,
		ATRPeriod:        s.ATR.Period,
		BollingerPeriod:  s.BollingerPeriod,
		BollingerStdDev:  s.BollingerStdDev,
		TickCadence:      s.TickCadence,
	}
}

// setupVariant resolves the underlying, backfills its candle series, and
// builds the variant's level engine and watcher. A failure here disables
// this variant only.
func (e *Engine) setupVariant(ctx context.Context, raw config.StrategyConfig) (*variant, error) {
	if err := e.cfg.ValidateStrategy(raw); err != nil {
		return nil, apperrors.NewStrategyError(raw.Name, "validate", err)
	}

	cfg := runtimeConfig(raw)
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewStrategyError(raw.Name, "validate", err)
	}

	underlying, err := e.resolver.Resolve(ctx, raw.Underlying, models.Exchange(raw.Exchange))
	if err != nil {
		return nil, apperrors.NewStrategyError(raw.Name, "resolve", err)
	}

	v := &variant{
		cfg:        cfg,
		raw:        raw,
		underlying: underlying,
		agg:        candle.NewAggregator(raw.IntervalMinutes, e.cfg.Trading.CandleCapacity),
		levels:     strategy.NewLevelEngine(cfg),
		watcher:    strategy.NewWatcher(cfg, underlying.TickSize),
	}

	series, err := e.backfill(ctx, underlying.Token, raw.IntervalMinutes)
	if err != nil {
		return nil, apperrors.NewStrategyError(raw.Name, "backfill", err)
	}
	v.agg.Seed(series)

	if len(series) > 0 {
		if err := v.levels.Refresh(series, series[len(series)-1].Close); err != nil {
			e.logger.Warn().Err(err).Str("strategy", raw.Name).Msg("Initial level detection failed, waiting for more data")
		}
	}

	return v, nil
}

// backfill fetches recent candles for a token, retrying transient
// failures up to three attempts with backoff.
func (e *Engine) backfill(ctx context.Context, token uint32, intervalMinutes int) ([]models.Candle, error) {
	to := time.Now().In(utils.IndiaLocation)
	from := to.AddDate(0, 0, -e.cfg.Trading.BackfillDays)

	req := broker.HistoricalRequest{
		Token:    token,
		Interval: broker.IntervalName(intervalMinutes),
		From:     from,
		To:       to,
	}

	retryCfg := utils.DefaultRetryConfig()
	return utils.RetryWithResult(ctx, retryCfg, func() ([]models.Candle, error) {
		return e.hist.GetHistorical(ctx, req)
	})
}
