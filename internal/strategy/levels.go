package strategy

import (
	"kite-levels-trader/internal/analysis/indicators"
	"kite-levels-trader/internal/models"
)

// IndicatorSnapshot holds the latest indicator values for one
// instrument. A Has* flag false means insufficient data: callers skip
// the decision for that cycle rather than failing.
type IndicatorSnapshot struct {
	ATR      float64
	HasATR   bool
	RSI      float64
	HasRSI   bool
	Bands    indicators.Bands
	HasBands bool
}

// LevelEngine computes and caches support/resistance zones and
// volatility indicators for one instrument's candle series.
type LevelEngine struct {
	cfg      Config
	detector *indicators.SupportResistance
	atr      *indicators.ATR
	bb       *indicators.BollingerBands

	supports    []models.Level
	resistances []models.Level
}

// NewLevelEngine creates a level engine for one strategy variant.
func NewLevelEngine(cfg Config) *LevelEngine {
	return &LevelEngine{
		cfg:      cfg,
		detector: indicators.NewSupportResistance(cfg.ReactionLookback, cfg.MergeBandPct, cfg.MinReactions, cfg.MaxLevels),
		atr:      indicators.NewATR(cfg.ATRPeriod),
		bb:       indicators.NewBollingerBands(cfg.BollingerPeriod, cfg.BollingerStdDev),
	}
}

// Refresh recomputes the level set from the series relative to the
// current price. The previous set is discarded entirely: levels are
// value objects and classification follows the live price.
func (e *LevelEngine) Refresh(series []models.Candle, currentPrice float64) error {
	supports, resistances, err := e.detector.Detect(series, currentPrice)
	if err != nil {
		return err
	}
	e.supports = supports
	e.resistances = resistances
	return nil
}

// Supports returns the current support levels, closest below first.
func (e *LevelEngine) Supports() []models.Level {
	return e.supports
}

// Resistances returns the current resistance levels, closest above first.
func (e *LevelEngine) Resistances() []models.Level {
	return e.resistances
}

// NearestSupport returns the support closest below the price.
func (e *LevelEngine) NearestSupport() (models.Level, bool) {
	if len(e.supports) == 0 {
		return models.Level{}, false
	}
	return e.supports[0], true
}

// NearestResistance returns the resistance closest above the price.
func (e *LevelEngine) NearestResistance() (models.Level, bool) {
	if len(e.resistances) == 0 {
		return models.Level{}, false
	}
	return e.resistances[0], true
}

// Indicators computes the indicator snapshot for the series. Indicators
// with insufficient data are flagged absent, never errors.
func (e *LevelEngine) Indicators(series []models.Candle) IndicatorSnapshot {
	var snap IndicatorSnapshot

	if e.cfg.ATREnabled {
		if v, err := e.atr.Last(series); err == nil {
			snap.ATR = v
			snap.HasATR = true
		}
	}
	if e.cfg.RSIEnabled {
		if values, err := indicators.CalculateRSI(closesOf(series), e.cfg.RSIPeriod); err == nil {
			snap.RSI = values[len(values)-1]
			snap.HasRSI = true
		}
	}
	if bands, err := e.bb.Last(series); err == nil {
		snap.Bands = bands
		snap.HasBands = true
	}

	return snap
}

func closesOf(candles []models.Candle) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}
