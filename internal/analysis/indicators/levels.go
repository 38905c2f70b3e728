package indicators

import (
	"fmt"
	"math"
	"sort"

	"kite-levels-trader/internal/models"
)

// SupportResistance detects horizontal support/resistance zones from
// pivot highs and lows. Nearby pivots are merged into zones; a zone's
// reaction count is the number of merged pivots. Classification is
// relative to the current price at detection time and is re-derived on
// every call, never carried over.
type SupportResistance struct {
	reactionLookback int     // candles on each side a pivot must dominate
	mergeBandPct     float64 // pivots within this percent band merge into one zone
	minReactions     int     // 1 keeps singleton pivots (every-touch variant)
	maxLevels        int     // levels returned per side
}

// NewSupportResistance creates a new support/resistance detector.
func NewSupportResistance(reactionLookback int, mergeBandPct float64, minReactions, maxLevels int) *SupportResistance {
	return &SupportResistance{
		reactionLookback: reactionLookback,
		mergeBandPct:     mergeBandPct,
		minReactions:     minReactions,
		maxLevels:        maxLevels,
	}
}

func (sr *SupportResistance) Name() string {
	return fmt.Sprintf("SupportResistance_%d_%.2f", sr.reactionLookback, sr.mergeBandPct)
}

func (sr *SupportResistance) Period() int {
	return 2*sr.reactionLookback + 1
}

// Detect returns supports sorted descending (closest below first) and
// resistances sorted ascending (closest above first), truncated to the
// configured maximum per side.
func (sr *SupportResistance) Detect(candles []models.Candle, currentPrice float64) (supports, resistances []models.Level, err error) {
	if sr.reactionLookback <= 0 || sr.minReactions <= 0 || sr.maxLevels <= 0 {
		return nil, nil, ErrInvalidPeriod
	}
	if len(candles) < sr.Period() {
		return nil, nil, ErrInsufficientData
	}

	pivots := sr.findPivots(candles)
	zones := sr.mergePivots(pivots)

	for _, z := range zones {
		if z.reactions < sr.minReactions {
			continue
		}
		level := models.Level{Price: z.price, Reactions: z.reactions}
		if z.price <= currentPrice {
			level.Side = models.LevelSupport
			supports = append(supports, level)
		} else {
			level.Side = models.LevelResistance
			resistances = append(resistances, level)
		}
	}

	sort.Slice(supports, func(i, j int) bool {
		return supports[i].Price > supports[j].Price
	})
	sort.Slice(resistances, func(i, j int) bool {
		return resistances[i].Price < resistances[j].Price
	})

	if len(supports) > sr.maxLevels {
		supports = supports[:sr.maxLevels]
	}
	if len(resistances) > sr.maxLevels {
		resistances = resistances[:sr.maxLevels]
	}

	return supports, resistances, nil
}

// findPivots returns the prices of strict pivot highs and lows: candles
// whose high/low is strictly extremal versus reactionLookback candles
// on each side.
func (sr *SupportResistance) findPivots(candles []models.Candle) []float64 {
	var pivots []float64
	n := len(candles)
	k := sr.reactionLookback

	for i := k; i < n-k; i++ {
		isPivotHigh := true
		isPivotLow := true
		for j := 1; j <= k; j++ {
			if candles[i].High <= candles[i-j].High || candles[i].High <= candles[i+j].High {
				isPivotHigh = false
			}
			if candles[i].Low >= candles[i-j].Low || candles[i].Low >= candles[i+j].Low {
				isPivotLow = false
			}
			if !isPivotHigh && !isPivotLow {
				break
			}
		}
		if isPivotHigh {
			pivots = append(pivots, candles[i].High)
		}
		if isPivotLow {
			pivots = append(pivots, candles[i].Low)
		}
	}

	return pivots
}

type zone struct {
	price     float64
	reactions int
}

// mergePivots groups pivots within the merge band into zones. The zone
// price is the running mean of its members.
func (sr *SupportResistance) mergePivots(pivots []float64) []zone {
	if len(pivots) == 0 {
		return nil
	}

	sorted := make([]float64, len(pivots))
	copy(sorted, pivots)
	sort.Float64s(sorted)

	var zones []zone
	current := zone{price: sorted[0], reactions: 1}

	for _, p := range sorted[1:] {
		if math.Abs(p-current.price)/current.price*100 <= sr.mergeBandPct {
			current.reactions++
			current.price = (current.price*float64(current.reactions-1) + p) / float64(current.reactions)
		} else {
			zones = append(zones, current)
			current = zone{price: p, reactions: 1}
		}
	}
	zones = append(zones, current)

	return zones
}
