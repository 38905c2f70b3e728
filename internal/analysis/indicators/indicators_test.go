package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kite-levels-trader/internal/models"
)

func candlesFromCloses(closes []float64) []models.Candle {
	candles := make([]models.Candle, len(closes))
	base := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = models.Candle{
			Timestamp: base.Add(time.Duration(i) * 15 * time.Minute),
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return candles
}

func TestCalculateRSIWilderReference(t *testing.T) {
	// The well-known Wilder worked example: 14-period RSI over these
	// closes ends near 70.5.
	closes := []float64{44, 44.25, 44.5, 43.75, 44.5, 45, 45.5, 46, 45.75, 46.5, 46.25, 47, 47.5, 47.25, 47.75}

	values, err := CalculateRSI(closes, 14)
	require.NoError(t, err)

	last := values[len(values)-1]
	assert.InDelta(t, 70.5, last, 1.0)
}

func TestCalculateRSIZeroAverageLoss(t *testing.T) {
	// Monotonically rising closes have no losses; RS would be infinite,
	// the guard must saturate at 100.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	values, err := CalculateRSI(closes, 14)
	require.NoError(t, err)

	for i := 14; i < len(values); i++ {
		assert.Equal(t, 100.0, values[i])
	}
}

func TestCalculateRSIBounds(t *testing.T) {
	closes := []float64{50, 48, 52, 47, 53, 46, 54, 45, 55, 44, 56, 43, 57, 42, 58, 41, 59}

	values, err := CalculateRSI(closes, 14)
	require.NoError(t, err)

	for i := 14; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i], 0.0)
		assert.LessOrEqual(t, values[i], 100.0)
	}
}

func TestCalculateRSIErrors(t *testing.T) {
	_, err := CalculateRSI([]float64{1, 2, 3}, 14)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = CalculateRSI([]float64{1, 2, 3}, 0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestATRWilderSmoothing(t *testing.T) {
	// Constant 2-point range with no gaps: every TR is 2, so the ATR
	// must converge to exactly 2 regardless of smoothing.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	candles := candlesFromCloses(closes)

	atr := NewATR(14)
	last, err := atr.Last(candles)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, last, 1e-9)
}

func TestATRInsufficientData(t *testing.T) {
	atr := NewATR(14)
	_, err := atr.Last(candlesFromCloses([]float64{100, 101}))
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestBollingerBandsFlatSeries(t *testing.T) {
	// A flat close series has zero deviation: all three bands collapse
	// onto the price.
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 200
	}

	bb := NewBollingerBands(20, 2.0)
	bands, err := bb.Last(candlesFromCloses(closes))
	require.NoError(t, err)

	assert.Equal(t, 200.0, bands.Middle)
	assert.Equal(t, 200.0, bands.Upper)
	assert.Equal(t, 200.0, bands.Lower)
}

func TestBollingerBandsOrdering(t *testing.T) {
	closes := []float64{100, 102, 98, 103, 97, 105, 96, 104, 99, 101, 100, 102, 98, 103, 97, 105, 96, 104, 99, 101, 102}

	bb := NewBollingerBands(20, 2.0)
	bands, err := bb.Last(candlesFromCloses(closes))
	require.NoError(t, err)

	assert.Less(t, bands.Lower, bands.Middle)
	assert.Less(t, bands.Middle, bands.Upper)

	// Population standard deviation of the trailing window.
	window := closes[len(closes)-20:]
	m := 0.0
	for _, v := range window {
		m += v
	}
	m /= 20
	variance := 0.0
	for _, v := range window {
		variance += (v - m) * (v - m)
	}
	sd := math.Sqrt(variance / 20)

	assert.InDelta(t, m+2*sd, bands.Upper, 1e-9)
	assert.InDelta(t, m-2*sd, bands.Lower, 1e-9)
}

func TestLastSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	sma, err := LastSMA(values, 5)
	require.NoError(t, err)
	assert.Equal(t, 3.0, sma)

	sma, err = LastSMA(values, 2)
	require.NoError(t, err)
	assert.Equal(t, 4.5, sma)

	_, err = LastSMA(values, 6)
	assert.ErrorIs(t, err, ErrInsufficientData)
}
