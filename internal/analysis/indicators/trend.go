package indicators

import (
	"fmt"

	"kite-levels-trader/internal/models"
)

// SMA calculates the Simple Moving Average.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string {
	return fmt.Sprintf("SMA_%d", s.period)
}

func (s *SMA) Period() int {
	return s.period
}

func (s *SMA) Calculate(candles []models.Candle) ([]float64, error) {
	if s.period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(candles) < s.period {
		return nil, ErrInsufficientData
	}

	n := len(candles)
	closes := closePrices(candles)
	result := make([]float64, n)

	for i := s.period - 1; i < n; i++ {
		result[i] = mean(closes[i-s.period+1 : i+1])
	}

	return result, nil
}

// LastSMA returns the arithmetic mean of the last period values.
func LastSMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(values) < period {
		return 0, ErrInsufficientData
	}
	return mean(values[len(values)-period:]), nil
}

// LastStdDev returns the population standard deviation of the last
// period values, against the SMA of the same window.
func LastStdDev(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(values) < period {
		return 0, ErrInsufficientData
	}
	return stdDev(values[len(values)-period:]), nil
}
