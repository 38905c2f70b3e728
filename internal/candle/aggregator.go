// Package candle aggregates a live tick stream into fixed-interval
// OHLCV candles.
package candle

import (
	"time"

	"kite-levels-trader/internal/models"
)

// Aggregator converts ticks for a single instrument into candles of a
// fixed interval. It holds a bounded series of finalized candles plus
// at most one in-progress candle, mutable until its interval boundary
// passes.
type Aggregator struct {
	interval   time.Duration
	capacity   int
	series     []models.Candle
	inProgress *models.Candle
	lastPrice  float64
	volume     int64
}

// NewAggregator creates an aggregator for the given interval in
// minutes, retaining at most capacity finalized candles.
func NewAggregator(intervalMinutes, capacity int) *Aggregator {
	if intervalMinutes <= 0 {
		intervalMinutes = 15
	}
	if capacity <= 0 {
		capacity = 100
	}
	return &Aggregator{
		interval: time.Duration(intervalMinutes) * time.Minute,
		capacity: capacity,
	}
}

// Interval returns the candle interval.
func (a *Aggregator) Interval() time.Duration {
	return a.interval
}

// WindowStart returns the interval-aligned floor of t: minutes are
// floored to a multiple of the interval within the hour.
func (a *Aggregator) WindowStart(t time.Time) time.Time {
	mins := int(a.interval.Minutes())
	if mins >= 60 {
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	}
	floored := (t.Minute() / mins) * mins
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), floored, 0, 0, t.Location())
}

// Seed loads historical finalized candles, oldest first. Used once at
// startup after backfill; trims to capacity.
func (a *Aggregator) Seed(candles []models.Candle) {
	a.series = append(a.series[:0], candles...)
	if len(a.series) > a.capacity {
		a.series = a.series[len(a.series)-a.capacity:]
	}
	if len(a.series) > 0 {
		a.lastPrice = a.series[len(a.series)-1].Close
	}
}

// OnTick updates the in-progress candle with a traded price. If the
// tick belongs to a later window than the in-progress candle, the old
// candle is finalized first and returned, so candle invariants hold
// even when the boundary timer lags the feed.
func (a *Aggregator) OnTick(price float64, ts time.Time) *models.Candle {
	var finalized *models.Candle

	window := a.WindowStart(ts)
	if a.inProgress != nil && window.After(a.inProgress.Timestamp) {
		finalized = a.finalize(window)
	}

	if a.inProgress == nil {
		a.inProgress = &models.Candle{
			Timestamp: window,
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
		}
	} else {
		if price > a.inProgress.High {
			a.inProgress.High = price
		}
		if price < a.inProgress.Low {
			a.inProgress.Low = price
		}
		a.inProgress.Close = price
	}
	a.inProgress.Volume++
	a.lastPrice = price

	return finalized
}

// OnBoundary finalizes the in-progress candle once the wall clock has
// crossed its interval boundary, and seeds the next candle's OHLC from
// the last known price so a silent instrument never yields a degenerate
// candle. Returns the finalized candle, or nil if no boundary passed.
func (a *Aggregator) OnBoundary(now time.Time) *models.Candle {
	if a.inProgress == nil {
		return nil
	}
	window := a.WindowStart(now)
	if !window.After(a.inProgress.Timestamp) {
		return nil
	}
	return a.finalize(window)
}

// finalize appends the in-progress candle to the series and seeds the
// next one from the last price at the new window start.
func (a *Aggregator) finalize(window time.Time) *models.Candle {
	done := *a.inProgress

	// openTime uniqueness: never append a second candle for a window.
	if n := len(a.series); n == 0 || a.series[n-1].Timestamp.Before(done.Timestamp) {
		a.series = append(a.series, done)
		if len(a.series) > a.capacity {
			a.series = a.series[1:]
		}
	}

	a.inProgress = &models.Candle{
		Timestamp: window,
		Open:      a.lastPrice,
		High:      a.lastPrice,
		Low:       a.lastPrice,
		Close:     a.lastPrice,
	}

	return &done
}

// Series returns the finalized candles, oldest first. The returned
// slice is owned by the aggregator; callers must not mutate it.
func (a *Aggregator) Series() []models.Candle {
	return a.series
}

// FindCandle returns the finalized candle whose window starts at the
// given time, if present.
func (a *Aggregator) FindCandle(openTime time.Time) (models.Candle, bool) {
	for i := len(a.series) - 1; i >= 0; i-- {
		if a.series[i].Timestamp.Equal(openTime) {
			return a.series[i], true
		}
		if a.series[i].Timestamp.Before(openTime) {
			break
		}
	}
	return models.Candle{}, false
}

// InProgress returns the current in-progress candle, if any.
func (a *Aggregator) InProgress() (models.Candle, bool) {
	if a.inProgress == nil {
		return models.Candle{}, false
	}
	return *a.inProgress, true
}

// LastPrice returns the most recent traded or seeded price.
func (a *Aggregator) LastPrice() float64 {
	return a.lastPrice
}
