package strategy

import (
	"math"
	"time"

	"kite-levels-trader/internal/models"
)

// SignalState is the lifecycle state of a level watch.
type SignalState string

const (
	StateIdle      SignalState = "IDLE"
	StateTouched   SignalState = "TOUCHED"
	StateConfirmed SignalState = "CONFIRMED"
	StateRejected  SignalState = "REJECTED"
	StateExpired   SignalState = "EXPIRED"
)

// Rejection reasons. Each failed confirmation condition maps to exactly
// one human-readable reason, surfaced via notifications and asserted in
// tests.
const (
	ReasonNotBullish      = "not a bullish candle"
	ReasonNotBearish      = "not a bearish candle"
	ReasonOpenedBelow     = "opened below level"
	ReasonOpenedAbove     = "opened above level"
	ReasonClosedBelow     = "closed below level"
	ReasonClosedAbove     = "closed above level"
	ReasonDidNotTest      = "did not test level"
	ReasonConfirmTimedOut = "confirmation timed out"
	ReasonNoCandleData    = "candle data unavailable"
)

// Touch records a price touching a level within a candle window.
type Touch struct {
	Level       models.Level
	Price       float64
	WindowStart time.Time
}

// Outcome is the terminal result of a watched level's candle window.
type Outcome struct {
	Level       models.Level
	WindowStart time.Time
	Candle      models.Candle
	State       SignalState
	Reason      string // set when State is Rejected or Expired
}

type watch struct {
	level       models.Level
	windowStart time.Time
}

// Watcher runs the touch → confirm state machine for one instrument.
// Watch and cooldown records are keyed by price rounded to tick size,
// never by level object identity, so they survive level refreshes that
// shift or merge zones.
type Watcher struct {
	cfg      Config
	tickSize float64

	watched   map[int64]*watch
	cooldowns map[int64]time.Time

	busy      bool
	busySince time.Time
}

// NewWatcher creates a signal watcher for one instrument.
func NewWatcher(cfg Config, tickSize float64) *Watcher {
	if tickSize <= 0 {
		tickSize = 0.05
	}
	return &Watcher{
		cfg:       cfg,
		tickSize:  tickSize,
		watched:   make(map[int64]*watch),
		cooldowns: make(map[int64]time.Time),
	}
}

// priceKey collapses a level price onto the instrument's tick grid.
func (w *Watcher) priceKey(price float64) int64 {
	return int64(math.Round(price / w.tickSize))
}

// OnTick checks the price against the given levels and returns any new
// touches. A level is touched at most once per candle window, never
// while on cooldown, and never while a previous confirmation for this
// instrument is still in flight.
func (w *Watcher) OnTick(price float64, now time.Time, windowStart time.Time, supports, resistances []models.Level) []Touch {
	if w.busy {
		return nil
	}

	var touches []Touch
	consider := func(levels []models.Level) {
		for _, lv := range levels {
			if math.Abs(price-lv.Price)/price > w.cfg.ProximityFactor {
				continue
			}
			key := w.priceKey(lv.Price)
			if exp, ok := w.cooldowns[key]; ok {
				if now.Before(exp) {
					continue
				}
				delete(w.cooldowns, key)
			}
			if rec, ok := w.watched[key]; ok && !rec.windowStart.Before(windowStart) {
				continue // already watched within this candle window
			}
			w.watched[key] = &watch{level: lv, windowStart: windowStart}
			touches = append(touches, Touch{Level: lv, Price: price, WindowStart: windowStart})
		}
	}

	if w.cfg.TradeSupports {
		consider(supports)
	}
	if w.cfg.TradeResistances {
		consider(resistances)
	}

	return touches
}

// CloseWindow evaluates every watch armed in the given window against
// that window's completed candle. A nil candle means the data could not
// be obtained; those watches expire back to Idle without an alertable
// rejection. The per-window watch record is cleared unconditionally,
// regardless of outcome.
func (w *Watcher) CloseWindow(windowStart time.Time, candle *models.Candle) []Outcome {
	var outcomes []Outcome

	for key, rec := range w.watched {
		if !rec.windowStart.Equal(windowStart) {
			// Stale watch from an earlier window that never resolved.
			if rec.windowStart.Before(windowStart) {
				delete(w.watched, key)
			}
			continue
		}
		delete(w.watched, key)

		if candle == nil {
			outcomes = append(outcomes, Outcome{
				Level:       rec.level,
				WindowStart: windowStart,
				State:       StateExpired,
				Reason:      ReasonNoCandleData,
			})
			continue
		}

		state, reason := Evaluate(rec.level, *candle)
		outcomes = append(outcomes, Outcome{
			Level:       rec.level,
			WindowStart: windowStart,
			Candle:      *candle,
			State:       state,
			Reason:      reason,
		})
	}

	return outcomes
}

// Evaluate applies the bar-close confirmation rules for a level retest.
// For a support: bullish candle that opened above, closed above, and
// whose low actually tested the level. For a resistance: the mirror.
// The first failing condition determines the rejection reason.
func Evaluate(level models.Level, c models.Candle) (SignalState, string) {
	switch level.Side {
	case models.LevelSupport:
		if !c.IsBullish() {
			return StateRejected, ReasonNotBullish
		}
		if c.Open <= level.Price {
			return StateRejected, ReasonOpenedBelow
		}
		if c.Close <= level.Price {
			return StateRejected, ReasonClosedBelow
		}
		if c.Low > level.Price {
			return StateRejected, ReasonDidNotTest
		}
		return StateConfirmed, ""
	default: // resistance
		if !c.IsBearish() {
			return StateRejected, ReasonNotBearish
		}
		if c.Open >= level.Price {
			return StateRejected, ReasonOpenedAbove
		}
		if c.Close >= level.Price {
			return StateRejected, ReasonClosedAbove
		}
		if c.High < level.Price {
			return StateRejected, ReasonDidNotTest
		}
		return StateConfirmed, ""
	}
}

// StartCooldown blocks re-touch processing for the level's price for
// the configured cooldown, keyed by rounded price.
func (w *Watcher) StartCooldown(levelPrice float64, now time.Time) {
	w.cooldowns[w.priceKey(levelPrice)] = now.Add(w.cfg.LevelCooldown)
}

// OnCooldown reports whether the level's price is on cooldown.
func (w *Watcher) OnCooldown(levelPrice float64, now time.Time) bool {
	exp, ok := w.cooldowns[w.priceKey(levelPrice)]
	return ok && now.Before(exp)
}

// SetBusy marks the instrument as awaiting confirmation data. While
// busy, no new touches are processed.
func (w *Watcher) SetBusy(now time.Time) {
	w.busy = true
	w.busySince = now
}

// ClearBusy releases the busy flag.
func (w *Watcher) ClearBusy() {
	w.busy = false
}

// Busy reports whether a confirmation is in flight.
func (w *Watcher) Busy() bool {
	return w.busy
}

// BusyExpired reports whether an in-flight confirmation has outlived
// the configured timeout and must be abandoned.
func (w *Watcher) BusyExpired(now time.Time) bool {
	return w.busy && w.cfg.ConfirmTimeout > 0 && now.Sub(w.busySince) > w.cfg.ConfirmTimeout
}
