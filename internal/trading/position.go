// Package trading provides position lifecycle and risk management.
package trading

import (
	"time"

	"github.com/rs/zerolog"

	"kite-levels-trader/internal/errors"
	"kite-levels-trader/internal/models"
)

// EntryRequest asks the position manager to open a position from a
// confirmed signal. Stops and targets are derived from the ATR at
// entry using the strategy's multiples.
type EntryRequest struct {
	Instrument    models.Instrument
	Strategy      string
	Price         float64
	Lots          int
	ATR           float64
	StopMult      float64
	TargetMults   []float64 // one or two, nearest first
	ActivationMult float64
	TrailMult     float64
	EntryLevel    float64
	OppositeLevel float64 // structural exit level on the underlying, 0 = none
	Time          time.Time
}

// ExitEvent reports a full or partial position exit.
type ExitEvent struct {
	Position models.Position
	Trade    models.Trade
	Partial  bool
}

// positionRules holds the per-position exit parameters frozen at entry
// (ATR may be refreshed by strategies running tick cadence).
type positionRules struct {
	atr            float64
	activationMult float64
	trailMult      float64
	oppositeLevel  float64
	lastPrice      float64
}

// Manager owns the set of open positions and evaluates exit rules on
// every tick. Exactly one open position may exist per instrument.
type Manager struct {
	logger zerolog.Logger
	open   map[uint32]*models.Position
	rules  map[uint32]*positionRules
	frozen bool // set after square-off; blocks new entries for the session
}

// NewManager creates a position manager.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		logger: logger,
		open:   make(map[uint32]*models.Position),
		rules:  make(map[uint32]*positionRules),
	}
}

// Open creates a position from a confirmed entry. A request for an
// instrument that already has an open position is an idempotent no-op
// returning ErrDuplicateEntry.
func (m *Manager) Open(req EntryRequest) (*models.Position, error) {
	if m.frozen {
		return nil, errors.ErrTradingHalted
	}
	if _, exists := m.open[req.Instrument.Token]; exists {
		return nil, errors.ErrDuplicateEntry
	}

	qty := req.Lots * req.Instrument.LotSize
	if qty <= 0 {
		qty = req.Lots
	}

	pos := &models.Position{
		Instrument: req.Instrument,
		Strategy:   req.Strategy,
		EntryPrice: req.Price,
		Quantity:   qty,
		StopLoss:   req.Price - req.StopMult*req.ATR,
		EntryLevel: req.EntryLevel,
		EntryTime:  req.Time,
		Status:     models.PositionOpen,
	}
	for _, mult := range req.TargetMults {
		pos.Targets = append(pos.Targets, req.Price+mult*req.ATR)
	}

	m.open[req.Instrument.Token] = pos
	m.rules[req.Instrument.Token] = &positionRules{
		atr:            req.ATR,
		activationMult: req.ActivationMult,
		trailMult:      req.TrailMult,
		oppositeLevel:  req.OppositeLevel,
		lastPrice:      req.Price,
	}

	m.logger.Info().
		Str("symbol", req.Instrument.Symbol).
		Str("strategy", req.Strategy).
		Float64("entry", req.Price).
		Float64("stop", pos.StopLoss).
		Int("quantity", qty).
		Msg("Position opened")

	return pos, nil
}

// OnTick evaluates exit rules for the instrument's open position, in
// priority order: stop-loss, trailing activation/ratchet, targets.
// Stop exits fill at the stop price (simulated stop order), target
// exits at the target price.
func (m *Manager) OnTick(token uint32, ltp float64, now time.Time) []ExitEvent {
	pos, ok := m.open[token]
	if !ok {
		return nil
	}
	r := m.rules[token]
	r.lastPrice = ltp

	// Stop-loss always has first priority.
	stop := pos.StopLoss
	reason := models.ExitStopLoss
	if pos.Trailing.Active {
		stop = pos.Trailing.TrailingStop
		reason = models.ExitTrailingStop
	}
	if ltp <= stop {
		return []ExitEvent{m.close(token, stop, reason, now)}
	}

	// Trailing activation and monotonic ratchet.
	if r.atr > 0 {
		if !pos.Trailing.Active && ltp-pos.EntryPrice >= r.activationMult*r.atr {
			pos.Trailing.Active = true
			pos.Trailing.ExtremePrice = ltp
			pos.Trailing.TrailingStop = ltp - r.trailMult*r.atr
		} else if pos.Trailing.Active {
			if ltp > pos.Trailing.ExtremePrice {
				pos.Trailing.ExtremePrice = ltp
			}
			if next := pos.Trailing.ExtremePrice - r.trailMult*r.atr; next > pos.Trailing.TrailingStop {
				pos.Trailing.TrailingStop = next
			}
		}
	}

	// Scaled targets: first of two triggers a partial exit and moves
	// the stop to cost; the last target closes the position.
	if len(pos.Targets) > 0 && ltp >= pos.Targets[0] {
		target := pos.Targets[0]
		if len(pos.Targets) > 1 {
			return []ExitEvent{m.partialExit(token, target, now)}
		}
		return []ExitEvent{m.close(token, target, models.ExitTarget, now)}
	}

	return nil
}

// UpdateATR refreshes the ATR used for trailing distances. Called by
// strategies that recompute volatility on tick cadence.
func (m *Manager) UpdateATR(token uint32, atr float64) {
	if r, ok := m.rules[token]; ok && atr > 0 {
		r.atr = atr
	}
}

// CheckLevelBreach exits a position when the underlying reaches the
// opposite-side level from entry. Structural exit, independent of the
// ATR stop.
func (m *Manager) CheckLevelBreach(token uint32, underlyingPrice float64, now time.Time) []ExitEvent {
	pos, ok := m.open[token]
	if !ok {
		return nil
	}
	r := m.rules[token]
	if r.oppositeLevel <= 0 {
		return nil
	}

	breached := false
	if pos.Instrument.OptionType == models.OptionPE {
		breached = underlyingPrice <= r.oppositeLevel
	} else {
		breached = underlyingPrice >= r.oppositeLevel
	}
	if !breached {
		return nil
	}
	return []ExitEvent{m.close(token, r.lastPrice, models.ExitLevelHit, now)}
}

// ClosePosition force-closes a position at the given price.
func (m *Manager) ClosePosition(token uint32, price float64, reason models.ExitReason, now time.Time) (ExitEvent, bool) {
	if _, ok := m.open[token]; !ok {
		return ExitEvent{}, false
	}
	return m.close(token, price, reason, now), true
}

// SquareOffAll closes every open position at its last known price and
// blocks new entries for the remainder of the session.
func (m *Manager) SquareOffAll(reason models.ExitReason, now time.Time) []ExitEvent {
	m.frozen = true

	var events []ExitEvent
	for token, r := range m.rules {
		if _, ok := m.open[token]; !ok {
			continue
		}
		events = append(events, m.close(token, r.lastPrice, reason, now))
	}
	return events
}

// partialExit closes roughly half the quantity at the first target,
// moves the stop to breakeven, and promotes the second target.
func (m *Manager) partialExit(token uint32, price float64, now time.Time) ExitEvent {
	pos := m.open[token]

	exitQty := pos.Quantity / 2
	if exitQty == 0 {
		exitQty = pos.Quantity
	}
	pnl := (price - pos.EntryPrice) * float64(exitQty)

	pos.Quantity -= exitQty
	pos.StopLoss = pos.EntryPrice
	pos.Targets = pos.Targets[1:]
	pos.Status = models.PositionPartiallyClosed

	trade := models.Trade{
		Time:       now,
		Symbol:     pos.Instrument.Symbol,
		Exchange:   pos.Instrument.Exchange,
		Strategy:   pos.Strategy,
		Action:     models.ActionSell,
		Quantity:   exitQty,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		PnL:        pnl,
		Reason:     models.ExitPartial,
	}

	m.logger.Info().
		Str("symbol", pos.Instrument.Symbol).
		Float64("price", price).
		Float64("pnl", pnl).
		Int("remaining", pos.Quantity).
		Msg("Partial target hit")

	return ExitEvent{Position: *pos, Trade: trade, Partial: true}
}

// close removes the position and realizes its P&L. Options are held
// long for both CE and PE, so the P&L sign is uniformly positive in
// the favorable direction.
func (m *Manager) close(token uint32, price float64, reason models.ExitReason, now time.Time) ExitEvent {
	pos := m.open[token]
	pnl := (price - pos.EntryPrice) * float64(pos.Quantity)

	trade := models.Trade{
		Time:       now,
		Symbol:     pos.Instrument.Symbol,
		Exchange:   pos.Instrument.Exchange,
		Strategy:   pos.Strategy,
		Action:     models.ActionSell,
		Quantity:   pos.Quantity,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		PnL:        pnl,
		Reason:     reason,
	}

	pos.Status = models.PositionClosed
	closed := *pos
	delete(m.open, token)
	delete(m.rules, token)

	m.logger.Info().
		Str("symbol", closed.Instrument.Symbol).
		Str("reason", string(reason)).
		Float64("exit", price).
		Float64("pnl", pnl).
		Msg("Position closed")

	return ExitEvent{Position: closed, Trade: trade}
}

// Get returns the open position for a token, if any.
func (m *Manager) Get(token uint32) (models.Position, bool) {
	pos, ok := m.open[token]
	if !ok {
		return models.Position{}, false
	}
	return *pos, true
}

// HasOpen reports whether the instrument has an open position.
func (m *Manager) HasOpen(token uint32) bool {
	_, ok := m.open[token]
	return ok
}

// OpenPositions returns snapshots of all open positions.
func (m *Manager) OpenPositions() []models.Position {
	out := make([]models.Position, 0, len(m.open))
	for _, pos := range m.open {
		out = append(out, *pos)
	}
	return out
}

// Restore re-registers a previously open position after a restart so
// its exits resume. Trailing distances fall back to the snapshot state.
func (m *Manager) Restore(pos models.Position, atr, activationMult, trailMult, oppositeLevel float64) {
	p := pos
	m.open[pos.Instrument.Token] = &p
	m.rules[pos.Instrument.Token] = &positionRules{
		atr:            atr,
		activationMult: activationMult,
		trailMult:      trailMult,
		oppositeLevel:  oppositeLevel,
		lastPrice:      pos.EntryPrice,
	}
}

// Frozen reports whether new entries are blocked after square-off.
func (m *Manager) Frozen() bool {
	return m.frozen
}
