// Package engine runs the trading session: it drains the tick stream,
// drives candle aggregation, level watching, entries, exits, and risk
// from a single event loop.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"kite-levels-trader/internal/analysis/indicators"
	"kite-levels-trader/internal/broker"
	"kite-levels-trader/internal/config"
	"kite-levels-trader/internal/models"
	"kite-levels-trader/internal/notify"
	"kite-levels-trader/internal/store"
	"kite-levels-trader/internal/strategy"
	"kite-levels-trader/internal/stream"
	"kite-levels-trader/internal/trading"
	"kite-levels-trader/pkg/utils"
)

// Engine owns a trading session. All strategy, position, and risk state
// is mutated from the single Run goroutine; auxiliary goroutines (feed
// callbacks, option arming, notifications) communicate through channels.
type Engine struct {
	logger   zerolog.Logger
	cfg      *config.Config
	hub      *stream.Hub
	feed     broker.Feed
	hist     broker.HistoricalProvider
	resolver broker.InstrumentResolver
	notifier notify.Notifier
	st       store.Store

	positions *trading.Manager
	risk      *trading.RiskManager

	variants []*variant
	byToken  map[uint32][]*variant // underlying token -> variants

	// posUnderlying maps an open position's token to its underlying's
	// token for structural level-breach exits.
	posUnderlying map[uint32]uint32

	armed      map[uint32]*armedEntry // option token -> armed entry
	armResults chan armResult

	commands <-chan notify.Command

	sessionDone bool // EOD square-off completed
	summarySent bool
}

// armedEntry is an option contract waiting for its entry trigger after
// a confirmed underlying signal.
type armedEntry struct {
	variant       *variant
	option        models.Instrument
	level         models.Level
	oppositeLevel float64
	atr           float64
	lowerBand     float64
	enterAtPrice  bool // EntryAtClose policy: enter on the next option tick
	expiresAt     time.Time
}

// armResult is the outcome of async option resolution and backfill.
type armResult struct {
	variant *variant
	outcome strategy.Outcome
	option  models.Instrument
	series  []models.Candle
	err     error
}

// symbolRegistrar is implemented by feeds that can annotate ticks with
// trading symbols (the live Kite ticker does).
type symbolRegistrar interface {
	RegisterSymbol(token uint32, symbol string)
}

// Deps carries the engine's constructor dependencies.
type Deps struct {
	Logger   zerolog.Logger
	Config   *config.Config
	Feed     broker.Feed
	Hist     broker.HistoricalProvider
	Resolver broker.InstrumentResolver
	Notifier notify.Notifier
	Store    store.Store
	Commands <-chan notify.Command // nil when Telegram commands are disabled
}

// New creates an engine from its dependencies.
func New(deps Deps) *Engine {
	riskCfg := trading.RiskConfig{
		MaxDailyLoss:   deps.Config.Risk.MaxDailyLoss,
		MaxDailyProfit: deps.Config.Risk.MaxDailyProfit,
		HaltOnLimit:    deps.Config.Risk.HaltOnLimit,
		Cooldown:       time.Duration(deps.Config.Risk.CooldownMinutes) * time.Minute,
	}

	return &Engine{
		logger:        deps.Logger,
		cfg:           deps.Config,
		feed:          deps.Feed,
		hub:           stream.NewHub(deps.Feed),
		hist:          deps.Hist,
		resolver:      deps.Resolver,
		notifier:      deps.Notifier,
		st:            deps.Store,
		positions:     trading.NewManager(deps.Logger),
		risk:          trading.NewRiskManager(riskCfg, deps.Logger),
		byToken:       make(map[uint32][]*variant),
		posUnderlying: make(map[uint32]uint32),
		armed:         make(map[uint32]*armedEntry),
		armResults:    make(chan armResult, 8),
		commands:      deps.Commands,
	}
}

// Run starts the session and blocks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.start(ctx); err != nil {
		return err
	}
	defer e.hub.Stop()

	timer := time.NewTicker(time.Second)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return nil
		case tick := <-e.hub.Ticks():
			e.onTick(tick)
		case now := <-timer.C:
			e.onTimer(now.In(utils.IndiaLocation))
		case res := <-e.armResults:
			e.onArmResult(res)
		case cmd, ok := <-e.commands:
			if ok {
				e.onCommand(ctx, cmd)
			}
		}
	}
}

// start sets up variants, restores persisted state, and connects the
// tick stream.
func (e *Engine) start(ctx context.Context) error {
	for _, raw := range e.cfg.Strategies {
		v, err := e.setupVariant(ctx, raw)
		if err != nil {
			// A broken variant must not take down its siblings.
			e.logger.Error().Err(err).Str("strategy", raw.Name).Msg("Strategy disabled")
			continue
		}
		e.variants = append(e.variants, v)
		e.byToken[v.underlying.Token] = append(e.byToken[v.underlying.Token], v)
		e.logger.Info().
			Str("strategy", raw.Name).
			Str("symbol", v.underlying.Symbol).
			Int("interval_minutes", raw.IntervalMinutes).
			Int("supports", len(v.levels.Supports())).
			Int("resistances", len(v.levels.Resistances())).
			Msg("Strategy ready")
	}
	if len(e.variants) == 0 {
		return fmt.Errorf("no strategy could be started")
	}

	e.restore(ctx)

	if err := e.hub.Start(ctx); err != nil {
		return fmt.Errorf("starting tick stream: %w", err)
	}

	for _, v := range e.variants {
		e.registerSymbol(v.underlying.Token, v.underlying.Symbol)
	}
	for _, pos := range e.positions.OpenPositions() {
		e.registerSymbol(pos.Instrument.Token, pos.Instrument.Symbol)
	}

	tokens := make([]uint32, 0, len(e.byToken)+len(e.posUnderlying))
	for token := range e.byToken {
		tokens = append(tokens, token)
	}
	for token := range e.posUnderlying {
		tokens = append(tokens, token)
	}
	if err := e.feed.Subscribe(tokens); err != nil {
		return fmt.Errorf("subscribing instruments: %w", err)
	}

	e.logger.Info().Int("strategies", len(e.variants)).Str("mode", e.cfg.Trading.Mode).Msg("Engine started")
	return nil
}

// restore reloads open positions and risk state persisted by a previous
// run of the same trading day.
func (e *Engine) restore(ctx context.Context) {
	today := time.Now().In(utils.IndiaLocation).Format("2006-01-02")
	if snap, ok, err := e.st.LoadRiskState(ctx, today); err != nil {
		e.logger.Error().Err(err).Msg("Risk state restore failed")
	} else if ok {
		e.risk.OnRealizedPnL(snap.DailyPnL)
		if snap.Halted && snap.HaltReason == string(trading.HaltManual) {
			e.risk.ManualHalt()
		}
		e.logger.Info().Float64("daily_pnl", snap.DailyPnL).Msg("Risk state restored")
	}

	snapshots, err := e.st.LoadPositions(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("Position restore failed")
		return
	}
	for _, snap := range snapshots {
		if snap.Position.EntryTime.In(utils.IndiaLocation).Format("2006-01-02") != today {
			// Stale snapshot from a previous day; positions are
			// intraday and were squared off by the broker.
			continue
		}
		e.positions.Restore(snap.Position, snap.ATR, snap.ActivationMult, snap.TrailMult, snap.OppositeLevel)
		e.posUnderlying[snap.Position.Instrument.Token] = e.underlyingFor(snap.Position)
		e.logger.Info().Str("symbol", snap.Position.Instrument.Symbol).Msg("Position restored")
	}
}

// underlyingFor finds the underlying token for a restored position by
// matching its strategy name.
func (e *Engine) underlyingFor(pos models.Position) uint32 {
	for _, v := range e.variants {
		if v.cfg.Name == pos.Strategy {
			return v.underlying.Token
		}
	}
	return pos.Instrument.Token
}

// onTick routes one tick: exits first, then armed entries, then the
// signal pipeline for variants on this underlying.
func (e *Engine) onTick(tick models.Tick) {
	now := tick.Timestamp
	if now.IsZero() {
		now = time.Now().In(utils.IndiaLocation)
	}

	if e.positions.HasOpen(tick.Token) {
		e.handleExits(e.positions.OnTick(tick.Token, tick.LTP, now), now)
	}

	if entry, ok := e.armed[tick.Token]; ok {
		e.checkArmedEntry(entry, tick, now)
	}

	variants, ok := e.byToken[tick.Token]
	if !ok {
		return
	}

	for _, v := range variants {
		if finalized := v.agg.OnTick(tick.LTP, now); finalized != nil {
			e.onWindowClose(v, *finalized, now)
		}

		windowStart := v.agg.WindowStart(now)
		touches := v.watcher.OnTick(tick.LTP, now, windowStart, v.levels.Supports(), v.levels.Resistances())
		for _, touch := range touches {
			e.logger.Debug().
				Str("strategy", v.cfg.Name).
				Float64("level", touch.Level.Price).
				Float64("price", touch.Price).
				Msg("Level touched")
		}

		if v.cfg.TickCadence {
			e.refreshTickIndicators(v)
		}
	}

	// Structural exits for positions on this underlying.
	for posToken, underToken := range e.posUnderlying {
		if underToken == tick.Token && posToken != tick.Token {
			e.handleExits(e.positions.CheckLevelBreach(posToken, tick.LTP, now), now)
		}
	}
	if e.positions.HasOpen(tick.Token) && e.posUnderlying[tick.Token] == tick.Token {
		e.handleExits(e.positions.CheckLevelBreach(tick.Token, tick.LTP, now), now)
	}
}

// refreshTickIndicators recomputes the ATR including the in-progress
// candle and feeds it to trailing-stop management.
func (e *Engine) refreshTickIndicators(v *variant) {
	series := v.agg.Series()
	if inProg, ok := v.agg.InProgress(); ok {
		series = append(append([]models.Candle(nil), series...), inProg)
	}
	snap := v.levels.Indicators(series)
	if !snap.HasATR {
		return
	}
	for posToken, underToken := range e.posUnderlying {
		if underToken == v.underlying.Token {
			e.positions.UpdateATR(posToken, snap.ATR)
		}
	}
}

// onTimer advances candle boundaries, expires stale confirmations and
// armed entries, and runs the end-of-day schedule.
func (e *Engine) onTimer(now time.Time) {
	for _, v := range e.variants {
		if finalized := v.agg.OnBoundary(now); finalized != nil {
			e.onWindowClose(v, *finalized, now)
		}

		if v.watcher.BusyExpired(now) {
			v.watcher.ClearBusy()
			e.logger.Warn().Str("strategy", v.cfg.Name).Msg("Confirmation timed out")
			e.notifyAsync(func(ctx context.Context) {
				e.notifier.SendRejection(ctx, v.underlying.Symbol, models.Level{}, strategy.ReasonConfirmTimedOut)
			})
		}
	}

	for token, entry := range e.armed {
		if now.After(entry.expiresAt) {
			delete(e.armed, token)
			e.logger.Info().
				Str("strategy", entry.variant.cfg.Name).
				Str("option", entry.option.Symbol).
				Msg("Armed entry expired without trigger")
		}
	}

	e.checkEndOfDay(now)
}

// onWindowClose evaluates armed watches against the finalized candle,
// refreshes levels, and acts on confirmations.
func (e *Engine) onWindowClose(v *variant, finalized models.Candle, now time.Time) {
	outcomes := v.watcher.CloseWindow(finalized.Timestamp, &finalized)

	if err := v.levels.Refresh(v.agg.Series(), v.agg.LastPrice()); err != nil {
		e.logger.Debug().Err(err).Str("strategy", v.cfg.Name).Msg("Level refresh skipped")
	}

	for _, out := range outcomes {
		switch out.State {
		case strategy.StateConfirmed:
			e.logger.Info().
				Str("strategy", v.cfg.Name).
				Float64("level", out.Level.Price).
				Float64("close", out.Candle.Close).
				Msg("Retest confirmed")
			e.tryEnter(v, out, now)
		case strategy.StateRejected:
			e.logger.Info().
				Str("strategy", v.cfg.Name).
				Float64("level", out.Level.Price).
				Str("reason", out.Reason).
				Msg("Retest rejected")
			out := out
			e.notifyAsync(func(ctx context.Context) {
				e.notifier.SendRejection(ctx, v.underlying.Symbol, out.Level, out.Reason)
			})
		case strategy.StateExpired:
			e.logger.Warn().
				Str("strategy", v.cfg.Name).
				Float64("level", out.Level.Price).
				Str("reason", out.Reason).
				Msg("Watch expired")
		}
	}
}

// tryEnter opens a position from a confirmed retest, or arms the mapped
// option contract when the variant trades options.
func (e *Engine) tryEnter(v *variant, out strategy.Outcome, now time.Time) {
	if e.positions.Frozen() || e.sessionDone {
		return
	}
	if err := e.risk.CanEnter(v.underlying.Token, now); err != nil {
		e.logger.Info().Err(err).Str("strategy", v.cfg.Name).Msg("Entry blocked")
		return
	}

	if !v.raw.OptionMapped {
		snap := v.levels.Indicators(v.agg.Series())
		if !snap.HasATR {
			e.logger.Warn().Str("strategy", v.cfg.Name).Msg("No ATR available, skipping entry")
			return
		}
		e.openPosition(v, v.underlying, out.Candle.Close, out.Level, snap.ATR, now)
		return
	}

	// Option entries need contract resolution and an option candle
	// backfill; both hit the network, so they run off-loop behind the
	// watcher's busy flag.
	v.watcher.SetBusy(now)
	go e.resolveOption(v, out, now)
}

// resolveOption resolves the ATM contract and backfills its candles.
// Runs outside the event loop; the result is handled by onArmResult.
func (e *Engine) resolveOption(v *variant, out strategy.Outcome, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), v.cfg.ConfirmTimeout)
	defer cancel()

	optType := models.OptionCE
	if out.Level.Side == models.LevelResistance {
		optType = models.OptionPE
	}

	option, err := e.resolver.ResolveOption(ctx, broker.OptionRequest{
		Underlying: v.underlying.Name,
		SpotPrice:  out.Candle.Close,
		OptionType: optType,
		Expiry:     broker.ExpiryPreference(v.raw.ExpiryPreference),
		Now:        now,
	})
	if err != nil {
		e.armResults <- armResult{variant: v, outcome: out, err: err}
		return
	}

	series, err := e.backfill(ctx, option.Token, v.raw.IntervalMinutes)
	if err != nil {
		e.armResults <- armResult{variant: v, outcome: out, option: option, err: err}
		return
	}

	e.armResults <- armResult{variant: v, outcome: out, option: option, series: series}
}

// onArmResult finishes an option entry: immediate for EntryAtClose,
// armed on the option's Bollinger lower band for EntryAtOptionBand.
func (e *Engine) onArmResult(res armResult) {
	v := res.variant
	v.watcher.ClearBusy()

	if res.err != nil {
		e.logger.Error().Err(res.err).Str("strategy", v.cfg.Name).Msg("Option resolution failed")
		e.notifyAsync(func(ctx context.Context) {
			e.notifier.SendError(ctx, res.err, "option resolution: "+v.cfg.Name)
		})
		return
	}

	now := time.Now().In(utils.IndiaLocation)

	atr := e.optionATR(v, res.series)
	if atr <= 0 {
		e.logger.Warn().Str("strategy", v.cfg.Name).Str("option", res.option.Symbol).Msg("No ATR for option, skipping entry")
		return
	}

	e.registerSymbol(res.option.Token, res.option.Symbol)
	if err := e.feed.Subscribe([]uint32{res.option.Token}); err != nil {
		e.logger.Error().Err(err).Str("option", res.option.Symbol).Msg("Option subscribe failed")
		return
	}

	entry := &armedEntry{
		variant:       v,
		option:        res.option,
		level:         res.outcome.Level,
		oppositeLevel: e.oppositeLevel(v, res.outcome.Level),
		atr:           atr,
		expiresAt:     now.Add(v.agg.Interval()),
	}

	if v.cfg.EntryPolicy == strategy.EntryAtOptionBand {
		bb := indicators.NewBollingerBands(v.cfg.BollingerPeriod, v.cfg.BollingerStdDev)
		bands, err := bb.Last(res.series)
		if err != nil {
			// Not enough option history for bands; fall back to an
			// immediate entry rather than dropping the signal.
			e.logger.Warn().Err(err).Str("option", res.option.Symbol).Msg("No Bollinger bands for option, entering at market")
			entry.enterAtPrice = true
		} else {
			entry.lowerBand = bands.Lower
		}
	} else {
		entry.enterAtPrice = true
	}

	e.armed[res.option.Token] = entry
	e.logger.Info().
		Str("strategy", v.cfg.Name).
		Str("option", res.option.Symbol).
		Float64("lower_band", entry.lowerBand).
		Bool("immediate", entry.enterAtPrice).
		Msg("Option armed")
}

// optionATR computes the ATR from the option's own candles, falling
// back to the underlying's ATR.
func (e *Engine) optionATR(v *variant, series []models.Candle) float64 {
	atr := indicators.NewATR(v.cfg.ATRPeriod)
	if val, err := atr.Last(series); err == nil {
		return val
	}
	snap := v.levels.Indicators(v.agg.Series())
	if snap.HasATR {
		return snap.ATR
	}
	return 0
}

// checkArmedEntry enters on the option's first tick (EntryAtClose) or
// when its price reaches the lower band (EntryAtOptionBand).
func (e *Engine) checkArmedEntry(entry *armedEntry, tick models.Tick, now time.Time) {
	if !entry.enterAtPrice && tick.LTP > entry.lowerBand {
		return
	}

	delete(e.armed, tick.Token)
	e.openPositionOn(entry.variant, entry.option, tick.LTP, entry.level, entry.oppositeLevel, entry.atr, now)
}

// oppositeLevel returns the structural exit level on the underlying:
// the nearest level on the far side of the entry.
func (e *Engine) oppositeLevel(v *variant, level models.Level) float64 {
	if level.Side == models.LevelSupport {
		if res, ok := v.levels.NearestResistance(); ok {
			return res.Price
		}
		return 0
	}
	if sup, ok := v.levels.NearestSupport(); ok {
		return sup.Price
	}
	return 0
}

// openPosition opens a position on the variant's own underlying.
func (e *Engine) openPosition(v *variant, inst models.Instrument, price float64, level models.Level, atr float64, now time.Time) {
	e.openPositionOn(v, inst, price, level, e.oppositeLevel(v, level), atr, now)
}

func (e *Engine) openPositionOn(v *variant, inst models.Instrument, price float64, level models.Level, oppositeLevel, atr float64, now time.Time) {
	req := trading.EntryRequest{
		Instrument:     inst,
		Strategy:       v.cfg.Name,
		Price:          inst.RoundToTick(price),
		Lots:           v.raw.Lots,
		ATR:            atr,
		StopMult:       v.raw.StopATRMult,
		TargetMults:    v.raw.TargetATRMults,
		ActivationMult: v.raw.ActivationATRMult,
		TrailMult:      v.raw.TrailATRMult,
		EntryLevel:     level.Price,
		OppositeLevel:  oppositeLevel,
		Time:           now,
	}

	pos, err := e.positions.Open(req)
	if err != nil {
		e.logger.Info().Err(err).Str("symbol", inst.Symbol).Msg("Entry skipped")
		return
	}

	e.posUnderlying[inst.Token] = v.underlying.Token
	v.watcher.StartCooldown(level.Price, now)
	e.persist()

	opened := *pos
	e.notifyAsync(func(ctx context.Context) {
		e.notifier.SendEntry(ctx, opened)
	})
}

// handleExits logs, accounts, and persists position exits.
func (e *Engine) handleExits(events []trading.ExitEvent, now time.Time) {
	for _, ev := range events {
		token := ev.Position.Instrument.Token

		if err := e.st.LogTrade(context.Background(), ev.Trade); err != nil {
			e.logger.Error().Err(err).Str("symbol", ev.Trade.Symbol).Msg("Trade log write failed")
		}

		tripped := e.risk.OnRealizedPnL(ev.Trade.PnL)
		if !ev.Partial {
			e.risk.StartCooldown(e.posUnderlying[token], now)
			delete(e.posUnderlying, token)
		}

		trade := ev.Trade
		e.notifyAsync(func(ctx context.Context) {
			e.notifier.SendExit(ctx, trade)
		})

		if tripped {
			pnl := e.risk.DailyPnL()
			e.notifyAsync(func(ctx context.Context) {
				e.notifier.Send(ctx, notify.Notification{
					Type:    notify.NotificationInfo,
					Title:   "🛑 Trading halted",
					Message: fmt.Sprintf("Daily P&L limit reached: %.2f", pnl),
				})
			})
		}
	}
	if len(events) > 0 {
		e.persist()
	}
}

// checkEndOfDay squares off at the MIS cutoff and sends the daily
// summary after market close.
func (e *Engine) checkEndOfDay(now time.Time) {
	if !e.sessionDone && !now.Before(utils.GetMISSquareOffTime(now)) {
		e.sessionDone = true
		events := e.positions.SquareOffAll(models.ExitEndOfDay, now)
		e.handleExits(events, now)
		e.logger.Info().Int("closed", len(events)).Msg("End-of-day square-off complete")
	}

	if e.sessionDone && !e.summarySent && !now.Before(utils.GetMarketClose(now)) {
		e.summarySent = true
		e.sendDailySummary(now)
	}
}

func (e *Engine) sendDailySummary(now time.Time) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, utils.IndiaLocation)
	trades, err := e.st.GetTrades(context.Background(), dayStart, now)
	if err != nil {
		e.logger.Error().Err(err).Msg("Daily summary query failed")
		return
	}

	stats := trading.Summarize(trades)
	e.logger.Info().
		Int("trades", stats.Trades).
		Float64("total_pnl", stats.TotalPnL).
		Float64("win_rate", stats.WinRate).
		Msg("Session summary")

	e.notifyAsync(func(ctx context.Context) {
		e.notifier.SendDailySummary(ctx, now, stats)
	})
}

// persist snapshots open positions and risk state. Called after every
// state mutation so a crash loses at most the in-flight event.
func (e *Engine) persist() {
	now := time.Now().In(utils.IndiaLocation)

	open := e.positions.OpenPositions()
	snapshots := make([]store.PositionSnapshot, 0, len(open))
	for _, pos := range open {
		v := e.variantFor(pos.Strategy)
		snap := store.PositionSnapshot{Position: pos, SavedAt: now}
		if v != nil {
			snap.ActivationMult = v.raw.ActivationATRMult
			snap.TrailMult = v.raw.TrailATRMult
			if s := v.levels.Indicators(v.agg.Series()); s.HasATR {
				snap.ATR = s.ATR
			}
			snap.OppositeLevel = e.oppositeLevel(v, models.Level{Price: pos.EntryLevel, Side: entrySide(pos)})
		}
		snapshots = append(snapshots, snap)
	}
	if err := e.st.SavePositions(context.Background(), snapshots); err != nil {
		e.logger.Error().Err(err).Msg("Position snapshot failed")
	}

	halted, reason := e.risk.Halted()
	riskSnap := store.RiskSnapshot{
		Date:       now.Format("2006-01-02"),
		DailyPnL:   e.risk.DailyPnL(),
		Halted:     halted,
		HaltReason: string(reason),
	}
	if err := e.st.SaveRiskState(context.Background(), riskSnap); err != nil {
		e.logger.Error().Err(err).Msg("Risk snapshot failed")
	}
}

func entrySide(pos models.Position) models.LevelSide {
	if pos.Instrument.OptionType == models.OptionPE {
		return models.LevelResistance
	}
	return models.LevelSupport
}

func (e *Engine) variantFor(strategyName string) *variant {
	for _, v := range e.variants {
		if v.cfg.Name == strategyName {
			return v
		}
	}
	return nil
}

// registerSymbol annotates the feed's ticks with a trading symbol when
// the feed supports it.
func (e *Engine) registerSymbol(token uint32, symbol string) {
	if reg, ok := e.feed.(symbolRegistrar); ok {
		reg.RegisterSymbol(token, symbol)
	}
}

// shutdown ends the session. Paper mode persists open positions so a
// same-day restart resumes managing them; live mode squares off so no
// live exposure is left without its exit rules.
func (e *Engine) shutdown() {
	if !e.cfg.IsPaperMode() {
		now := time.Now().In(utils.IndiaLocation)
		if events := e.positions.SquareOffAll(models.ExitShutdown, now); len(events) > 0 {
			e.handleExits(events, now)
		}
	}
	e.persist()
	e.logger.Info().Int("open_positions", len(e.positions.OpenPositions())).Msg("Engine stopped")
}

// notifyAsync runs a notification send off the event loop. Failures are
// the notifier's to log; they never affect trading.
func (e *Engine) notifyAsync(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fn(ctx)
	}()
}
