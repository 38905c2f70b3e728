package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kite-levels-trader/internal/broker"
	"kite-levels-trader/internal/config"
	apperrors "kite-levels-trader/internal/errors"
	"kite-levels-trader/internal/models"
	"kite-levels-trader/internal/notify"
	"kite-levels-trader/internal/store"
	"kite-levels-trader/internal/trading"
	"kite-levels-trader/pkg/utils"
)

type stubResolver struct {
	underlying models.Instrument
}

func (s *stubResolver) Resolve(ctx context.Context, symbol string, exchange models.Exchange) (models.Instrument, error) {
	if symbol != s.underlying.Symbol {
		return models.Instrument{}, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "%s:%s", exchange, symbol)
	}
	return s.underlying, nil
}

func (s *stubResolver) ResolveOption(ctx context.Context, req broker.OptionRequest) (models.Instrument, error) {
	return models.Instrument{}, apperrors.ErrContractNotFound
}

type stubHistorical struct {
	series []models.Candle
}

func (s *stubHistorical) GetHistorical(ctx context.Context, req broker.HistoricalRequest) ([]models.Candle, error) {
	return s.series, nil
}

// recordingFeed is a replay feed that also records symbol
// registrations, like the live ticker does.
type recordingFeed struct {
	*broker.ReplayFeed
	symbols map[uint32]string
}

func (f *recordingFeed) RegisterSymbol(token uint32, symbol string) {
	f.symbols[token] = symbol
}

func testUnderlying() models.Instrument {
	return models.Instrument{
		Token:    501,
		Symbol:   "NIFTY 50",
		Name:     "NIFTY",
		Exchange: models.NSE,
		LotSize:  25,
		TickSize: 0.05,
		Kind:     models.KindUnderlying,
	}
}

func testEngineConfig(mode string) *config.Config {
	return &config.Config{
		Trading: config.TradingConfig{
			Mode:            mode,
			DefaultExchange: "NSE",
			CandleCapacity:  100,
			BackfillDays:    5,
		},
		Risk: config.RiskConfig{
			MaxDailyLoss:    -1e9,
			HaltOnLimit:     true,
			CooldownMinutes: 15,
		},
		Strategies: []config.StrategyConfig{{
			Name:              "retest-5m",
			Underlying:        "NIFTY 50",
			Exchange:          "NSE",
			IntervalMinutes:   5,
			ProximityPct:      0.5,
			MergeBandPct:      0.5,
			ReactionLookback:  3,
			MinReactions:      2,
			MaxLevels:         3,
			TradeSupports:     true,
			ExpiryPreference:  "weekly",
			EntryPolicy:       "close",
			Lots:              1,
			StopATRMult:       1.0,
			TargetATRMults:    []float64{10},
			ActivationATRMult: 10,
			TrailATRMult:      0.5,
			CooldownMinutes:   15,
			ATR:               config.IndicatorToggle{Enabled: true, Period: 14},
			BollingerPeriod:   20,
			BollingerStdDev:   2.0,
			ConfirmTimeoutSc:  30,
		}},
	}
}

// oscillatingSeries yields 5-minute candles cycling between lows of 95
// and highs of 105, so pivots cluster at both extremes.
func oscillatingSeries(start time.Time, n int) []models.Candle {
	pattern := []float64{96, 98, 100, 102, 104, 102, 100, 98}

	candles := make([]models.Candle, n)
	for i := range candles {
		c := pattern[i%len(pattern)]
		candles[i] = models.Candle{
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Open:      c - 0.5,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return candles
}

func newTestEngine(t *testing.T, mode string, ticks []models.Tick) (*Engine, *recordingFeed, *store.SQLiteStore) {
	t.Helper()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "trader.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	day := time.Date(2025, 6, 2, 10, 0, 0, 0, utils.IndiaLocation)
	feed := &recordingFeed{
		ReplayFeed: broker.NewReplayFeed(ticks),
		symbols:    make(map[uint32]string),
	}

	e := New(Deps{
		Logger:   zerolog.Nop(),
		Config:   testEngineConfig(mode),
		Feed:     feed,
		Hist:     &stubHistorical{series: oscillatingSeries(day.Add(-200*time.Minute), 40)},
		Resolver: &stubResolver{underlying: testUnderlying()},
		Notifier: notify.NewNoOpNotifier(),
		Store:    st,
	})
	return e, feed, st
}

// drain applies every buffered tick to the engine, in order.
func drain(e *Engine) {
	for {
		select {
		case tick := <-e.hub.Ticks():
			e.onTick(tick)
		default:
			return
		}
	}
}

func TestEngineReplayTouchConfirmEntryExit(t *testing.T) {
	day := time.Date(2025, 6, 2, 10, 0, 0, 0, utils.IndiaLocation)
	// One 5-minute window: opens at 98.2, dips to 94.9 (testing the 95
	// support), closes bullish at 99.5. The fourth tick closes the
	// window; the fifth drops through the stop.
	ticks := []models.Tick{
		{Token: 501, LTP: 98.2, Timestamp: day.Add(5 * time.Second)},
		{Token: 501, LTP: 94.9, Timestamp: day.Add(40 * time.Second)},
		{Token: 501, LTP: 99.5, Timestamp: day.Add(3 * time.Minute)},
		{Token: 501, LTP: 99.5, Timestamp: day.Add(5*time.Minute + time.Second)},
		{Token: 501, LTP: 90.0, Timestamp: day.Add(6 * time.Minute)},
	}

	e, feed, st := newTestEngine(t, "paper", ticks)
	ctx := context.Background()
	require.NoError(t, e.start(ctx))
	defer e.hub.Stop()

	require.Len(t, e.variants, 1)
	v := e.variants[0]
	require.NotEmpty(t, v.levels.Supports(), "backfill should produce the 95 support")
	assert.Equal(t, "NIFTY 50", feed.symbols[501])

	// Replay up to the window close: the retest must confirm and open a
	// position at the confirming close.
	feed.Run(ctx)
	for i := 0; i < 4; i++ {
		e.onTick(<-e.hub.Ticks())
	}

	pos, ok := e.positions.Get(501)
	require.True(t, ok, "confirmed retest should open a position")
	assert.Equal(t, 99.5, pos.EntryPrice)
	assert.Equal(t, 25, pos.Quantity)
	assert.Equal(t, uint32(501), e.posUnderlying[501])
	assert.True(t, v.watcher.OnCooldown(95, day.Add(6*time.Minute)))

	// The drop through the stop closes the position and lands in the
	// risk ledger and the trade log.
	drain(e)

	assert.False(t, e.positions.HasOpen(501))
	assert.Empty(t, e.posUnderlying)

	trades, err := st.GetTrades(ctx, day.Add(-time.Hour), day.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ExitStopLoss, trades[0].Reason)
	assert.Equal(t, "NIFTY 50", trades[0].Symbol)
	assert.Less(t, trades[0].PnL, 0.0)
	assert.InDelta(t, trades[0].PnL, e.risk.DailyPnL(), 1e-9)

	// The position snapshot set reflects the now-flat book.
	snaps, err := st.LoadPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func openTestPosition(t *testing.T, e *Engine) models.Instrument {
	t.Helper()

	inst := testUnderlying()
	_, err := e.positions.Open(trading.EntryRequest{
		Instrument:  inst,
		Strategy:    "retest-5m",
		Price:       100,
		Lots:        1,
		ATR:         2,
		StopMult:    1.5,
		TargetMults: []float64{5},
		EntryLevel:  95,
		Time:        time.Now().In(utils.IndiaLocation),
	})
	require.NoError(t, err)
	e.posUnderlying[inst.Token] = inst.Token
	return inst
}

func TestShutdownLiveModeSquaresOff(t *testing.T) {
	e, _, st := newTestEngine(t, "live", nil)
	inst := openTestPosition(t, e)

	e.shutdown()

	assert.False(t, e.positions.HasOpen(inst.Token))
	assert.True(t, e.positions.Frozen())

	now := time.Now().In(utils.IndiaLocation)
	trades, err := st.GetTrades(context.Background(), now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, models.ExitShutdown, trades[0].Reason)
}

func TestShutdownPaperModePersistsOpenPositions(t *testing.T) {
	e, _, st := newTestEngine(t, "paper", nil)
	inst := openTestPosition(t, e)

	e.shutdown()

	assert.True(t, e.positions.HasOpen(inst.Token), "paper mode keeps the position for same-day restart")

	ctx := context.Background()
	now := time.Now().In(utils.IndiaLocation)
	trades, err := st.GetTrades(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, trades)

	snaps, err := st.LoadPositions(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, inst.Token, snaps[0].Position.Instrument.Token)
}
