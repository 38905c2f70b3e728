package trading

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"kite-levels-trader/internal/models"
)

// runTradeSim replays a random price path through a fresh manager and
// risk manager the way the engine wires them: every exit's P&L is fed
// to the risk ledger, full exits free the instrument for re-entry.
func runTradeSim(prices []float64) (fromTrades, fromFills, ledger float64, trades int) {
	mgr := NewManager(zerolog.Nop())
	risk := NewRiskManager(RiskConfig{HaltOnLimit: false}, zerolog.Nop())
	inst := testInstrument()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	account := func(events []ExitEvent) {
		for _, ev := range events {
			fromTrades += ev.Trade.PnL
			fromFills += (ev.Trade.ExitPrice - ev.Trade.EntryPrice) * float64(ev.Trade.Quantity)
			risk.OnRealizedPnL(ev.Trade.PnL)
			trades++
		}
	}

	for _, price := range prices {
		now = now.Add(time.Second)
		if !mgr.HasOpen(inst.Token) {
			mgr.Open(EntryRequest{
				Instrument:     inst,
				Strategy:       "sim",
				Price:          price,
				Lots:           1,
				ATR:            2,
				StopMult:       1.5,
				TargetMults:    []float64{1, 2},
				ActivationMult: 1.0,
				TrailMult:      0.5,
				EntryLevel:     price,
				Time:           now,
			})
			continue
		}
		account(mgr.OnTick(inst.Token, price, now))
	}
	account(mgr.SquareOffAll(models.ExitEndOfDay, now.Add(time.Second)))

	ledger = risk.DailyPnL()
	return fromTrades, fromFills, ledger, trades
}

func TestRealizedPnLConservationProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("trade log P&L equals the risk ledger", prop.ForAll(
		func(prices []float64) bool {
			fromTrades, _, ledger, _ := runTradeSim(prices)
			return math.Abs(fromTrades-ledger) < 1e-6
		},
		gen.SliceOfN(200, gen.Float64Range(50, 150)),
	))

	properties.Property("every trade's P&L matches its fill prices", prop.ForAll(
		func(prices []float64) bool {
			fromTrades, fromFills, _, _ := runTradeSim(prices)
			return math.Abs(fromTrades-fromFills) < 1e-6
		},
		gen.SliceOfN(200, gen.Float64Range(50, 150)),
	))

	properties.TestingRun(t)
}

func TestTradeSimRealizesEverything(t *testing.T) {
	// A path that opens, stops out, re-opens, and is squared off must
	// leave no open exposure and at least two realized trades.
	prices := []float64{100, 90, 110, 111}
	_, _, _, trades := runTradeSim(prices)
	if trades < 2 {
		t.Fatalf("expected at least 2 realized trades, got %d", trades)
	}
}
