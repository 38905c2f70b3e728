package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kite-levels-trader/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "trader.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleSnapshot() PositionSnapshot {
	return PositionSnapshot{
		Position: models.Position{
			Instrument: models.Instrument{
				Token:      12345,
				Symbol:     "NIFTY2560625000CE",
				Exchange:   models.NFO,
				LotSize:    75,
				TickSize:   0.05,
				Kind:       models.KindOption,
				OptionType: models.OptionCE,
				Strike:     25000,
			},
			Strategy:   "retest-15m",
			EntryPrice: 102.5,
			Quantity:   75,
			StopLoss:   98.3,
			Targets:    []float64{106.7, 110.9},
			Trailing:   models.TrailingState{Active: true, ExtremePrice: 108, TrailingStop: 105.9},
			EntryLevel: 25010,
			EntryTime:  time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC),
			Status:     models.PositionOpen,
		},
		ATR:            2.1,
		ActivationMult: 1.0,
		TrailMult:      0.5,
		OppositeLevel:  25200,
		SavedAt:        time.Date(2025, 6, 2, 10, 31, 0, 0, time.UTC),
	}
}

func TestPositionRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	want := sampleSnapshot()
	require.NoError(t, st.SavePositions(ctx, []PositionSnapshot{want}))

	got, err := st.LoadPositions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, want.Position.Instrument, got[0].Position.Instrument)
	assert.Equal(t, want.Position.EntryPrice, got[0].Position.EntryPrice)
	assert.Equal(t, want.Position.Targets, got[0].Position.Targets)
	assert.Equal(t, want.Position.Trailing, got[0].Position.Trailing)
	assert.Equal(t, want.Position.Status, got[0].Position.Status)
	assert.True(t, want.Position.EntryTime.Equal(got[0].Position.EntryTime))
	assert.Equal(t, want.ATR, got[0].ATR)
	assert.Equal(t, want.OppositeLevel, got[0].OppositeLevel)
}

func TestSavePositionsReplacesWholesale(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	first := sampleSnapshot()
	require.NoError(t, st.SavePositions(ctx, []PositionSnapshot{first}))

	second := sampleSnapshot()
	second.Position.Instrument.Token = 67890
	second.Position.Instrument.Symbol = "NIFTY2560624800PE"
	require.NoError(t, st.SavePositions(ctx, []PositionSnapshot{second}))

	got, err := st.LoadPositions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(67890), got[0].Position.Instrument.Token)

	// An empty set clears the table.
	require.NoError(t, st.SavePositions(ctx, nil))
	got, err = st.LoadPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRiskStateUpsert(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, found, err := st.LoadRiskState(ctx, "2025-06-02")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, st.SaveRiskState(ctx, RiskSnapshot{
		Date: "2025-06-02", DailyPnL: -1200, Halted: false, HaltReason: "NONE",
	}))
	require.NoError(t, st.SaveRiskState(ctx, RiskSnapshot{
		Date: "2025-06-02", DailyPnL: -5200, Halted: true, HaltReason: "LIMIT",
	}))

	got, found, err := st.LoadRiskState(ctx, "2025-06-02")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, -5200.0, got.DailyPnL)
	assert.True(t, got.Halted)
	assert.Equal(t, "LIMIT", got.HaltReason)

	// Days are independent rows.
	_, found, err = st.LoadRiskState(ctx, "2025-06-03")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTradeLogWindowQuery(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, st.LogTrade(ctx, models.Trade{
			Time:       base.Add(time.Duration(i) * time.Hour),
			Symbol:     "NIFTY2560625000CE",
			Exchange:   models.NFO,
			Strategy:   "retest-15m",
			Action:     models.ActionSell,
			Quantity:   75,
			EntryPrice: 100,
			ExitPrice:  100 + float64(i),
			PnL:        float64(i) * 75,
			Reason:     models.ExitTarget,
		}))
	}

	// Only the middle trade falls in the window.
	trades, err := st.GetTrades(ctx, base.Add(30*time.Minute), base.Add(90*time.Minute))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 101.0, trades[0].ExitPrice)
	assert.Equal(t, models.ExitTarget, trades[0].Reason)

	// Full range, oldest first.
	trades, err = st.GetTrades(ctx, base, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, trades, 3)
	assert.True(t, trades[0].Time.Before(trades[2].Time))
}

func TestExportTradesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	trades := []models.Trade{
		{
			Time:       time.Date(2025, 6, 2, 10, 45, 0, 0, time.UTC),
			Symbol:     "NIFTY2560625000CE",
			Exchange:   models.NFO,
			Strategy:   "retest-15m",
			Action:     models.ActionSell,
			Quantity:   75,
			EntryPrice: 100,
			ExitPrice:  104,
			PnL:        300,
			Reason:     models.ExitTrailingStop,
		},
	}

	require.NoError(t, ExportTradesCSV(path, trades))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "symbol")
	assert.Contains(t, lines[1], "NIFTY2560625000CE")
	assert.Contains(t, lines[1], "TRAILING_STOP")
}
