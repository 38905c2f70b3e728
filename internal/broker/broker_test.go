package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	kiteconnect "github.com/zerodha/gokiteconnect/v4"
	kitemodels "github.com/zerodha/gokiteconnect/v4/models"

	apperrors "kite-levels-trader/internal/errors"
	"kite-levels-trader/internal/models"
)

func TestIntervalName(t *testing.T) {
	cases := []struct {
		minutes int
		want    string
	}{
		{1, "minute"},
		{5, "5minute"},
		{15, "15minute"},
		{60, "60minute"},
		{1440, "day"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IntervalName(tc.minutes))
	}
}

func TestConvertHistoricalMapsCandles(t *testing.T) {
	ts := time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)
	data := []kiteconnect.HistoricalData{
		{Date: kitemodels.Time{Time: ts}, Open: 100, High: 102, Low: 99, Close: 101, Volume: 1500},
	}

	candles, err := convertHistorical(data, HistoricalRequest{Token: 1, Interval: "5minute"})
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.True(t, candles[0].Timestamp.Equal(ts))
	assert.Equal(t, 100.0, candles[0].Open)
	assert.Equal(t, 101.0, candles[0].Close)
	assert.Equal(t, int64(1500), candles[0].Volume)
}

func TestConvertHistoricalEmptyIsDataUnavailable(t *testing.T) {
	// A broker response with zero candles must fail like a transport
	// error: the backfill retry path treats success-with-nothing as a
	// silent dead strategy otherwise.
	_, err := convertHistorical(nil, HistoricalRequest{Token: 1, Interval: "5minute"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDataUnavailable)

	var dataErr *apperrors.DataError
	assert.ErrorAs(t, err, &dataErr)
}

func optionChain(underlying string, expiries []time.Time, strikes []float64) []models.Instrument {
	var out []models.Instrument
	token := uint32(1000)
	for _, exp := range expiries {
		for _, strike := range strikes {
			for _, ot := range []models.OptionType{models.OptionCE, models.OptionPE} {
				out = append(out, models.Instrument{
					Token:      token,
					Symbol:     underlying + exp.Format("0601") + "X",
					Name:       underlying,
					Exchange:   models.NFO,
					LotSize:    75,
					TickSize:   0.05,
					Kind:       models.KindOption,
					OptionType: ot,
					Strike:     strike,
					Expiry:     exp,
				})
				token++
			}
		}
	}
	return out
}

func TestSelectExpiryWeekly(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	expiries := []time.Time{
		time.Date(2025, 5, 29, 0, 0, 0, 0, time.UTC), // already expired
		time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 26, 0, 0, 0, 0, time.UTC),
	}
	chain := optionChain("NIFTY", expiries, []float64{25000})

	req := OptionRequest{
		Underlying: "NIFTY",
		SpotPrice:  25000,
		OptionType: models.OptionCE,
		Expiry:     ExpiryWeekly,
		Now:        now,
	}

	expiry, ok := selectExpiry(chain, req)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC), expiry)
}

func TestSelectExpiryMonthly(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	expiries := []time.Time{
		time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 26, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC), // next month stays out
	}
	chain := optionChain("NIFTY", expiries, []float64{25000})

	req := OptionRequest{
		Underlying: "NIFTY",
		SpotPrice:  25000,
		OptionType: models.OptionPE,
		Expiry:     ExpiryMonthly,
		Now:        now,
	}

	expiry, ok := selectExpiry(chain, req)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 26, 0, 0, 0, 0, time.UTC), expiry)
}

func TestSelectExpiryNoContracts(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	chain := optionChain("BANKNIFTY", []time.Time{
		time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
	}, []float64{55000})

	_, ok := selectExpiry(chain, OptionRequest{
		Underlying: "NIFTY",
		OptionType: models.OptionCE,
		Expiry:     ExpiryWeekly,
		Now:        now,
	})
	assert.False(t, ok)
}

func TestResolveOptionNearestStrike(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	expiry := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	chain := optionChain("NIFTY", []time.Time{expiry}, []float64{24900, 24950, 25000, 25050, 25100})

	z := NewZerodhaClient("key", "token")
	z.instruments = chain

	inst, err := z.ResolveOption(context.Background(), OptionRequest{
		Underlying: "NIFTY",
		SpotPrice:  25030,
		OptionType: models.OptionCE,
		Expiry:     ExpiryWeekly,
		Now:        now,
	})
	require.NoError(t, err)
	assert.Equal(t, 25050.0, inst.Strike)
	assert.Equal(t, models.OptionCE, inst.OptionType)
	assert.True(t, inst.Expiry.Equal(expiry))
}

func TestMatchesOption(t *testing.T) {
	inst := models.Instrument{
		Name:       "NIFTY",
		Kind:       models.KindOption,
		OptionType: models.OptionCE,
	}

	assert.True(t, matchesOption(inst, OptionRequest{Underlying: "NIFTY", OptionType: models.OptionCE}))
	assert.False(t, matchesOption(inst, OptionRequest{Underlying: "NIFTY", OptionType: models.OptionPE}))
	assert.False(t, matchesOption(inst, OptionRequest{Underlying: "BANKNIFTY", OptionType: models.OptionCE}))

	spot := models.Instrument{Name: "NIFTY", Kind: models.KindUnderlying}
	assert.False(t, matchesOption(spot, OptionRequest{Underlying: "NIFTY", OptionType: models.OptionCE}))
}

func TestReplayFeedEmitsSubscribedOnly(t *testing.T) {
	ticks := []models.Tick{
		{Token: 1, LTP: 100},
		{Token: 2, LTP: 200},
		{Token: 1, LTP: 101},
	}
	feed := NewReplayFeed(ticks)

	var got []models.Tick
	feed.OnTick(func(tick models.Tick) { got = append(got, tick) })

	require.NoError(t, feed.Connect(context.Background()))
	require.NoError(t, feed.Subscribe([]uint32{1}))

	feed.Run(context.Background())

	require.Len(t, got, 2)
	assert.Equal(t, 100.0, got[0].LTP)
	assert.Equal(t, 101.0, got[1].LTP)
}

func TestReplayFeedStopsOnCancel(t *testing.T) {
	ticks := []models.Tick{{Token: 1, LTP: 100}, {Token: 1, LTP: 101}}
	feed := NewReplayFeed(ticks)

	var count int
	feed.OnTick(func(models.Tick) { count++ })
	require.NoError(t, feed.Subscribe([]uint32{1}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	feed.Run(ctx)

	assert.Equal(t, 0, count)
}
