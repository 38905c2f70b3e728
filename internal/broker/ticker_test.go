package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	kitemodels "github.com/zerodha/gokiteconnect/v4/models"
)

func TestConvertTickCarriesRegisteredSymbol(t *testing.T) {
	tk := NewKiteTicker(KiteTickerConfig{APIKey: "key", AccessToken: "token"})
	tk.RegisterSymbol(408065, "NIFTY 50")

	tick := tk.convertTick(kitemodels.Tick{InstrumentToken: 408065, LastPrice: 25012.5})
	assert.Equal(t, "NIFTY 50", tick.Symbol)
	assert.Equal(t, uint32(408065), tick.Token)
	assert.Equal(t, 25012.5, tick.LTP)

	// Unregistered tokens still convert, just without a symbol.
	other := tk.convertTick(kitemodels.Tick{InstrumentToken: 111, LastPrice: 100})
	assert.Empty(t, other.Symbol)
}

func TestConvertTickTimestampFallback(t *testing.T) {
	tk := NewKiteTicker(KiteTickerConfig{APIKey: "key", AccessToken: "token"})

	ts := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	tick := tk.convertTick(kitemodels.Tick{InstrumentToken: 1, Timestamp: kitemodels.Time{Time: ts}})
	assert.True(t, tick.Timestamp.Equal(ts))

	// A zero exchange timestamp falls back to the local clock.
	zero := tk.convertTick(kitemodels.Tick{InstrumentToken: 1})
	assert.False(t, zero.Timestamp.IsZero())
}
