// Package broker provides market data integration: the live tick feed,
// historical candles, and instrument resolution.
package broker

import (
	"context"
	"time"

	"kite-levels-trader/internal/models"
)

// Feed streams live ticks for subscribed instrument tokens.
type Feed interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Subscribe(tokens []uint32) error
	Unsubscribe(tokens []uint32) error
	OnTick(handler func(models.Tick))
	OnError(handler func(error))
	OnConnect(handler func())
	OnDisconnect(handler func())
}

// HistoricalRequest asks for completed candles over a time range.
type HistoricalRequest struct {
	Token    uint32
	Interval string // kite interval name, e.g. "5minute"
	From     time.Time
	To       time.Time
}

// HistoricalProvider fetches completed candles from the broker.
type HistoricalProvider interface {
	GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error)
}

// InstrumentResolver looks up tradable instruments from the broker's
// instrument master.
type InstrumentResolver interface {
	Resolve(ctx context.Context, symbol string, exchange models.Exchange) (models.Instrument, error)
	ResolveOption(ctx context.Context, req OptionRequest) (models.Instrument, error)
}

// ExpiryPreference selects which expiry series an option is picked from.
type ExpiryPreference string

const (
	ExpiryWeekly  ExpiryPreference = "weekly"
	ExpiryMonthly ExpiryPreference = "monthly"
)

// OptionRequest asks for the at-the-money option contract of an
// underlying at a spot price.
type OptionRequest struct {
	Underlying string // instrument master name, e.g. "NIFTY"
	SpotPrice  float64
	OptionType models.OptionType
	Expiry     ExpiryPreference
	Now        time.Time
}

// IntervalName maps a candle interval in minutes to the kite historical
// API interval name.
func IntervalName(minutes int) string {
	switch minutes {
	case 1:
		return "minute"
	case 3:
		return "3minute"
	case 5:
		return "5minute"
	case 10:
		return "10minute"
	case 15:
		return "15minute"
	case 30:
		return "30minute"
	case 60:
		return "60minute"
	default:
		return "day"
	}
}
