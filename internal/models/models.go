// Package models provides domain models for the trading application.
package models

import (
	"math"
	"time"
)

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
	NFO Exchange = "NFO" // F&O
	MCX Exchange = "MCX" // Commodity
)

// InstrumentKind distinguishes cash underlyings from option contracts.
type InstrumentKind string

const (
	KindUnderlying InstrumentKind = "UNDERLYING"
	KindOption     InstrumentKind = "OPTION"
)

// OptionType represents the option contract type.
type OptionType string

const (
	OptionCE OptionType = "CE"
	OptionPE OptionType = "PE"
)

// MarketStatus represents the current market status.
type MarketStatus string

const (
	MarketOpen             MarketStatus = "OPEN"
	MarketPreOpen          MarketStatus = "PRE_OPEN"
	MarketClosed           MarketStatus = "CLOSED"
	MarketMISSquareOffWarn MarketStatus = "MIS_SQUAREOFF_WARNING"
)

// Instrument represents a tradeable instrument. Reference data only,
// loaded once per session from the instrument master and never mutated.
type Instrument struct {
	Token      uint32
	Symbol     string
	Name       string
	Exchange   Exchange
	Segment    string
	LotSize    int
	TickSize   float64
	Kind       InstrumentKind
	OptionType OptionType // CE or PE when Kind == KindOption
	Strike     float64
	Expiry     time.Time
}

// IsOption reports whether the instrument is an option contract.
func (i Instrument) IsOption() bool {
	return i.Kind == KindOption
}

// RoundToTick rounds a price to the instrument's tick size.
func (i Instrument) RoundToTick(price float64) float64 {
	if i.TickSize <= 0 {
		return price
	}
	return math.Round(price/i.TickSize) * i.TickSize
}

// Candle represents OHLCV data for a time period.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Tick represents real-time market data.
type Tick struct {
	Token     uint32
	Symbol    string
	LTP       float64
	Volume    int64
	Timestamp time.Time
}

// LevelSide classifies a price level relative to the current price.
type LevelSide string

const (
	LevelSupport    LevelSide = "SUPPORT"
	LevelResistance LevelSide = "RESISTANCE"
)

// Level is a support or resistance zone derived from pivots.
// Levels are immutable; a refresh produces a brand-new set.
type Level struct {
	Price     float64
	Reactions int // number of merged pivots contributing to the zone
	Side      LevelSide
}
