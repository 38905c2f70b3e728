package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kite-levels-trader/internal/models"
)

// ist builds an IST timestamp on Monday 2025-06-02.
func ist(hour, min int) time.Time {
	return time.Date(2025, 6, 2, hour, min, 0, 0, IndiaLocation)
}

func TestMarketStatusAt(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want models.MarketStatus
	}{
		{"before pre-open", ist(8, 59), models.MarketClosed},
		{"pre-open start", ist(9, 0), models.MarketPreOpen},
		{"pre-open end", ist(9, 14), models.MarketPreOpen},
		{"open bell", ist(9, 15), models.MarketOpen},
		{"midday", ist(12, 30), models.MarketOpen},
		{"mis warning start", ist(15, 0), models.MarketMISSquareOffWarn},
		{"mis warning end", ist(15, 14), models.MarketMISSquareOffWarn},
		{"after square-off", ist(15, 15), models.MarketOpen},
		{"close bell", ist(15, 30), models.MarketClosed},
		{"evening", ist(18, 0), models.MarketClosed},
		{"saturday", time.Date(2025, 6, 7, 12, 0, 0, 0, IndiaLocation), models.MarketClosed},
		{"sunday", time.Date(2025, 6, 8, 12, 0, 0, 0, IndiaLocation), models.MarketClosed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MarketStatusAt(tc.at))
		})
	}
}

func TestIsMarketOpenAt(t *testing.T) {
	assert.False(t, IsMarketOpenAt(ist(9, 14)))
	assert.True(t, IsMarketOpenAt(ist(9, 15)))
	assert.True(t, IsMarketOpenAt(ist(15, 5))) // warning window still trades
	assert.False(t, IsMarketOpenAt(ist(15, 30)))
}

func TestMarketStatusConvertsTimezone(t *testing.T) {
	// 04:00 UTC is 09:30 IST, inside the session.
	utc := time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, models.MarketOpen, MarketStatusAt(utc))
}

func TestGetMarketCloseAndSquareOff(t *testing.T) {
	at := ist(11, 0)

	close := GetMarketClose(at)
	assert.Equal(t, 15, close.Hour())
	assert.Equal(t, 30, close.Minute())
	assert.Equal(t, at.Day(), close.Day())

	sq := GetMISSquareOffTime(at)
	assert.Equal(t, 15, sq.Hour())
	assert.Equal(t, 15, sq.Minute())
}
