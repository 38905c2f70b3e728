package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatIndianNumberGrouping(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1,000"},
		{"100000", "1,00,000"},
		{"1234567", "12,34,567"},
		{"10000000", "1,00,00,000"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatIndianNumber(tc.in))
	}
}

func TestFormatIndianCurrency(t *testing.T) {
	assert.Equal(t, "₹1,25,000.00", FormatIndianCurrency(125000))
	assert.Equal(t, "-₹500.00", FormatIndianCurrency(-500))
	assert.Equal(t, "₹0.00", FormatIndianCurrency(0))
	assert.Equal(t, "₹99.05", FormatIndianCurrency(99.05))
}

func TestFormatPnL(t *testing.T) {
	assert.True(t, strings.HasPrefix(FormatPnL(100), "+"))
	assert.True(t, strings.HasPrefix(FormatPnL(-100), "-"))
	assert.False(t, strings.HasPrefix(FormatPnL(0), "+"))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+2.50%", FormatPercent(2.5))
	assert.Equal(t, "-1.25%", FormatPercent(-1.25))
	assert.Equal(t, "0.00%", FormatPercent(0))
}

func TestFormatCompact(t *testing.T) {
	assert.Equal(t, "1.50 L", FormatCompact(150000))
	assert.Equal(t, "2.50 Cr", FormatCompact(25000000))
	assert.Equal(t, "-1.20 L", FormatCompact(-120000))
	assert.True(t, strings.Contains(FormatCompact(9999), "9,999.00"))
}
