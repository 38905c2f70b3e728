// Package utils provides shared helpers: the market calendar, bounded
// retries, and display formatting for Indian rupee amounts.
package utils

import (
	"fmt"
	"strings"
)

// FormatIndianCurrency renders an amount as rupees with lakh/crore
// digit grouping, e.g. ₹12,34,567.89.
func FormatIndianCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	whole, frac, _ := strings.Cut(fmt.Sprintf("%.2f", amount), ".")
	return sign + "₹" + formatIndianNumber(whole) + "." + frac
}

// formatIndianNumber groups integer digits in the Indian system: the
// last three digits together, then pairs.
func formatIndianNumber(s string) string {
	if len(s) <= 3 {
		return s
	}

	groups := []string{s[len(s)-3:]}
	head := s[:len(s)-3]
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	groups = append([]string{head}, groups...)
	return strings.Join(groups, ",")
}

// FormatPnL prefixes gains with an explicit plus so P&L reads
// unambiguously in notifications and status output.
func FormatPnL(pnl float64) string {
	formatted := FormatIndianCurrency(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatPercent formats a signed percentage, e.g. +2.50%.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatCompact renders large amounts in lakhs or crores, and anything
// under a lakh as plain currency.
func FormatCompact(amount float64) string {
	abs := amount
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs >= 1e7:
		return fmt.Sprintf("%.2f Cr", amount/1e7)
	case abs >= 1e5:
		return fmt.Sprintf("%.2f L", amount/1e5)
	default:
		return FormatIndianCurrency(amount)
	}
}
