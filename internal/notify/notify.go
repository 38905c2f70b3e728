// Package notify provides trade and signal notifications.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kite-levels-trader/internal/models"
	"kite-levels-trader/internal/trading"
	"kite-levels-trader/pkg/utils"
)

// Notifier sends event notifications. Delivery failures are logged by
// implementations and never propagated into the trading path.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendEntry(ctx context.Context, pos models.Position) error
	SendExit(ctx context.Context, trade models.Trade) error
	SendRejection(ctx context.Context, symbol string, level models.Level, reason string) error
	SendDailySummary(ctx context.Context, date time.Time, stats trading.SessionStats) error
	SendError(ctx context.Context, err error, context string) error
}

// Notification is a generic notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Timestamp time.Time
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationTrade   NotificationType = "trade"
	NotificationSignal  NotificationType = "signal"
	NotificationError   NotificationType = "error"
	NotificationSummary NotificationType = "summary"
	NotificationInfo    NotificationType = "info"
)

// formatCurrency renders a rupee value with Indian digit grouping.
func formatCurrency(amount float64) string {
	return utils.FormatIndianCurrency(amount)
}

func entryNotification(pos models.Position) Notification {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Symbol: %s\n", pos.Instrument.Symbol))
	sb.WriteString(fmt.Sprintf("Strategy: %s\n", pos.Strategy))
	sb.WriteString(fmt.Sprintf("Quantity: %d\n", pos.Quantity))
	sb.WriteString(fmt.Sprintf("Entry: %s\n", formatCurrency(pos.EntryPrice)))
	sb.WriteString(fmt.Sprintf("Stop: %s\n", formatCurrency(pos.StopLoss)))
	for i, target := range pos.Targets {
		sb.WriteString(fmt.Sprintf("Target %d: %s\n", i+1, formatCurrency(target)))
	}
	sb.WriteString(fmt.Sprintf("Level: %s", formatCurrency(pos.EntryLevel)))

	return Notification{
		Type:    NotificationTrade,
		Title:   fmt.Sprintf("🔔 Entry: %s", pos.Instrument.Symbol),
		Message: sb.String(),
	}
}

func exitNotification(trade models.Trade) Notification {
	pnlSign := "+"
	if trade.PnL < 0 {
		pnlSign = ""
	}

	message := fmt.Sprintf(
		"Symbol: %s\nReason: %s\nQuantity: %d\nEntry: %s\nExit: %s\nP&L: %s%s",
		trade.Symbol,
		trade.Reason,
		trade.Quantity,
		formatCurrency(trade.EntryPrice),
		formatCurrency(trade.ExitPrice),
		pnlSign,
		formatCurrency(trade.PnL),
	)

	emoji := "💰"
	if trade.PnL < 0 {
		emoji = "📉"
	}

	return Notification{
		Type:    NotificationTrade,
		Title:   fmt.Sprintf("%s Exit: %s", emoji, trade.Symbol),
		Message: message,
	}
}

func rejectionNotification(symbol string, level models.Level, reason string) Notification {
	side := "support"
	if level.Side == models.LevelResistance {
		side = "resistance"
	}

	return Notification{
		Type:  NotificationSignal,
		Title: fmt.Sprintf("⚠️ Signal rejected: %s", symbol),
		Message: fmt.Sprintf("Level: %s (%s)\nReason: %s",
			formatCurrency(level.Price), side, reason),
	}
}

func summaryNotification(date time.Time, stats trading.SessionStats) Notification {
	pnlEmoji := "📊"
	if stats.TotalPnL > 0 {
		pnlEmoji = "💰"
	} else if stats.TotalPnL < 0 {
		pnlEmoji = "📉"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total Trades: %d\n", stats.Trades))
	sb.WriteString(fmt.Sprintf("Winning: %d | Losing: %d\n", stats.Wins, stats.Losses))
	sb.WriteString(fmt.Sprintf("Win Rate: %.1f%%\n", stats.WinRate*100))
	sb.WriteString(fmt.Sprintf("Total P&L: %s\n", formatCurrency(stats.TotalPnL)))
	if stats.Trades > 0 {
		sb.WriteString(fmt.Sprintf("Mean P&L: %s (σ %s)\n", formatCurrency(stats.MeanPnL), formatCurrency(stats.StdDevPnL)))
		sb.WriteString(fmt.Sprintf("Best: %s | Worst: %s", formatCurrency(stats.Best), formatCurrency(stats.Worst)))
	}

	return Notification{
		Type:    NotificationSummary,
		Title:   fmt.Sprintf("%s Daily Summary - %s", pnlEmoji, date.Format("2006-01-02")),
		Message: sb.String(),
	}
}

func errorNotification(err error, errContext string) Notification {
	return Notification{
		Type:  NotificationError,
		Title: "❌ Error",
		Message: fmt.Sprintf("Context: %s\nError: %v\nTime: %s",
			errContext, err, time.Now().Format("15:04:05")),
	}
}

// NoOpNotifier discards all notifications.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

func (n *NoOpNotifier) Send(ctx context.Context, notif Notification) error { return nil }
func (n *NoOpNotifier) SendEntry(ctx context.Context, pos models.Position) error {
	return nil
}
func (n *NoOpNotifier) SendExit(ctx context.Context, trade models.Trade) error { return nil }
func (n *NoOpNotifier) SendRejection(ctx context.Context, symbol string, level models.Level, reason string) error {
	return nil
}
func (n *NoOpNotifier) SendDailySummary(ctx context.Context, date time.Time, stats trading.SessionStats) error {
	return nil
}
func (n *NoOpNotifier) SendError(ctx context.Context, err error, context string) error {
	return nil
}
