package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kite-levels-trader/internal/models"
	"kite-levels-trader/internal/notify"
	"kite-levels-trader/pkg/utils"
)

// onCommand handles an operator command received over Telegram.
func (e *Engine) onCommand(ctx context.Context, cmd notify.Command) {
	e.logger.Info().Str("command", cmd.Name).Msg("Operator command")
	now := time.Now().In(utils.IndiaLocation)

	switch cmd.Name {
	case "halt":
		e.risk.ManualHalt()
		e.reply("Trading halted. Open positions remain managed.")

	case "resume":
		if err := e.risk.ManualResume(); err != nil {
			e.reply(fmt.Sprintf("Cannot resume: %v", err))
			return
		}
		e.reply("Trading resumed.")

	case "status":
		e.reply(e.statusText(now))

	case "recompute":
		for _, v := range e.variants {
			if err := v.levels.Refresh(v.agg.Series(), v.agg.LastPrice()); err != nil {
				e.logger.Warn().Err(err).Str("strategy", v.cfg.Name).Msg("Recompute failed")
			}
		}
		e.reply("Levels recomputed for all strategies.")

	case "squareoff":
		events := e.positions.SquareOffAll(models.ExitManual, now)
		e.handleExits(events, now)
		e.reply(fmt.Sprintf("Squared off %d position(s). New entries are blocked for the session.", len(events)))

	default:
		e.reply("Commands: /halt /resume /status /recompute /squareoff")
	}
}

// statusText composes the /status report.
func (e *Engine) statusText(now time.Time) string {
	var sb strings.Builder

	halted, reason := e.risk.Halted()
	state := "running"
	if halted {
		state = fmt.Sprintf("halted (%s)", reason)
	}
	if e.positions.Frozen() {
		state += ", squared off"
	}

	sb.WriteString(fmt.Sprintf("State: %s\n", state))
	sb.WriteString(fmt.Sprintf("Market: %s\n", utils.MarketStatusAt(now)))
	sb.WriteString(fmt.Sprintf("Daily P&L: %s\n", utils.FormatPnL(e.risk.DailyPnL())))

	open := e.positions.OpenPositions()
	sb.WriteString(fmt.Sprintf("Open positions: %d\n", len(open)))
	for _, pos := range open {
		stop := pos.StopLoss
		if pos.Trailing.Active {
			stop = pos.Trailing.TrailingStop
		}
		sb.WriteString(fmt.Sprintf("  %s qty=%d entry=%.2f stop=%.2f\n",
			pos.Instrument.Symbol, pos.Quantity, pos.EntryPrice, stop))
	}

	for _, v := range e.variants {
		sb.WriteString(fmt.Sprintf("%s: %d supports, %d resistances\n",
			v.cfg.Name, len(v.levels.Supports()), len(v.levels.Resistances())))
	}

	metrics := e.hub.Metrics()
	sb.WriteString(fmt.Sprintf("Ticks: %d received, %d dropped", metrics.TicksReceived, metrics.TicksDropped))

	return sb.String()
}

// reply sends an informational message to the operator chat.
func (e *Engine) reply(text string) {
	e.notifyAsync(func(ctx context.Context) {
		e.notifier.Send(ctx, notify.Notification{
			Type:    notify.NotificationInfo,
			Title:   "kite-levels-trader",
			Message: text,
		})
	})
}
