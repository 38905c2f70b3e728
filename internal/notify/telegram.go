package notify

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"kite-levels-trader/internal/models"
	"kite-levels-trader/internal/trading"
)

// Command is a bot command received over Telegram.
type Command struct {
	Name string // without the leading slash, e.g. "halt"
	Args []string
}

// TelegramNotifier sends notifications through a Telegram bot and
// receives operator commands from the configured chat. Delivery
// failures are logged, never returned into the trading path.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger

	commands chan Command
}

// NewTelegramNotifier creates a Telegram notifier. Returns an error
// only when the bot token is rejected.
func NewTelegramNotifier(botToken string, chatID int64, logger zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}

	return &TelegramNotifier{
		bot:      bot,
		chatID:   chatID,
		logger:   logger,
		commands: make(chan Command, 16),
	}, nil
}

// Commands returns the channel of operator commands. The engine drains
// this from its event loop.
func (t *TelegramNotifier) Commands() <-chan Command {
	return t.commands
}

// Listen polls Telegram for updates and forwards commands from the
// configured chat until the context is cancelled. Run in its own
// goroutine.
func (t *TelegramNotifier) Listen(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	updates := t.bot.GetUpdatesChan(cfg)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.Chat.ID != t.chatID {
				// Commands from unknown chats are ignored.
				continue
			}

			cmd := Command{Name: update.Message.Command()}
			if args := strings.Fields(update.Message.CommandArguments()); len(args) > 0 {
				cmd.Args = args
			}

			select {
			case t.commands <- cmd:
			default:
				t.logger.Warn().Str("command", cmd.Name).Msg("Command queue full, dropping")
			}
		}
	}
}

// Send delivers a notification to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, n Notification) error {
	text := "*" + escapeMarkdown(n.Title) + "*\n\n" + escapeMarkdown(n.Message)

	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error().Err(err).Str("type", string(n.Type)).Msg("Telegram send failed")
		return err
	}
	return nil
}

// SendEntry notifies a new position.
func (t *TelegramNotifier) SendEntry(ctx context.Context, pos models.Position) error {
	return t.Send(ctx, entryNotification(pos))
}

// SendExit notifies a full or partial exit.
func (t *TelegramNotifier) SendExit(ctx context.Context, trade models.Trade) error {
	return t.Send(ctx, exitNotification(trade))
}

// SendRejection notifies a rejected retest with its reason.
func (t *TelegramNotifier) SendRejection(ctx context.Context, symbol string, level models.Level, reason string) error {
	return t.Send(ctx, rejectionNotification(symbol, level, reason))
}

// SendDailySummary notifies the end-of-day statistics.
func (t *TelegramNotifier) SendDailySummary(ctx context.Context, date time.Time, stats trading.SessionStats) error {
	return t.Send(ctx, summaryNotification(date, stats))
}

// SendError notifies an operational error.
func (t *TelegramNotifier) SendError(ctx context.Context, err error, errContext string) error {
	return t.Send(ctx, errorNotification(err, errContext))
}

// escapeMarkdown escapes MarkdownV2 special characters.
func escapeMarkdown(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s)
}

var _ Notifier = (*TelegramNotifier)(nil)
var _ Notifier = (*NoOpNotifier)(nil)
