package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kite-levels-trader/internal/broker"
	"kite-levels-trader/internal/engine"
	"kite-levels-trader/internal/notify"
	"kite-levels-trader/internal/store"
)

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the trading session",
		Long: `Starts the trading engine: connects the tick stream, backfills
candles, and trades level retests until interrupted or the session ends.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), app)
		},
	}
}

func runSession(ctx context.Context, app *App) error {
	creds := app.Config.Credentials.Zerodha
	if creds.APIKey == "" || creds.AccessToken == "" {
		return fmt.Errorf("zerodha api_key and access_token are required (credentials.toml or environment)")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := broker.NewZerodhaClient(creds.APIKey, creds.AccessToken)
	if err := client.LoadInstruments(ctx); err != nil {
		return fmt.Errorf("loading instrument master: %w", err)
	}

	feed := broker.NewKiteTicker(broker.KiteTickerConfig{
		APIKey:      creds.APIKey,
		AccessToken: creds.AccessToken,
	})

	st, err := store.NewSQLiteStore(dbPath())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	var notifier notify.Notifier = notify.NewNoOpNotifier()
	var commands <-chan notify.Command

	tg := app.Config.Notifications.Telegram
	if app.Config.Notifications.Enabled && tg.Enabled {
		telegram, err := notify.NewTelegramNotifier(tg.BotToken, tg.ChatID, app.Logger)
		if err != nil {
			app.Logger.Error().Err(err).Msg("Telegram disabled: bot init failed")
		} else {
			notifier = telegram
			commands = telegram.Commands()
			go telegram.Listen(ctx)
		}
	}

	eng := engine.New(engine.Deps{
		Logger:   app.Logger,
		Config:   app.Config,
		Feed:     feed,
		Hist:     client,
		Resolver: client,
		Notifier: notifier,
		Store:    st,
		Commands: commands,
	})

	app.Logger.Info().Str("mode", app.Config.Trading.Mode).Msg("Starting session")
	return eng.Run(ctx)
}
