package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"kite-levels-trader/internal/analysis/indicators"
	"kite-levels-trader/internal/broker"
	"kite-levels-trader/internal/models"
	"kite-levels-trader/pkg/utils"
)

func newLevelsCmd(app *App) *cobra.Command {
	var (
		exchange string
		interval int
		days     int
	)

	cmd := &cobra.Command{
		Use:   "levels SYMBOL",
		Short: "Preview detected support/resistance levels for a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return previewLevels(cmd, app, args[0], exchange, interval, days)
		},
	}

	cmd.Flags().StringVar(&exchange, "exchange", "NSE", "exchange (NSE, BSE, NFO, MCX)")
	cmd.Flags().IntVar(&interval, "interval", 15, "candle interval in minutes")
	cmd.Flags().IntVar(&days, "days", 5, "days of history")

	return cmd
}

func previewLevels(cmd *cobra.Command, app *App, symbol, exchange string, interval, days int) error {
	output := NewOutput(cmd)
	ctx := cmd.Context()

	creds := app.Config.Credentials.Zerodha
	if creds.APIKey == "" || creds.AccessToken == "" {
		return fmt.Errorf("zerodha api_key and access_token are required")
	}

	client := broker.NewZerodhaClient(creds.APIKey, creds.AccessToken)
	if err := client.LoadInstruments(ctx); err != nil {
		return fmt.Errorf("loading instrument master: %w", err)
	}

	inst, err := client.Resolve(ctx, symbol, models.Exchange(exchange))
	if err != nil {
		return err
	}

	to := time.Now().In(utils.IndiaLocation)
	candles, err := client.GetHistorical(ctx, broker.HistoricalRequest{
		Token:    inst.Token,
		Interval: broker.IntervalName(interval),
		From:     to.AddDate(0, 0, -days),
		To:       to,
	})
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		return fmt.Errorf("no candles for %s", symbol)
	}

	currentPrice := candles[len(candles)-1].Close
	detector := indicators.NewSupportResistance(3, 0.5, 2, 5)
	supports, resistances, err := detector.Detect(candles, currentPrice)
	if err != nil {
		return err
	}

	if output.IsJSON() {
		return output.JSON(map[string]interface{}{
			"symbol":      inst.Symbol,
			"price":       currentPrice,
			"supports":    supports,
			"resistances": resistances,
		})
	}

	output.Bold("%s (%s) @ %s", inst.Symbol, inst.Exchange, utils.FormatIndianCurrency(currentPrice))
	output.Printf("%d candles, %dm interval\n\n", len(candles), interval)

	output.Info("Resistances (closest first)")
	for _, lv := range resistances {
		output.Printf("  %s  (%d reactions)\n", utils.FormatIndianCurrency(lv.Price), lv.Reactions)
	}
	output.Info("Supports (closest first)")
	for _, lv := range supports {
		output.Printf("  %s  (%d reactions)\n", utils.FormatIndianCurrency(lv.Price), lv.Reactions)
	}

	return nil
}
