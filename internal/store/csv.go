package store

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"kite-levels-trader/internal/models"
)

// tradeRow is the CSV projection of a trade record.
type tradeRow struct {
	Time       string  `csv:"time"`
	Symbol     string  `csv:"symbol"`
	Exchange   string  `csv:"exchange"`
	Strategy   string  `csv:"strategy"`
	Action     string  `csv:"action"`
	Quantity   int     `csv:"quantity"`
	EntryPrice float64 `csv:"entry_price"`
	ExitPrice  float64 `csv:"exit_price"`
	PnL        float64 `csv:"pnl"`
	Reason     string  `csv:"reason"`
}

// ExportTradesCSV writes the trade log to a CSV file.
func ExportTradesCSV(path string, trades []models.Trade) error {
	rows := make([]tradeRow, len(trades))
	for i, t := range trades {
		rows[i] = tradeRow{
			Time:       t.Time.Format("2006-01-02 15:04:05"),
			Symbol:     t.Symbol,
			Exchange:   string(t.Exchange),
			Strategy:   t.Strategy,
			Action:     string(t.Action),
			Quantity:   t.Quantity,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			PnL:        t.PnL,
			Reason:     string(t.Reason),
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
