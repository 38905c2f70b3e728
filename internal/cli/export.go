package cli

import (
	"time"

	"github.com/spf13/cobra"

	"kite-levels-trader/internal/store"
	"kite-levels-trader/pkg/utils"
)

func newExportCmd(app *App) *cobra.Command {
	var (
		out  string
		days int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the trade log to CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			st, err := store.NewSQLiteStore(dbPath())
			if err != nil {
				return err
			}
			defer st.Close()

			to := time.Now().In(utils.IndiaLocation)
			from := to.AddDate(0, 0, -days)

			trades, err := st.GetTrades(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			if err := store.ExportTradesCSV(out, trades); err != nil {
				return err
			}

			output.Success("Exported %d trades to %s", len(trades), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "trades.csv", "output file")
	cmd.Flags().IntVar(&days, "days", 30, "days of history to export")

	return cmd
}
