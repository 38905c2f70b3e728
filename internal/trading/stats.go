package trading

import (
	"gonum.org/v1/gonum/stat"

	"kite-levels-trader/internal/models"
)

// SessionStats summarizes a day's closed trades.
type SessionStats struct {
	Trades    int
	Wins      int
	Losses    int
	WinRate   float64
	TotalPnL  float64
	MeanPnL   float64
	StdDevPnL float64
	Best      float64
	Worst     float64
}

// Summarize computes the end-of-day statistics over the session's
// trade records.
func Summarize(trades []models.Trade) SessionStats {
	s := SessionStats{Trades: len(trades)}
	if len(trades) == 0 {
		return s
	}

	pnls := make([]float64, len(trades))
	s.Best = trades[0].PnL
	s.Worst = trades[0].PnL
	for i, t := range trades {
		pnls[i] = t.PnL
		s.TotalPnL += t.PnL
		if t.PnL > 0 {
			s.Wins++
		} else {
			s.Losses++
		}
		if t.PnL > s.Best {
			s.Best = t.PnL
		}
		if t.PnL < s.Worst {
			s.Worst = t.PnL
		}
	}

	s.WinRate = float64(s.Wins) / float64(len(trades))
	s.MeanPnL = stat.Mean(pnls, nil)
	if len(pnls) > 1 {
		s.StdDevPnL = stat.StdDev(pnls, nil)
	}
	return s
}
