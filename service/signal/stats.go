package signal

import (
	"math"

	"github.com/signaldesk/signaldesk-server/cmd/models"
)

// TradeStats summarizes the outcome of all closed trades.
type TradeStats struct {
	TotalTrades int     `json:"totalTrades"`
	Winners     int     `json:"winners"`
	Losers      int     `json:"losers"`
	AvgReturn   float64 `json:"avgReturn"`
	WinRate     float64 `json:"winRate"`
}

// ComputeTradeStats aggregates closed signals. A signal counts only when its
// status is closed and its return percent is set. A winner is a TARGET_HIT
// signal or any closed signal with a positive return, so a CLOSED_MANUAL
// signal that ended in profit counts as a win.
func ComputeTradeStats(signals []models.Signal) TradeStats {
	var stats TradeStats
	var totalReturn float64

	for _, s := range signals {
		if !models.IsClosedStatus(s.Status) || s.ReturnPercent == nil {
			continue
		}

		stats.TotalTrades++
		totalReturn += *s.ReturnPercent

		if s.Status == models.SignalStatusTargetHit || *s.ReturnPercent > 0 {
			stats.Winners++
		}
	}

	stats.Losers = stats.TotalTrades - stats.Winners

	if stats.TotalTrades > 0 {
		stats.AvgReturn = round2(totalReturn / float64(stats.TotalTrades))
		stats.WinRate = round2(float64(stats.Winners) / float64(stats.TotalTrades) * 100)
	}

	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
