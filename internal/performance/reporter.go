package performance

import (
	"log/slog"
)

// LogReport logs the ledger report as structured JSON.
func LogReport(r *Report) {
	slog.Info("ledger report",
		"runs", r.TotalRuns,
		"failed_runs", r.FailedRuns,
		"bets", r.TotalBets,
		"dry_run_bets", r.DryRunBets,
		"staked", r.Staked,
	)

	for name, stats := range r.AgentStats {
		slog.Info("agent activity",
			"agent", name,
			"bets", stats.BetCount,
			"yes_share", stats.YesShare,
			"avg_confidence", stats.AvgConfidence,
			"avg_edge", stats.AvgEdge,
		)
	}
}
