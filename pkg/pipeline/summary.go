package pipeline

import "github.com/praetorian-inc/infobserve/pkg/types"

// Summary aggregates every processor worker's Stats into pipeline-wide
// totals alongside the per-worker breakdown, printed by the CLI at
// shutdown.
type Summary struct {
	PerWorker []types.Stats
	Total     types.Stats
}

// Summarize folds perWorker into a Summary.
func Summarize(perWorker []types.Stats) Summary {
	var total types.Stats
	for _, s := range perWorker {
		total = total.Add(s)
	}
	return Summary{PerWorker: perWorker, Total: total}
}
