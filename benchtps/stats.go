package benchtps

import (
	"fmt"
	"strings"
	"time"
)

// NodeStats is a single node's best-observed performance over a run:
// the highest sampled TPS and the total transactions attributed to it.
type NodeStats struct {
	Addr string
	TPS  float64
	Tx   uint64
}

// ShouldSwitchDirections decides whether the ping-pong funding loop
// should reverse direction at iteration i, given that each account was
// seeded with numTokensPerAccount tokens. The loop transfers 3/4 of the
// per-account balance out, then ping-pongs the remaining 1/4 back and
// forth, leaving a 1/4 buffer in each account so balances never hit
// zero mid-run.
func ShouldSwitchDirections(numTokensPerAccount, i int64) bool {
	quarter := numTokensPerAccount / 4
	if quarter == 0 {
		return false
	}
	return i%quarter == 0 && i >= (3*numTokensPerAccount)/4
}

// Report summarizes a run's per-node stats into a human-readable table,
// mirroring the original's compute_and_report_stats output shape.
func Report(stats []NodeStats, elapsed time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, " Node address        |       Max TPS | Total Transactions\n")
	fmt.Fprintf(&b, "---------------------+---------------+--------------------\n")

	var maxOfMaxes float64
	var maxTxCount uint64
	var totalMaxes float64
	var zeroTxNodes int
	var zeroTPSNodes int

	for _, s := range stats {
		flag := ""
		if s.Tx == 0 {
			flag = "!!!!!"
			zeroTxNodes++
		}
		if s.TPS == 0 {
			zeroTPSNodes++
		}
		fmt.Fprintf(&b, "%-20s | %13.2f | %d %s\n", s.Addr, s.TPS, s.Tx, flag)
		totalMaxes += s.TPS
		if s.TPS > maxOfMaxes {
			maxOfMaxes = s.TPS
		}
		if s.Tx > maxTxCount {
			maxTxCount = s.Tx
		}
	}

	if totalMaxes > 0 && len(stats) > zeroTPSNodes {
		avg := totalMaxes / float64(len(stats)-zeroTPSNodes)
		fmt.Fprintf(&b, "Average max TPS: %.2f, %d node(s) had 0 TPS\n", avg, zeroTPSNodes)
	}
	fmt.Fprintf(&b, "Highest TPS: %.2f, max transactions: %d, nodes: %d\n", maxOfMaxes, maxTxCount, len(stats))
	fmt.Fprintf(&b, "Average TPS: %.2f\n", float64(maxTxCount)/elapsed.Seconds())
	return b.String()
}
