package benchtps

import (
	"context"
	"net"
	"time"

	"github.com/tolelom/fullnode/client"
)

// SampleTxCount polls addr's transaction count every samplePeriod and
// tracks the maximum observed TPS and the total transactions attributed
// to it since firstTxCount, mirroring the original's sample_tx_count.
// It returns once done is closed.
func SampleTxCount(ctx context.Context, addr string, c *client.Client, firstTxCount int64, samplePeriod time.Duration, loc LocationDecorator, metrics *Metrics, done <-chan struct{}) NodeStats {
	if loc == nil {
		loc = NoLocation
	}
	ticker := time.NewTicker(samplePeriod)
	defer ticker.Stop()

	now := time.Now()
	initial, err := c.GetTransactionCount(ctx)
	if err != nil {
		log.Warnw("sample: initial transaction count failed", "addr", addr, "error", err)
	}

	var maxTPS float64
	var total uint64

	for {
		select {
		case <-done:
			return NodeStats{Addr: addr, TPS: maxTPS, Tx: total}
		case <-ticker.C:
			count, err := c.GetTransactionCount(ctx)
			if err != nil {
				log.Warnw("sample: transaction count failed", "addr", addr, "error", err)
				continue
			}
			if count < initial {
				// A stale read raced a newer one; hold the previous
				// maximum rather than report a bogus negative rate.
				log.Warnw("sample: transaction count decreased, holding previous max", "addr", addr, "count", count, "initial", initial)
				now = time.Now()
				continue
			}
			elapsed := time.Since(now)
			now = time.Now()
			sample := count - initial
			initial = count

			tps := float64(sample) / elapsed.Seconds()
			if tps > maxTPS {
				maxTPS = tps
			}
			if count > firstTxCount {
				total = uint64(count - firstTxCount)
			}

			if metrics != nil {
				metrics.NodeTPS.WithLabelValues(addr).Set(tps)
			}
			label := loc(hostIP(addr))
			log.Infow("sampled node", "addr", addr, "location", label, "tps", tps, "total", total)
		}
	}
}

func hostIP(addr string) net.IP {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return net.ParseIP(host)
}
