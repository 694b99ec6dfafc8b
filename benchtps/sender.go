package benchtps

import (
	"context"
	"sync/atomic"

	"github.com/tolelom/fullnode/client"
	"github.com/tolelom/fullnode/core"
	"golang.org/x/sync/errgroup"
)

// Sender fans a stream of transaction batches out to the leader's RPC
// endpoint across a fixed worker pool, mirroring the original's
// do_tx_transfers threads pulling off a shared deque.
type Sender struct {
	leader  *client.Client
	metrics *Metrics
	sent    atomic.Uint64
}

// NewSender creates a Sender that submits every transaction to leader.
func NewSender(leader *client.Client, metrics *Metrics) *Sender {
	return &Sender{leader: leader, metrics: metrics}
}

// Sent returns the total number of transactions submitted so far.
func (s *Sender) Sent() uint64 {
	return s.sent.Load()
}

// Run drains batches with threads concurrent workers until batches is
// closed or ctx is canceled. A batch's send errors are logged and
// skipped rather than aborting the whole run, matching the original's
// "never let one bad send stop the driver" loop shape.
func (s *Sender) Run(ctx context.Context, batches <-chan []*core.Transaction, threads int) error {
	if threads < 1 {
		threads = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < threads; w++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case batch, ok := <-batches:
					if !ok {
						return nil
					}
					s.sendBatch(ctx, batch)
				}
			}
		})
	}
	return g.Wait()
}

func (s *Sender) sendBatch(ctx context.Context, batch []*core.Transaction) {
	for _, tx := range batch {
		if _, err := s.leader.SendTransaction(ctx, tx); err != nil {
			log.Warnw("send transaction failed", "error", err)
			continue
		}
		s.sent.Add(1)
		if s.metrics != nil {
			s.metrics.TxSent.Inc()
		}
	}
}
