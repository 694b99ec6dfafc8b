// Package benchtps is the load-testing driver: it converges on a running
// network via gossip, funds a wave of keypairs, and sustains transaction
// throughput against the leader while sampling every converged node's
// reported TPS. Grounded on
// original_source/buffett/src/bin/bench-tps.rs.
package benchtps

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/tolelom/fullnode/client"
	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/gossip"
	"github.com/tolelom/fullnode/wallet"
)

// numTokensPerAccount is the original's fixed seed amount per keypair;
// transfers themselves move a single token at a time, so this mainly
// bounds how long an account can sustain ping-ponging before a reversal
// is due (see ShouldSwitchDirections).
const numTokensPerAccount = 20

// Config tunes a benchmark run (spec.md §4.6 / §6's bench-tps flags).
type Config struct {
	NumNodes         int
	RejectExtraNodes bool
	Threads          int
	Duration         time.Duration
	TxCount          int
	Sustained        bool
	SamplePeriod     time.Duration
	ConvergeOnly     bool
	AuthToken        string
	Location         LocationDecorator
}

// DefaultConfig mirrors bench-tps.rs's CLI defaults.
func DefaultConfig() Config {
	return Config{
		NumNodes:     1,
		Threads:      4,
		Duration:     24 * 365 * time.Hour, // "forever" stand-in for u64::MAX seconds
		TxCount:      500_000,
		SamplePeriod: time.Second,
		Location:     NoLocation,
	}
}

// RunResult summarizes a completed (or converge-only) run.
type RunResult struct {
	Nodes        []gossip.ContactInfo
	Leader       gossip.ContactInfo
	TxSent       uint64
	SampledStats []NodeStats
	Elapsed      time.Duration
}

// Driver runs a single load-testing session end to end.
type Driver struct {
	cfg     Config
	metrics *Metrics
}

// NewDriver creates a Driver. metrics may be nil to disable Prometheus
// reporting (e.g. in tests).
func NewDriver(cfg Config, metrics *Metrics) *Driver {
	return &Driver{cfg: cfg, metrics: metrics}
}

// Run converges on the network starting from leaderAddr/leaderID, then —
// unless ConvergeOnly is set — funds identity, sustains load for
// cfg.Duration, and returns a stats summary.
func (d *Driver) Run(ctx context.Context, spyListenAddr, leaderID, leaderAddr string, tlsCfg *tls.Config, identity *wallet.Wallet) (*RunResult, error) {
	spy := gossip.NewSpyNode(spyListenAddr, tlsCfg)
	if err := spy.Start(); err != nil {
		return nil, fmt.Errorf("benchtps: spy start: %w", err)
	}
	defer spy.Stop()

	spy.SetLeader(leaderID)
	if err := spy.Insert(leaderID, leaderAddr); err != nil {
		return nil, fmt.Errorf("benchtps: converge: %w", err)
	}

	peers, err := gossip.Converge(spy, d.cfg.NumNodes, d.cfg.RejectExtraNodes)
	if err != nil {
		return nil, fmt.Errorf("benchtps: converge: %w", err)
	}
	log.Infow("converged", "nodes", len(peers))

	var leader gossip.ContactInfo
	for _, p := range peers {
		if p.NodeID == leaderID {
			leader = p
		}
	}
	if leader.TPU == "" {
		return nil, fmt.Errorf("benchtps: leader %q not found among converged peers", leaderID)
	}

	if d.cfg.ConvergeOnly {
		return &RunResult{Nodes: peers, Leader: leader}, nil
	}

	leaderURL := "http://" + leader.TPU + "/"
	leaderClient := client.New(leaderURL, d.cfg.AuthToken)

	keypairs, err := GenerateKeypairs(d.cfg.TxCount / 2)
	if err != nil {
		return nil, err
	}
	barrierWallet, err := wallet.Generate()
	if err != nil {
		return nil, err
	}

	required := uint64(numTokensPerAccount) * uint64(d.cfg.TxCount)
	if err := AirdropIfNeeded(ctx, leaderClient, identity.PrivKey().Public(), required); err != nil {
		return nil, err
	}
	if err := AirdropIfNeeded(ctx, leaderClient, barrierWallet.PrivKey().Public(), 1); err != nil {
		return nil, err
	}

	lastID, err := leaderClient.GetLastID(ctx)
	if err != nil {
		return nil, fmt.Errorf("benchtps: get last id: %w", err)
	}
	firstTxCount, err := leaderClient.GetTransactionCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("benchtps: get transaction count: %w", err)
	}

	sampleDone := make(chan struct{})
	var sampleWG sync.WaitGroup
	statsCh := make(chan NodeStats, len(peers))
	for _, p := range peers {
		p := p
		sampleWG.Add(1)
		go func() {
			defer sampleWG.Done()
			c := client.New("http://"+p.TPU+"/", d.cfg.AuthToken)
			statsCh <- SampleTxCount(ctx, p.TPU, c, firstTxCount, d.cfg.SamplePeriod, d.cfg.Location, d.metrics, sampleDone)
		}()
	}

	sender := NewSender(leaderClient, d.metrics)
	batches := make(chan []*core.Transaction, d.cfg.Threads*2)
	senderCtx, cancelSender := context.WithCancel(ctx)
	senderDone := make(chan error, 1)
	go func() { senderDone <- sender.Run(senderCtx, batches, d.cfg.Threads) }()

	start := time.Now()
	reclaim := false
	var i int64
	var runErr error
	for time.Since(start) < d.cfg.Duration {
		txs, err := GenerateTransfers(identity, keypairs, lastID, reclaim)
		if err != nil {
			log.Warnw("generate transfers failed", "error", err)
			continue
		}
		d.scatter(batches, txs)

		if !d.cfg.Sustained {
			d.drain(batches)
		}

		if err := SendBarrierTransaction(ctx, leaderClient, barrierWallet, &lastID); err != nil {
			runErr = err
			break
		}

		i++
		if ShouldSwitchDirections(numTokensPerAccount, i) {
			reclaim = !reclaim
		}
	}
	elapsed := time.Since(start)

	close(batches)
	<-senderDone
	cancelSender()

	close(sampleDone)
	sampleWG.Wait()
	close(statsCh)
	if runErr != nil {
		return nil, runErr
	}

	var stats []NodeStats
	for s := range statsCh {
		stats = append(stats, s)
	}

	return &RunResult{
		Nodes:        peers,
		Leader:       leader,
		TxSent:       sender.Sent(),
		SampledStats: stats,
		Elapsed:      elapsed,
	}, nil
}

// scatter chunks txs into per-thread batches and pushes them onto the
// send channel, mirroring generate_txs's chunk-by-thread-count split.
func (d *Driver) scatter(batches chan<- []*core.Transaction, txs []*core.Transaction) {
	threads := d.cfg.Threads
	if threads < 1 {
		threads = 1
	}
	chunkSize := len(txs) / threads
	if chunkSize == 0 {
		batches <- txs
		return
	}
	for start := 0; start < len(txs); start += chunkSize {
		end := start + chunkSize
		if end > len(txs) {
			end = len(txs)
		}
		batches <- txs[start:end]
	}
}

// drain blocks (peak-performance mode) until the send channel empties,
// rather than overlapping the next wave's signing with in-flight sends.
func (d *Driver) drain(batches chan []*core.Transaction) {
	for len(batches) > 0 {
		time.Sleep(100 * time.Millisecond)
	}
}
