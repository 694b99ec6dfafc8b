package benchtps

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tolelom/fullnode/bank"
	"github.com/tolelom/fullnode/config"
	"github.com/tolelom/fullnode/consensus"
	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/events"
	"github.com/tolelom/fullnode/gossip"
	"github.com/tolelom/fullnode/indexer"
	"github.com/tolelom/fullnode/internal/testutil"
	"github.com/tolelom/fullnode/ledger"
	"github.com/tolelom/fullnode/poh"
	"github.com/tolelom/fullnode/rpc"
	"github.com/tolelom/fullnode/wallet"
)

// harness stands up a single-node fullnode (ledger, bank, RPC, gossip,
// and a PoH leader loop) for benchtps to converge on and drive.
type harness struct {
	nodeID   string
	gossip   *gossip.Node
	rpc      *rpc.Server
	identity *wallet.Wallet
}

func startHarness(t *testing.T) *harness {
	t.Helper()

	db := testutil.NewMemDB()
	state := bank.NewStateDB(db)
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)
	exec := bank.NewExecutor(state, emitter)
	mempool := core.NewMempool()

	ledgerDir := t.TempDir()
	store, err := ledger.Open(ledgerDir)
	if err != nil {
		t.Fatal(err)
	}

	m, err := config.CreateGenesis(ledgerDir, store, exec, 10_000_000_000, "bench-leader", 0)
	if err != nil {
		t.Fatal(err)
	}
	lastID, err := m.LastID()
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.TickInterval = 10 * time.Millisecond
	cfg.MaxEntryTxs = 500

	generator := poh.New(lastID)
	leader := consensus.NewLeader(cfg, generator, store, mempool, exec, emitter)

	handler := rpc.NewHandler(store, mempool, exec, idx)
	rpcServer := rpc.NewServer(":0", handler, "")
	if err := rpcServer.Start(); err != nil {
		t.Fatal(err)
	}
	rpcAddr := rpcServer.Addr().String()

	node := gossip.NewNode("bench-leader", ":0", rpcAddr, mempool, nil)
	if err := node.Start(); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go leader.Run(cfg.TickInterval, done)

	t.Cleanup(func() {
		close(done)
		node.Stop()
		rpcServer.Stop()
		store.Close()
	})

	priv, err := m.Keypair()
	if err != nil {
		t.Fatal(err)
	}

	return &harness{nodeID: "bench-leader", gossip: node, rpc: rpcServer, identity: wallet.New(priv)}
}

func (h *harness) gossipAddr() string {
	return h.gossip.ListenAddr()
}

func TestDriverConvergeOnly(t *testing.T) {
	h := startHarness(t)

	cfg := DefaultConfig()
	cfg.NumNodes = 1
	cfg.ConvergeOnly = true

	d := NewDriver(cfg, nil)
	result, err := d.Run(context.Background(), ":0", h.nodeID, h.gossipAddr(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Nodes) != 1 {
		t.Fatalf("converged on %d nodes, want 1", len(result.Nodes))
	}
	if result.Leader.NodeID != h.nodeID {
		t.Fatalf("leader id = %q, want %q", result.Leader.NodeID, h.nodeID)
	}
}

func TestDriverShortRun(t *testing.T) {
	h := startHarness(t)

	cfg := DefaultConfig()
	cfg.NumNodes = 1
	cfg.TxCount = 10
	cfg.Threads = 2
	cfg.Duration = 300 * time.Millisecond
	cfg.SamplePeriod = 50 * time.Millisecond

	d := NewDriver(cfg, nil)
	result, err := d.Run(context.Background(), ":0", h.nodeID, h.gossipAddr(), nil, h.identity)
	if err != nil {
		t.Fatal(err)
	}
	if result.TxSent == 0 {
		t.Fatal("expected at least one transaction to be sent")
	}
	if len(result.SampledStats) != 1 {
		t.Fatalf("got %d sampled node stats, want 1", len(result.SampledStats))
	}
	fmt.Fprint(testWriter{t}, Report(result.SampledStats, result.Elapsed))
}

// testWriter adapts *testing.T into an io.Writer for one-line debug dumps.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}
