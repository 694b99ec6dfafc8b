package client

import (
	"context"
	"fmt"
	"testing"

	"github.com/tolelom/fullnode/bank"
	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/events"
	"github.com/tolelom/fullnode/indexer"
	"github.com/tolelom/fullnode/internal/testutil"
	"github.com/tolelom/fullnode/ledger"
	"github.com/tolelom/fullnode/rpc"
	"github.com/tolelom/fullnode/wallet"
)

func newTestServer(t *testing.T) *Client {
	t.Helper()
	db := testutil.NewMemDB()
	state := bank.NewStateDB(db)
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)
	exec := bank.NewExecutor(state, emitter)
	mp := core.NewMempool()
	store, err := ledger.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	handler := rpc.NewHandler(store, mp, exec, idx)
	server := rpc.NewServer(":0", handler, "")
	if err := server.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { server.Stop() })

	return New(fmt.Sprintf("http://%s/", server.Addr()), "")
}

func TestClientGetBalanceAndAirdrop(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	w, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	pub := w.PrivKey().Public()

	bal, err := c.GetBalance(ctx, pub)
	if err != nil {
		t.Fatal(err)
	}
	if bal != 0 {
		t.Fatalf("balance = %d, want 0", bal)
	}

	if err := c.RequestAirdrop(ctx, pub, 1000); err != nil {
		t.Fatal(err)
	}
	bal, err = c.GetBalance(ctx, pub)
	if err != nil {
		t.Fatal(err)
	}
	if bal != 1000 {
		t.Fatalf("balance after airdrop = %d, want 1000", bal)
	}
}

func TestClientSendTransactionAndSignatureStatus(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	from, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	to, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}

	tx := from.Transfer(to.PrivKey().Public(), 1, 0, crypto.Digest{})
	sig, err := c.SendTransaction(ctx, tx)
	if err != nil {
		t.Fatal(err)
	}
	if sig != tx.ID() {
		t.Fatalf("returned signature does not match tx ID")
	}

	status, err := c.SignatureStatus(ctx, sig)
	if err != nil {
		t.Fatal(err)
	}
	if status != "pending" {
		t.Fatalf("status = %q, want pending", status)
	}

	n, err := c.GetMempoolSize(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("mempool size = %d, want 1", n)
	}
}

func TestClientGetTransactionCountOnFreshLedger(t *testing.T) {
	c := newTestServer(t)
	n, err := c.GetTransactionCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("transaction count = %d, want 0", n)
	}
}
