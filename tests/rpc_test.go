package tests

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/tolelom/fullnode/bank"
	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/events"
	"github.com/tolelom/fullnode/indexer"
	"github.com/tolelom/fullnode/internal/testutil"
	"github.com/tolelom/fullnode/ledger"
	"github.com/tolelom/fullnode/rpc"
	"github.com/tolelom/fullnode/wallet"
)

// newTestRPCHandler builds an RPC handler backed by in-memory state and a
// fresh on-disk ledger in a temp directory.
func newTestRPCHandler(t *testing.T) *rpc.Handler {
	t.Helper()
	db := testutil.NewMemDB()
	state := bank.NewStateDB(db)
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)
	exec := bank.NewExecutor(state, emitter)
	mp := core.NewMempool()
	store, err := ledger.Open(t.TempDir())
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return rpc.NewHandler(store, mp, exec, idx)
}

func dispatch(handler *rpc.Handler, method string, params any) rpc.Response {
	raw, _ := json.Marshal(params)
	return handler.Dispatch(rpc.Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  raw,
	})
}

// TestRPCGetTransactionCount verifies getTransactionCount returns 0 for a
// fresh (entry-less) ledger.
func TestRPCGetTransactionCount(t *testing.T) {
	handler := newTestRPCHandler(t)
	resp := dispatch(handler, "getTransactionCount", struct{}{})
	if resp.Error != nil {
		t.Fatalf("error: %v", resp.Error.Message)
	}
	var count int64
	switch v := resp.Result.(type) {
	case int:
		count = int64(v)
	case float64:
		count = int64(v)
	default:
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if count != 0 {
		t.Errorf("count: got %d want 0", count)
	}
}

// TestRPCGetBalance verifies getBalance returns zero for an unknown account.
func TestRPCGetBalance(t *testing.T) {
	handler := newTestRPCHandler(t)
	w, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	resp := dispatch(handler, "getBalance", map[string]string{"pubkey": w.PubKey()})
	if resp.Error != nil {
		t.Fatalf("error: %v", resp.Error.Message)
	}
	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type: %T", resp.Result)
	}
	balance, _ := result["balance"].(uint64)
	if balance != 0 {
		t.Errorf("balance: got %v want 0", balance)
	}
}

// TestRPCRequestAirdropThenBalance verifies that an airdrop credit is
// reflected in a subsequent getBalance call.
func TestRPCRequestAirdropThenBalance(t *testing.T) {
	handler := newTestRPCHandler(t)
	w, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	resp := dispatch(handler, "requestAirdrop", map[string]any{"pubkey": w.PubKey(), "amount": 500})
	if resp.Error != nil {
		t.Fatalf("airdrop error: %v", resp.Error.Message)
	}

	resp = dispatch(handler, "getBalance", map[string]string{"pubkey": w.PubKey()})
	if resp.Error != nil {
		t.Fatalf("getBalance error: %v", resp.Error.Message)
	}
	result := resp.Result.(map[string]any)
	balance, _ := result["balance"].(uint64)
	if balance != 500 {
		t.Errorf("balance after airdrop: got %v want 500", balance)
	}
}

// TestRPCSendTransactionThenMempoolSize verifies a submitted transaction
// lands in the mempool and getMempoolSize reflects it.
func TestRPCSendTransactionThenMempoolSize(t *testing.T) {
	handler := newTestRPCHandler(t)
	from, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	toWallet, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	tx := from.Transfer(toWallet.PrivKey().Public(), 10, 1, [32]byte{})

	resp := dispatch(handler, "sendTransaction", map[string]string{"data": hex.EncodeToString(tx.Encode())})
	if resp.Error != nil {
		t.Fatalf("sendTransaction error: %v", resp.Error.Message)
	}

	resp = dispatch(handler, "getMempoolSize", struct{}{})
	if resp.Error != nil {
		t.Fatalf("error: %v", resp.Error.Message)
	}
	size, _ := resp.Result.(int)
	if size != 1 {
		t.Errorf("mempool size: got %d want 1", size)
	}
}

// TestRPCMethodNotFound verifies that unknown methods return a -32601 error.
func TestRPCMethodNotFound(t *testing.T) {
	handler := newTestRPCHandler(t)
	resp := dispatch(handler, "nonExistentMethod", struct{}{})
	if resp.Error == nil {
		t.Error("expected error for unknown method")
	}
	if resp.Error.Code != rpc.CodeMethodNotFound {
		t.Errorf("error code: got %d want %d", resp.Error.Code, rpc.CodeMethodNotFound)
	}
}
