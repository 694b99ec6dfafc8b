package bank

import (
	"testing"

	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/events"
	"github.com/tolelom/fullnode/internal/testutil"
)

func newTestExecutor(t *testing.T) (*Executor, *StateDB) {
	t.Helper()
	state := NewStateDB(testutil.NewMemDB())
	return NewExecutor(state, events.NewEmitter()), state
}

// TestTransferDebitsAndCredits verifies spec property 6: after a
// transfer, the sum of balances is conserved minus fees.
func TestTransferDebitsAndCredits(t *testing.T) {
	exec, state := newTestExecutor(t)

	fromPriv, fromPub, _ := crypto.GenerateKeyPair()
	_, toPub, _ := crypto.GenerateKeyPair()
	_ = state.SetAccount(&core.Account{Address: fromPub, Balance: 100})

	tx := core.NewTransaction(fromPub, toPub, crypto.Digest{}, 30, 5)
	tx.Sign(fromPriv)

	if err := exec.ExecuteTx(0, tx); err != nil {
		t.Fatalf("ExecuteTx: %v", err)
	}

	from, _ := state.GetAccount(fromPub)
	to, _ := state.GetAccount(toPub)
	if from.Balance != 65 {
		t.Errorf("from balance: got %d want 65", from.Balance)
	}
	if to.Balance != 30 {
		t.Errorf("to balance: got %d want 30", to.Balance)
	}
}

// TestInsufficientBalanceRolledBack ensures a failed transfer leaves no
// trace in the write buffer.
func TestInsufficientBalanceRolledBack(t *testing.T) {
	exec, state := newTestExecutor(t)

	fromPriv, fromPub, _ := crypto.GenerateKeyPair()
	_, toPub, _ := crypto.GenerateKeyPair()
	_ = state.SetAccount(&core.Account{Address: fromPub, Balance: 10})

	tx := core.NewTransaction(fromPub, toPub, crypto.Digest{}, 30, 5)
	tx.Sign(fromPriv)

	if err := exec.ExecuteTx(0, tx); err == nil {
		t.Fatal("expected insufficient balance error")
	}

	from, _ := state.GetAccount(fromPub)
	if from.Balance != 10 {
		t.Errorf("balance should be unchanged after failed transfer, got %d", from.Balance)
	}
}

func TestStateRootDeterministic(t *testing.T) {
	_, state1 := newTestExecutor(t)
	_, state2 := newTestExecutor(t)

	_, pub, _ := crypto.GenerateKeyPair()
	_ = state1.SetAccount(&core.Account{Address: pub, Balance: 42})
	_ = state2.SetAccount(&core.Account{Address: pub, Balance: 42})

	if state1.ComputeRoot() != state2.ComputeRoot() {
		t.Error("identical state should produce identical roots")
	}
}
