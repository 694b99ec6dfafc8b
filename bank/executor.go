package bank

import (
	"errors"
	"fmt"

	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/events"
)

// ErrInsufficientBalance is returned when a transfer's source account
// cannot cover amount+fee.
var ErrInsufficientBalance = errors.New("bank: insufficient balance")

// Executor applies ledger entries' transactions to account state. It
// deliberately implements exactly one instruction (transfer) rather than
// a pluggable handler registry: spec.md §1 scopes "on-chain program
// execution semantics beyond simple transfers" out, and this domain's
// Transaction (core.Transaction) has no opcode field to dispatch on —
// every transaction already *is* a transfer.
type Executor struct {
	state   core.State
	emitter *events.Emitter
}

// NewExecutor creates an Executor over state, optionally emitting events.
func NewExecutor(state core.State, emitter *events.Emitter) *Executor {
	return &Executor{state: state, emitter: emitter}
}

// ExecuteEntry applies every transaction in txs in order. A single
// transaction's failure does not reject the others: each is
// snapshotted and rolled back independently, matching the teacher's
// per-tx Snapshot/RevertToSnapshot discipline. entrySeq is the entry's
// position in the ledger, used only for event annotation.
func (e *Executor) ExecuteEntry(entrySeq uint64, txs []*core.Transaction) []error {
	errs := make([]error, len(txs))
	for i, tx := range txs {
		errs[i] = e.ExecuteTx(entrySeq, tx)
	}
	return errs
}

// ExecuteTx verifies and applies a single transaction with
// snapshot/rollback.
func (e *Executor) ExecuteTx(entrySeq uint64, tx *core.Transaction) error {
	if err := tx.Verify(); err != nil {
		return fmt.Errorf("signature: %w", err)
	}

	snapID, err := e.state.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	if err := e.transfer(tx); err != nil {
		if revertErr := e.state.RevertToSnapshot(snapID); revertErr != nil {
			return fmt.Errorf("revert snapshot after tx failure: %w (revert: %v)", err, revertErr)
		}
		return err
	}

	if e.emitter != nil {
		e.emitter.Emit(events.Event{
			Type:     events.EventTxExecuted,
			TxID:     tx.ID().String(),
			EntrySeq: entrySeq,
			Data:     map[string]any{"from": tx.From.Hex(), "to": tx.To.Hex(), "amount": tx.Amount},
		})
	}
	return nil
}

// transfer debits Amount+Fee from tx.From and credits Amount to tx.To.
func (e *Executor) transfer(tx *core.Transaction) error {
	from, err := e.state.GetAccount(tx.From)
	if err != nil {
		return fmt.Errorf("get from account: %w", err)
	}
	need := tx.Amount + tx.Fee
	if from.Balance < need {
		return fmt.Errorf("%w: have %d need %d", ErrInsufficientBalance, from.Balance, need)
	}
	to, err := e.state.GetAccount(tx.To)
	if err != nil {
		return fmt.Errorf("get to account: %w", err)
	}
	from.Balance -= need
	to.Balance += tx.Amount

	if err := e.state.SetAccount(from); err != nil {
		return err
	}
	if err := e.state.SetAccount(to); err != nil {
		return err
	}

	if e.emitter != nil {
		e.emitter.Emit(events.Event{
			Type: events.EventTokenTransfer,
			TxID: tx.ID().String(),
			Data: map[string]any{"from": tx.From.Hex(), "to": tx.To.Hex(), "amount": tx.Amount},
		})
	}
	return nil
}

// Credit directly increases an account's balance with no signed
// transaction — used only by genesis allocation and airdrop funding
// (spec.md §4.6's "Airdrop funding"), both of which are trusted
// operations outside the transaction-signature model.
func (e *Executor) Credit(addr crypto.PublicKey, amount uint64) error {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc.Balance += amount
	return e.state.SetAccount(acc)
}

// GetBalance is a read-only convenience for the RPC front end and the
// load driver's sampler.
func (e *Executor) GetBalance(addr crypto.PublicKey) (uint64, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// Commit flushes the underlying state's write buffer, making every
// transfer applied since the last Commit durable.
func (e *Executor) Commit() error {
	return e.state.Commit()
}
