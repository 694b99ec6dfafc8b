package core

import "github.com/tolelom/fullnode/crypto"

// Account holds a participant's token balance. There is no replay nonce,
// and the bank layer does not check a transaction's LastID; the only
// duplicate check is the mempool's, while a transaction is pending.
type Account struct {
	Address crypto.PublicKey `json:"address"`
	Balance uint64           `json:"balance"`
}

// State is the account-balance state interface. Implementations must be
// snapshot-able so the bank executor can roll back a transaction that
// fails mid-apply without rejecting the whole entry.
type State interface {
	GetAccount(address crypto.PublicKey) (*Account, error)
	SetAccount(account *Account) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current
	// write buffer without flushing. Call this before an entry is mixed
	// into the PoH chain with a state-dependent digest.
	ComputeRoot() crypto.Digest
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
}
