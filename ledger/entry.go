// Package ledger implements the append-only PoH entry chain: the entry
// record, whole-chain ("block") verification, and its on-disk
// data/index file-pair persistence with crash recovery.
package ledger

import (
	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/poh"
)

// Entry is one unit of the ledger: a PoH entry plus the transactions it
// covers. An empty Transactions slice is a pure tick; a non-empty one
// mixes in the digest of the transactions' signatures.
type Entry struct {
	poh.Entry
	Transactions []*core.Transaction
}

// New computes an entry's id from prevID and numHashes without mutating
// any caller state. If txs is non-empty its signatures are digested and
// mixed in; otherwise the entry is a pure tick.
func New(prevID crypto.Digest, numHashes uint64, txs []*core.Transaction) (Entry, error) {
	pe := poh.Entry{NumHashes: numHashes}
	if len(txs) > 0 {
		pe.Mixin = core.SignaturesDigest(txs)
		pe.HasMixin = true
	}
	id, err := poh.NextID(prevID, pe)
	if err != nil {
		return Entry{}, err
	}
	pe.ID = id
	return Entry{Entry: pe, Transactions: txs}, nil
}

// NewMut is New, but also advances the caller's running (prevID,
// numHashes) pair to support streaming emission across a batch of
// entries without re-deriving state between calls.
func NewMut(prevID *crypto.Digest, numHashes *uint64, txs []*core.Transaction) (Entry, error) {
	e, err := New(*prevID, *numHashes, txs)
	if err != nil {
		return Entry{}, err
	}
	*prevID = e.ID
	*numHashes = 0
	return e, nil
}

// IsTick reports whether the entry carries no transactions.
func (e Entry) IsTick() bool {
	return len(e.Transactions) == 0
}
