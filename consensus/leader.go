// Package consensus implements the PoH leader loop. Unlike the
// round-robin block proposer it replaces, there is one active leader at
// a time generating entries continuously: a fixed-interval tick when the
// mempool is empty, a record entry mixing in a batch of pending
// transactions otherwise. Every entry is appended to the ledger and
// applied to bank state before the next tick.
package consensus

import (
	"fmt"
	"log"
	"time"

	"github.com/tolelom/fullnode/bank"
	"github.com/tolelom/fullnode/config"
	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/events"
	"github.com/tolelom/fullnode/ledger"
	"github.com/tolelom/fullnode/poh"
)

// Leader drives a single node's entry production: it owns the live PoH
// generator and is the only writer to the ledger store and bank state
// while active.
type Leader struct {
	cfg       *config.Config
	generator *poh.Poh
	store     *ledger.Store
	mempool   *core.Mempool
	exec      *bank.Executor
	emitter   *events.Emitter
	entrySeq  uint64
}

// NewLeader creates a leader seeded at the chain's current tip: generator
// must already be positioned at the ledger's last entry id (the mint's
// last_id for a fresh chain, or the last recovered entry's id otherwise).
func NewLeader(cfg *config.Config, generator *poh.Poh, store *ledger.Store, mempool *core.Mempool, exec *bank.Executor, emitter *events.Emitter) *Leader {
	return &Leader{
		cfg:       cfg,
		generator: generator,
		store:     store,
		mempool:   mempool,
		exec:      exec,
		emitter:   emitter,
		entrySeq:  uint64(store.Len()),
	}
}

// maxEntryTxs bounds how many pending transactions a single entry mixes
// in, mirroring the teacher PoA engine's MaxBlockTxs cap.
func (l *Leader) maxEntryTxs() int {
	if l.cfg.MaxEntryTxs <= 0 {
		return 500
	}
	return l.cfg.MaxEntryTxs
}

// ProduceEntry advances the PoH generator by exactly one emitted entry:
// a tick if the mempool is empty, otherwise a record mixing in up to
// maxEntryTxs pending transactions. The entry is executed against bank
// state, appended to the ledger, and the consumed transactions are
// removed from the mempool (successful or not — a rejected transaction
// is not retried automatically; spec.md's signature/balance errors are
// terminal for that transaction).
func (l *Leader) ProduceEntry() (ledger.Entry, error) {
	txs := l.mempool.Pending(l.maxEntryTxs())

	var entry ledger.Entry
	if len(txs) == 0 {
		entry = ledger.Entry{Entry: l.generator.Tick()}
	} else {
		mixin := core.SignaturesDigest(txs)
		entry = ledger.Entry{Entry: l.generator.Record(mixin), Transactions: txs}
	}

	if len(entry.Transactions) > 0 {
		errs := l.exec.ExecuteEntry(l.entrySeq, entry.Transactions)
		for i, err := range errs {
			if err != nil {
				log.Printf("[consensus] entry %d tx %d rejected: %v", l.entrySeq, i, err)
			}
		}
		if err := l.exec.Commit(); err != nil {
			return entry, fmt.Errorf("consensus: commit entry %d: %w", l.entrySeq, err)
		}
	}

	if err := l.store.Append(entry); err != nil {
		return entry, fmt.Errorf("consensus: append entry %d: %w", l.entrySeq, err)
	}

	ids := make([]crypto.Digest, len(entry.Transactions))
	for i, tx := range entry.Transactions {
		ids[i] = tx.ID()
	}
	l.mempool.Remove(ids)

	if l.emitter != nil {
		l.emitter.Emit(events.Event{
			Type:     events.EventEntryCommit,
			EntrySeq: l.entrySeq,
			Data:     map[string]any{"id": entry.ID.String(), "num_tx": len(entry.Transactions)},
		})
	}

	l.entrySeq++
	return entry, nil
}

// Run drives ProduceEntry at tickInterval until done is closed.
func (l *Leader) Run(tickInterval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, err := l.ProduceEntry(); err != nil {
				log.Printf("[consensus] produce entry error: %v", err)
			}
		}
	}
}
