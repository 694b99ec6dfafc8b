// Package indexer maintains a secondary index mapping each account to
// the signatures of the transactions it has sent or received, so the RPC
// front end and thin client can answer "has this signature been seen"
// and "what has this account done" without scanning the whole ledger.
// Repurposed from the teacher's owner/player asset index, which indexed
// game-asset ownership the same way this indexes transaction history.
package indexer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/events"
	"github.com/tolelom/fullnode/storage"
)

const (
	prefixAccountTxs = "idx:account:txs:"
	prefixSeenSig    = "idx:sig:"
)

// Indexer subscribes to chain events and updates secondary lookup tables.
type Indexer struct {
	db      storage.DB
	emitter *events.Emitter
}

// New creates an Indexer backed by db and subscribes to relevant events.
func New(db storage.DB, emitter *events.Emitter) *Indexer {
	idx := &Indexer{db: db, emitter: emitter}
	emitter.Subscribe(events.EventTxExecuted, idx.onTxExecuted)
	return idx
}

// GetTransactionsByAccount returns all signature hex strings involving
// the given pubkey, in the order they were recorded.
func (idx *Indexer) GetTransactionsByAccount(account crypto.PublicKey) ([]string, error) {
	return idx.getList(prefixAccountTxs + account.Hex())
}

// HasSignature reports whether a given transaction signature has been
// recorded as executed.
func (idx *Indexer) HasSignature(sig crypto.Digest) (bool, error) {
	_, err := idx.db.Get([]byte(prefixSeenSig + sig.String()))
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (idx *Indexer) onTxExecuted(ev events.Event) {
	from, _ := ev.Data["from"].(string)
	to, _ := ev.Data["to"].(string)
	sig := ev.TxID
	if sig == "" {
		return
	}
	if err := idx.db.Set([]byte(prefixSeenSig+sig), []byte{1}); err != nil {
		log.Printf("[indexer] sig index write failed (sig=%s): %v", sig, err)
	}
	if from != "" {
		if err := idx.addToList(prefixAccountTxs+from, sig); err != nil {
			log.Printf("[indexer] account index write failed (account=%s sig=%s): %v", from, sig, err)
		}
	}
	if to != "" && to != from {
		if err := idx.addToList(prefixAccountTxs+to, sig); err != nil {
			log.Printf("[indexer] account index write failed (account=%s sig=%s): %v", to, sig, err)
		}
	}
}

// ---- list helpers ----

func (idx *Indexer) getList(key string) ([]string, error) {
	data, err := idx.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil // empty list
		}
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("indexer unmarshal: %w", err)
	}
	return ids, nil
}

func (idx *Indexer) addToList(key, value string) error {
	ids, err := idx.getList(key)
	if err != nil {
		return fmt.Errorf("read list: %w", err)
	}
	for _, id := range ids {
		if id == value {
			return nil // already present
		}
	}
	ids = append(ids, value)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return idx.db.Set([]byte(key), data)
}
