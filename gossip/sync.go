package gossip

import (
	"encoding/json"
	"log"

	"github.com/tolelom/fullnode/bank"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/ledger"
)

// GetEntriesRequest asks a peer for ledger entries starting at From.
type GetEntriesRequest struct {
	From  int `json:"from"`
	Limit int `json:"limit"`
}

// EntriesResponse carries a batch of entries starting at From.
type EntriesResponse struct {
	From    int            `json:"from"`
	Entries []ledger.Entry `json:"entries"`
}

const maxEntriesPerBatch = 200

// Syncer handles ledger-entry synchronisation between nodes. Unlike the
// height-indexed block sync it replaces, there is no fork choice: the
// PoH chain is strictly linear, so "sync" is just "fetch every entry
// past what I already have and verify it extends my chain."
type Syncer struct {
	node  *Node
	store *ledger.Store
	exec  *bank.Executor // may be nil: entries are still appended without execution
}

// NewSyncer creates a Syncer that serves and requests entries against store.
func NewSyncer(node *Node, store *ledger.Store, exec *bank.Executor) *Syncer {
	s := &Syncer{node: node, store: store, exec: exec}
	node.Handle(MsgGetEntries, s.handleGetEntries)
	node.Handle(MsgEntries, s.handleEntries)
	return s
}

// RequestEntries asks peer for every entry from index from onward.
func (s *Syncer) RequestEntries(peer *Peer, from int) error {
	req, err := json.Marshal(GetEntriesRequest{From: from, Limit: maxEntriesPerBatch})
	if err != nil {
		return err
	}
	return peer.Send(Message{Type: MsgGetEntries, Payload: req})
}

func (s *Syncer) handleGetEntries(peer *Peer, msg Message) {
	var req GetEntriesRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		return
	}
	if req.Limit <= 0 || req.Limit > maxEntriesPerBatch {
		req.Limit = maxEntriesPerBatch
	}
	n := s.store.Len()
	entries := make([]ledger.Entry, 0, req.Limit)
	for i := req.From; i < n && len(entries) < req.Limit; i++ {
		e, err := s.store.Read(i)
		if err != nil {
			break
		}
		entries = append(entries, e)
	}
	data, err := json.Marshal(EntriesResponse{From: req.From, Entries: entries})
	if err != nil {
		return
	}
	_ = peer.Send(Message{Type: MsgEntries, Payload: data})
}

// handleEntries appends a batch of received entries, verifying that the
// batch extends the chain from the caller's current tip before applying
// any of it, then executes each entry's transactions if exec is set.
func (s *Syncer) handleEntries(_ *Peer, msg Message) {
	var resp EntriesResponse
	if err := json.Unmarshal(msg.Payload, &resp); err != nil {
		return
	}
	if len(resp.Entries) == 0 {
		return
	}
	have := s.store.Len()
	if resp.From != have {
		log.Printf("[gossip] entry batch starts at %d, local tip is %d, dropping", resp.From, have)
		return
	}

	var initial crypto.Digest
	if have > 0 {
		prev, err := s.store.Read(have - 1)
		if err != nil {
			log.Printf("[gossip] read local tip %d: %v", have-1, err)
			return
		}
		initial = prev.ID
	}
	if err := ledger.VerifyChain(initial, resp.Entries); err != nil {
		log.Printf("[gossip] entry batch from %d failed verification: %v", resp.From, err)
		return
	}

	for i, e := range resp.Entries {
		if s.exec != nil && len(e.Transactions) > 0 {
			entrySeq := uint64(resp.From + i)
			for _, execErr := range s.exec.ExecuteEntry(entrySeq, e.Transactions) {
				if execErr != nil {
					log.Printf("[gossip] entry %d transaction execution failed: %v", entrySeq, execErr)
				}
			}
			if err := s.exec.Commit(); err != nil {
				log.Printf("[gossip] FATAL: entry %d state commit failed: %v", entrySeq, err)
				return
			}
		}
		if err := s.store.Append(e); err != nil {
			log.Printf("[gossip] append entry %d failed: %v", resp.From+i, err)
			return
		}
	}
}
