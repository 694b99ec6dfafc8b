package gossip

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// ConvergeTimeout is how long a spy waits for the network to converge
// before the caller must treat it as a liveness failure (spec.md §4.7).
const ConvergeTimeout = 30 * time.Second

// SpyNode is a passive gossip participant: it never sends transactions
// or produces entries, it only connects to a known leader and records
// the ContactInfo every peer that talks to it advertises. A load driver
// uses it to discover the network before driving load, mirroring the
// teacher's "spy_node" (original_source/buffett/src/bin/bench-tps.rs's
// converge(), original_source/buffett/tests/multinode.rs's make_spy_node).
type SpyNode struct {
	node *Node

	mu       sync.RWMutex
	leaderID string
	peers    map[string]ContactInfo
}

// NewSpyNode creates a spy listening on listenAddr, with handlers wired
// to record every peer's advertised ContactInfo.
func NewSpyNode(listenAddr string, tlsCfg *tls.Config) *SpyNode {
	n := NewNode("spy", listenAddr, "", nil, tlsCfg)
	s := &SpyNode{node: n, peers: make(map[string]ContactInfo)}
	n.Handle(MsgHello, s.onContactInfo)
	n.Handle(MsgContactInfo, s.onContactInfo)
	return s
}

// Start begins listening for inbound peer connections.
func (s *SpyNode) Start() error {
	return s.node.Start()
}

// Stop shuts the spy down.
func (s *SpyNode) Stop() {
	s.node.Stop()
}

// Insert dials the given node and registers it as a known peer, seeding
// the membership table the way Crdt::insert does in the original.
func (s *SpyNode) Insert(nodeID, addr string) error {
	if err := s.node.AddPeer(nodeID, addr); err != nil {
		return fmt.Errorf("gossip: spy insert %s: %w", nodeID, err)
	}
	return nil
}

// SetLeader marks nodeID as the leader to wait on; Converge aborts if it
// never becomes resolved.
func (s *SpyNode) SetLeader(nodeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderID = nodeID
}

// LeaderKnown reports whether the leader has advertised valid contact info.
func (s *SpyNode) LeaderKnown() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ci, ok := s.peers[s.leaderID]
	return ok && ci.TPU != ""
}

// ValidPeers returns every peer that has advertised a non-empty
// transaction-receiving (TPU) address.
func (s *SpyNode) ValidPeers() []ContactInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ContactInfo, 0, len(s.peers))
	for _, ci := range s.peers {
		if ci.TPU != "" {
			out = append(out, ci)
		}
	}
	return out
}

func (s *SpyNode) onContactInfo(_ *Peer, msg Message) {
	var ci ContactInfo
	if err := json.Unmarshal(msg.Payload, &ci); err != nil || ci.NodeID == "" {
		return
	}
	s.mu.Lock()
	s.peers[ci.NodeID] = ci
	s.mu.Unlock()
}

// Converge blocks until at least numNodes peers have advertised a valid
// TPU address and the leader is resolved, or until ConvergeTimeout
// elapses. If rejectExtra is set and more than numNodes peers are seen,
// it returns an error immediately (spec.md §4.7).
func Converge(s *SpyNode, numNodes int, rejectExtra bool) ([]ContactInfo, error) {
	deadline := time.Now().Add(ConvergeTimeout)
	for time.Now().Before(deadline) {
		peers := s.ValidPeers()
		if rejectExtra && len(peers) > numNodes {
			return nil, fmt.Errorf("gossip: %d nodes discovered, exceeds --num-nodes=%d with --reject-extra-nodes", len(peers), numNodes)
		}
		if len(peers) >= numNodes && s.LeaderKnown() {
			return peers, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !s.LeaderKnown() {
		return nil, fmt.Errorf("gossip: leader not resolved after %s", ConvergeTimeout)
	}
	return nil, fmt.Errorf("gossip: only %d of %d nodes converged after %s", len(s.ValidPeers()), numNodes, ConvergeTimeout)
}
