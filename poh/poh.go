// Package poh implements Proof-of-History: a rolling hash chain whose
// length between two events is a verifiable proxy for elapsed time.
package poh

import "github.com/tolelom/fullnode/crypto"

// Entry is one unit of the PoH chain: either a pure-hash tick (Mixin is
// the zero Digest) or a hash mixed with a payload digest.
type Entry struct {
	NumHashes uint64
	ID        crypto.Digest
	Mixin     crypto.Digest
	HasMixin  bool
}

// Poh is the rolling hash state owned by a single producer.
type Poh struct {
	lastHash  crypto.Digest
	numHashes uint64
}

// New seeds a generator with the initial hash. num_hashes starts at 0.
func New(seed crypto.Digest) *Poh {
	return &Poh{lastHash: seed}
}

// LastHash returns the current running hash.
func (p *Poh) LastHash() crypto.Digest {
	return p.lastHash
}

// NumHashes returns the hash count accumulated since the last emission.
func (p *Poh) NumHashes() uint64 {
	return p.numHashes
}

// Hash advances last_hash <- H(last_hash) and increments num_hashes. It
// produces no entry; it is the pure "tick of work" primitive that Tick
// and Record build on.
func (p *Poh) Hash() {
	p.lastHash = crypto.DigestsOf(p.lastHash[:])
	p.numHashes++
}

// Tick performs one Hash, then emits an entry with no mixin and resets
// the counter.
func (p *Poh) Tick() Entry {
	p.Hash()
	e := Entry{NumHashes: p.numHashes, ID: p.lastHash}
	p.numHashes = 0
	return e
}

// Record emits an entry mixing the given payload digest into the chain:
// id = H(last_hash || mixin). The counter first accounts for the hash
// implied by mixing before resetting, matching the original num_hashes+1
// accounting (one hash of "this record" work beyond any ticks already
// counted).
func (p *Poh) Record(mixin crypto.Digest) Entry {
	id := crypto.DigestsOf(p.lastHash[:], mixin[:])
	e := Entry{NumHashes: p.numHashes + 1, ID: id, Mixin: mixin, HasMixin: true}
	p.lastHash = id
	p.numHashes = 0
	return e
}
