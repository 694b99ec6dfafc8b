package poh

import (
	"testing"

	"github.com/tolelom/fullnode/crypto"
)

func seedDigest(s string) crypto.Digest {
	return crypto.DigestOf([]byte(s))
}

// TestTickEmitsNoMixin ensures Tick advances the chain and emits an
// entry with no mixin, resetting the hash counter.
func TestTickEmitsNoMixin(t *testing.T) {
	p := New(seedDigest("seed"))
	e := p.Tick()
	if e.HasMixin {
		t.Error("tick entry should not carry a mixin")
	}
	if e.NumHashes != 1 {
		t.Errorf("num_hashes: got %d want 1", e.NumHashes)
	}
	if p.NumHashes() != 0 {
		t.Errorf("counter should reset to 0, got %d", p.NumHashes())
	}
}

// TestRecordEmitsMixin ensures Record mixes the payload digest in and
// updates last_hash to the new entry's id.
func TestRecordEmitsMixin(t *testing.T) {
	p := New(seedDigest("seed"))
	mixin := seedDigest("payload")
	e := p.Record(mixin)
	if !e.HasMixin || e.Mixin != mixin {
		t.Error("record entry should carry the given mixin")
	}
	if p.LastHash() != e.ID {
		t.Error("last_hash should advance to the recorded entry's id")
	}
	if p.NumHashes() != 0 {
		t.Errorf("counter should reset to 0, got %d", p.NumHashes())
	}
}

// TestPohRoundTrip is spec property 1: for any seed and any sequence of
// tick/record calls, Verify(seed, entries) succeeds, and mutating any
// bit of any id, mixin, or num_hashes makes it fail.
func TestPohRoundTrip(t *testing.T) {
	seed := seedDigest("genesis")
	p := New(seed)
	var entries []Entry
	entries = append(entries, p.Tick())
	entries = append(entries, p.Tick())
	entries = append(entries, p.Record(seedDigest("tx-batch-1")))
	entries = append(entries, p.Tick())
	entries = append(entries, p.Record(seedDigest("tx-batch-2")))

	if err := Verify(seed, entries); err != nil {
		t.Fatalf("expected valid chain to verify, got: %v", err)
	}

	t.Run("mutated id", func(t *testing.T) {
		mutated := append([]Entry(nil), entries...)
		mutated[2].ID[0] ^= 0xFF
		if err := Verify(seed, mutated); err == nil {
			t.Error("expected verification to fail on mutated id")
		}
	})

	t.Run("mutated mixin", func(t *testing.T) {
		mutated := append([]Entry(nil), entries...)
		mutated[4].Mixin[0] ^= 0xFF
		if err := Verify(seed, mutated); err == nil {
			t.Error("expected verification to fail on mutated mixin")
		}
	})

	t.Run("mutated num_hashes", func(t *testing.T) {
		mutated := append([]Entry(nil), entries...)
		mutated[0].NumHashes++
		if err := Verify(seed, mutated); err == nil {
			t.Error("expected verification to fail on mutated num_hashes")
		}
	})
}

func TestVerifyRejectsZeroNumHashes(t *testing.T) {
	seed := seedDigest("genesis")
	bad := Entry{NumHashes: 0, ID: seed}
	if err := Verify(seed, []Entry{bad}); err == nil {
		t.Error("expected zero num_hashes to be rejected")
	}
}
