package mint

import (
	"testing"

	"github.com/tolelom/fullnode/ledger"
)

func TestCreateEntriesMatchesLastID(t *testing.T) {
	m, err := New(10000)
	if err != nil {
		t.Fatal(err)
	}

	entries, err := m.CreateEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected exactly 2 bootstrap entries, got %d", len(entries))
	}
	if entries[0].ID != m.Seed() {
		t.Errorf("e0.id should equal the seed verbatim: got %s want %s", entries[0].ID, m.Seed())
	}
	if entries[0].NumHashes != 0 || entries[0].HasMixin {
		t.Errorf("e0 should carry zero num_hashes and no mixin")
	}
	if len(entries[1].Transactions) != 1 {
		t.Fatalf("e1 should carry exactly the mint transaction")
	}

	lastID, err := m.LastID()
	if err != nil {
		t.Fatal(err)
	}
	if lastID != entries[1].ID {
		t.Errorf("last_id should equal e1.id: got %s want %s", lastID, entries[1].ID)
	}

	if err := ledger.VerifyChain(m.Seed(), entries[1:]); err != nil {
		t.Errorf("e1 alone should verify against seed as the chain's previous id: %v", err)
	}
}

func TestCreateEntriesDeterministic(t *testing.T) {
	m, err := New(500)
	if err != nil {
		t.Fatal(err)
	}
	a, err := m.CreateEntries()
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.CreateEntries()
	if err != nil {
		t.Fatal(err)
	}
	if a[0].ID != b[0].ID || a[1].ID != b[1].ID {
		t.Errorf("create_entries must be deterministic given the same pkcs8 seed")
	}
}

func TestNewWithPKCS8RoundTrip(t *testing.T) {
	m1, err := New(1)
	if err != nil {
		t.Fatal(err)
	}
	m2, err := NewWithPKCS8(1, m1.PKCS8)
	if err != nil {
		t.Fatal(err)
	}
	if m1.Pubkey().Hex() != m2.Pubkey().Hex() {
		t.Errorf("reconstructing from the same pkcs8 seed should yield the same pubkey")
	}
}
