package tests

import (
	"testing"

	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/wallet"
)

// TestKeyGenAndAddress verifies that key generation and address derivation work.
func TestKeyGenAndAddress(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if len(pub.Hex()) != 64 {
		t.Errorf("pubkey hex length: got %d want 64", len(pub.Hex()))
	}
	addr := pub.Address()
	if len(addr) != 40 {
		t.Errorf("address length: got %d want 40", len(addr))
	}
	derived := priv.Public()
	if derived.Hex() != pub.Hex() {
		t.Error("derived public key does not match")
	}
}

// TestSignVerify ensures Sign/Verify round-trips correctly.
func TestSignVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	data := []byte("hello fullnode")
	sig := crypto.Sign(priv, data)
	if err := crypto.Verify(pub, data, sig); err != nil {
		t.Errorf("valid signature failed: %v", err)
	}
	if err := crypto.Verify(pub, []byte("tampered"), sig); err == nil {
		t.Error("tampered data should fail verification")
	}
}

// TestTransactionSignVerify ensures transaction signing, encoding and
// verification round-trip.
func TestTransactionSignVerify(t *testing.T) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	toWallet, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}

	tx := w.Transfer(toWallet.PrivKey().Public(), 100, 1, crypto.Digest{})
	if tx.ID().IsZero() {
		t.Error("tx ID should be non-zero after signing")
	}
	if err := tx.Verify(); err != nil {
		t.Errorf("Verify failed: %v", err)
	}

	// Tamper with the fee to check that verification catches it.
	tx.Fee = 999
	if err := tx.Verify(); err == nil {
		t.Error("tampered tx should fail verification")
	}
}

// TestTransactionEncodeDecodeRoundTrip checks the fixed wire layout
// survives an Encode/Decode cycle unchanged.
func TestTransactionEncodeDecodeRoundTrip(t *testing.T) {
	w, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	toWallet, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	lastID := crypto.DigestOf([]byte("seed"))
	tx := w.Transfer(toWallet.PrivKey().Public(), 42, 2, lastID)

	encoded := tx.Encode()
	if len(encoded) != core.EncodedSize {
		t.Fatalf("encoded length: got %d want %d", len(encoded), core.EncodedSize)
	}
	decoded, err := core.Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Amount != tx.Amount || decoded.Fee != tx.Fee {
		t.Error("decoded amount/fee mismatch")
	}
	if err := decoded.Verify(); err != nil {
		t.Errorf("decoded transaction failed verification: %v", err)
	}
}

// TestMempool verifies add/remove/pending operations.
func TestMempool(t *testing.T) {
	mp := core.NewMempool()
	w, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}
	toWallet, err := wallet.Generate()
	if err != nil {
		t.Fatal(err)
	}

	tx := w.Transfer(toWallet.PrivKey().Public(), 1, 0, crypto.Digest{})
	if err := mp.Add(tx); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if mp.Size() != 1 {
		t.Errorf("size: got %d want 1", mp.Size())
	}
	// Duplicate should fail
	if err := mp.Add(tx); err == nil {
		t.Error("adding duplicate tx should fail")
	}

	pending := mp.Pending(10)
	if len(pending) != 1 {
		t.Errorf("pending: got %d want 1", len(pending))
	}

	mp.Remove([]crypto.Digest{tx.ID()})
	if mp.Size() != 0 {
		t.Error("pool should be empty after remove")
	}
}
