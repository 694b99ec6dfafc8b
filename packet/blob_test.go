package packet

import (
	"errors"
	"testing"

	"github.com/tolelom/fullnode/crypto"
)

func TestBlobHeaderBijection(t *testing.T) {
	_, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}

	var b Blob
	b.SetIndex(42)
	b.SetID(pub)
	b.SetFlags(0)
	b.SetCoding()
	b.SetSize(100)

	if got := b.GetIndex(); got != 42 {
		t.Fatalf("index = %d, want 42", got)
	}
	if got := b.GetID(); got.Hex() != pub.Hex() {
		t.Fatalf("id = %x, want %x", got, pub)
	}
	if !b.IsCoding() {
		t.Fatal("expected IsCoding true after SetCoding")
	}
	size, err := b.GetSize()
	if err != nil {
		t.Fatal(err)
	}
	if size != 100 {
		t.Fatalf("size = %d, want 100", size)
	}
}

func TestBlobGetSizeBadState(t *testing.T) {
	var b Blob
	b.SetSize(50)
	b.Meta.Size = 999 // corrupt meta out of lock-step with header

	_, err := b.GetSize()
	if !errors.Is(err, ErrBlobBadState) {
		t.Fatalf("expected ErrBlobBadState, got %v", err)
	}
}

func TestBlobPayloadRoundTrip(t *testing.T) {
	var b Blob
	payload := []byte("repair me")
	copy(b.PayloadWrite(), payload)
	b.SetSize(len(payload))

	got := b.PayloadRead()[:len(payload)]
	if string(got) != string(payload) {
		t.Fatalf("payload = %q, want %q", got, payload)
	}
}
