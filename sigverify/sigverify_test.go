package sigverify

import (
	"context"
	"testing"

	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/packet"
)

func signedPacket(t *testing.T, amount uint64, corrupt bool) *packet.Packet {
	t.Helper()
	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	to, _, err := crypto.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	tx := core.NewTransaction(pub, to, crypto.Digest{}, amount, 1)
	tx.Sign(priv)
	data := tx.Encode()
	if corrupt {
		data[len(data)-1] ^= 0xFF
	}

	var pkt packet.Packet
	copy(pkt.Data[:], data)
	pkt.Meta.Size = len(data)
	return &pkt
}

func TestCPUVerifierAcceptsValidBatch(t *testing.T) {
	v := NewVerifier(64, false)
	batches := []*packet.Packets{{Packets: []packet.Packet{
		*signedPacket(t, 10, false),
		*signedPacket(t, 20, false),
	}}}

	results, err := v.Verify(context.Background(), batches)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || len(results[0]) != 2 || !results[0][0] || !results[0][1] {
		t.Fatalf("expected both packets to verify, got %v", results)
	}
}

func TestCPUVerifierRejectsTamperedPacket(t *testing.T) {
	v := NewVerifier(64, false)
	batches := []*packet.Packets{{Packets: []packet.Packet{*signedPacket(t, 10, true)}}}

	results, err := v.Verify(context.Background(), batches)
	if err != nil {
		t.Fatal(err)
	}
	if results[0][0] {
		t.Fatal("expected tampered packet to fail verification")
	}
}

func TestCPUVerifierRejectsShortPacket(t *testing.T) {
	v := NewVerifier(64, false)
	var short packet.Packet
	short.Meta.Size = core.SignedDataOffset // no signed bytes at all
	batches := []*packet.Packets{{Packets: []packet.Packet{short}}}

	results, err := v.Verify(context.Background(), batches)
	if err != nil {
		t.Fatal(err)
	}
	if results[0][0] {
		t.Fatal("expected short packet to fail verification")
	}
}

func TestCPUVerifierSpansMultipleBatches(t *testing.T) {
	v := NewVerifier(64, false)
	batches := []*packet.Packets{
		{Packets: []packet.Packet{*signedPacket(t, 10, false)}},
		{Packets: []packet.Packet{*signedPacket(t, 20, true)}},
	}

	results, err := v.Verify(context.Background(), batches)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected one result slice per batch, got %d", len(results))
	}
	if !results[0][0] {
		t.Fatal("expected first batch's packet to verify")
	}
	if results[1][0] {
		t.Fatal("expected second batch's tampered packet to fail verification")
	}
}

func TestOffloadVerifierFallsBackBelowCrossover(t *testing.T) {
	v := NewVerifier(64, true)
	batches := []*packet.Packets{{Packets: []packet.Packet{*signedPacket(t, 10, false)}}}

	results, err := v.Verify(context.Background(), batches)
	if err != nil {
		t.Fatal(err)
	}
	if !results[0][0] {
		t.Fatal("expected valid packet to verify via CPU fallback")
	}
}

func TestOffloadVerifierErrorsAtCrossover(t *testing.T) {
	v := NewVerifier(1, true)
	batches := []*packet.Packets{{Packets: []packet.Packet{
		*signedPacket(t, 10, false),
		*signedPacket(t, 20, false),
	}}}

	_, err := v.Verify(context.Background(), batches)
	if err != ErrOffloadUnavailable {
		t.Fatalf("expected ErrOffloadUnavailable, got %v", err)
	}
}

func TestOffloadVerifierCrossoverSumsAcrossBatches(t *testing.T) {
	v := NewVerifier(2, true)
	batches := []*packet.Packets{
		{Packets: []packet.Packet{*signedPacket(t, 10, false)}},
		{Packets: []packet.Packet{*signedPacket(t, 20, false)}},
	}

	_, err := v.Verify(context.Background(), batches)
	if err != ErrOffloadUnavailable {
		t.Fatalf("expected ErrOffloadUnavailable once aggregate count reaches crossover, got %v", err)
	}
}
