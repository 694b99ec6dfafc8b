package core

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tolelom/fullnode/crypto"
)

// Wire-format byte offsets for a transaction packed into a packet. These
// are part of the on-wire contract consumed by the sigverify pipeline and
// must not be derived from Go struct layout.
const (
	SigOffset        = 0
	SigSize          = 64
	PubKeyOffset     = SigOffset + SigSize // 64
	PubKeySize       = 32
	SignedDataOffset = PubKeyOffset + PubKeySize // 96: recent_blockhash .. end
	lastIDSize       = 32
	toSize           = 32
	amountSize       = 8
	feeSize          = 8
	// EncodedSize is the fixed size of an encoded transfer transaction:
	// signature + pubkey + last_id + to + amount + fee.
	EncodedSize = SignedDataOffset + lastIDSize + toSize + amountSize + feeSize
)

var (
	// ErrInvalidSignature is returned when a transaction's signature does
	// not verify against its signed byte range and From pubkey.
	ErrInvalidSignature = errors.New("core: invalid transaction signature")
	// ErrShortPacket is returned when a packet is too small to contain a
	// signed data range at all (spec.md §4.4: meta.size <= SIGNED_DATA_OFFSET).
	ErrShortPacket = errors.New("core: packet too short for signed data")
)

// Transaction is the atomic unit of work: a signed transfer of amount
// from the signer's account to To, paying Fee, carrying LastID (the
// ledger id the sender last observed; it is signed but no layer checks
// it, so the transaction does not expire).
//
// The first (and, for this transfer-only instruction set, only) signer
// is always the fee payer. Signature covers every byte from
// SignedDataOffset to the end of the encoded transaction.
type Transaction struct {
	Signature [SigSize]byte
	From      crypto.PublicKey // SigSize..SigSize+32
	LastID    crypto.Digest
	To        crypto.PublicKey
	Amount    uint64
	Fee       uint64
}

// NewTransaction builds an unsigned transfer transaction.
func NewTransaction(from, to crypto.PublicKey, lastID crypto.Digest, amount, fee uint64) *Transaction {
	return &Transaction{From: from, To: to, LastID: lastID, Amount: amount, Fee: fee}
}

// signedRange returns the bytes covered by the signature: last_id || to
// || amount || fee, exactly the bytes at SignedDataOffset.. in Encode's
// output.
func (tx *Transaction) signedRange() []byte {
	buf := make([]byte, lastIDSize+toSize+amountSize+feeSize)
	copy(buf[0:32], tx.LastID[:])
	copy(buf[32:64], tx.To)
	binary.BigEndian.PutUint64(buf[64:72], tx.Amount)
	binary.BigEndian.PutUint64(buf[72:80], tx.Fee)
	return buf
}

// Encode packs the transaction into its fixed wire layout.
func (tx *Transaction) Encode() []byte {
	buf := make([]byte, EncodedSize)
	copy(buf[SigOffset:SigOffset+SigSize], tx.Signature[:])
	copy(buf[PubKeyOffset:PubKeyOffset+PubKeySize], tx.From)
	copy(buf[SignedDataOffset:], tx.signedRange())
	return buf
}

// Decode unpacks a transaction from its fixed wire layout.
func Decode(b []byte) (*Transaction, error) {
	if len(b) < EncodedSize {
		return nil, fmt.Errorf("core: short transaction encoding: %d bytes", len(b))
	}
	tx := &Transaction{
		From: crypto.PublicKey(append([]byte(nil), b[PubKeyOffset:PubKeyOffset+PubKeySize]...)),
		To:   crypto.PublicKey(append([]byte(nil), b[SignedDataOffset+32:SignedDataOffset+64]...)),
	}
	copy(tx.Signature[:], b[SigOffset:SigOffset+SigSize])
	copy(tx.LastID[:], b[SignedDataOffset:SignedDataOffset+32])
	tx.Amount = binary.BigEndian.Uint64(b[SignedDataOffset+64 : SignedDataOffset+72])
	tx.Fee = binary.BigEndian.Uint64(b[SignedDataOffset+72 : SignedDataOffset+80])
	return tx, nil
}

// Sign signs the transaction's signed range with priv and sets From to
// the matching public key.
func (tx *Transaction) Sign(priv crypto.PrivateKey) {
	tx.From = priv.Public()
	sigHex := crypto.Sign(priv, tx.signedRange())
	raw, _ := hex.DecodeString(sigHex)
	copy(tx.Signature[:], raw)
}

// Verify checks the transaction's signature against its signed range and
// From public key.
func (tx *Transaction) Verify() error {
	sigHex := hex.EncodeToString(tx.Signature[:])
	if err := crypto.Verify(tx.From, tx.signedRange(), sigHex); err != nil {
		return ErrInvalidSignature
	}
	return nil
}

// ID returns the transaction's identity: the digest of its signature,
// which is what entry mixins and signature-status lookups key on.
func (tx *Transaction) ID() crypto.Digest {
	return crypto.DigestOf(tx.Signature[:])
}

// SignaturesDigest hashes the signatures of a batch of transactions, in
// order. An Entry mixes this digest in when it records a non-empty
// transaction batch (spec.md §3: "id = H(prev.id, num_hashes×hash) [⊕
// payload digest]").
func SignaturesDigest(txs []*Transaction) crypto.Digest {
	parts := make([][]byte, len(txs))
	for i, tx := range txs {
		sig := tx.Signature
		parts[i] = sig[:]
	}
	return crypto.DigestsOf(parts...)
}
