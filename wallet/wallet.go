package wallet

import (
	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
)

// Wallet holds a key pair and provides transaction-building helpers.
type Wallet struct {
	priv crypto.PrivateKey
	pub  crypto.PublicKey
}

// New creates a Wallet from an existing private key.
func New(priv crypto.PrivateKey) *Wallet {
	return &Wallet{priv: priv, pub: priv.Public()}
}

// Generate creates a Wallet with a freshly generated key pair.
func Generate() (*Wallet, error) {
	priv, _, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return New(priv), nil
}

// PrivKey returns the raw private key (handle with care).
func (w *Wallet) PrivKey() crypto.PrivateKey {
	return w.priv
}

// PubKey returns the hex-encoded ed25519 public key (used as "from" address).
func (w *Wallet) PubKey() string {
	return w.pub.Hex()
}

// Address returns the short human-readable address (first 20 bytes of SHA-256(pubkey)).
func (w *Wallet) Address() string {
	return w.pub.Address()
}

// Transfer creates a signed transfer transaction paying amount to to,
// valid against lastID (the ledger id this wallet last observed).
func (w *Wallet) Transfer(to crypto.PublicKey, amount, fee uint64, lastID crypto.Digest) *core.Transaction {
	tx := core.NewTransaction(w.pub, to, lastID, amount, fee)
	tx.Sign(w.priv)
	return tx
}
