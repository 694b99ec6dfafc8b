package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Hash returns the SHA-256 hash of data as a lowercase hex string.
func Hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashBytes returns the raw SHA-256 bytes of data.
func HashBytes(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// Digest is a fixed-width 32-byte cryptographic digest. It is the value
// type the PoH chain, the ledger, and the wire formats use in place of
// the hex-string Hash above, which exists for JSON/log-friendly display.
type Digest [32]byte

// DigestOf hashes data and returns it as a Digest.
func DigestOf(data []byte) Digest {
	return sha256.Sum256(data)
}

// DigestsOf hashes the concatenation of every part, in order.
func DigestsOf(parts ...[]byte) Digest {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// IsZero reports whether d is the all-zero digest (the genesis seed's
// predecessor has no prior entry to point at).
func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Bytes returns a copy of the digest's bytes.
func (d Digest) Bytes() []byte {
	b := make([]byte, len(d))
	copy(b, d[:])
	return b
}

// DigestFromHex parses a hex-encoded 32-byte digest.
func DigestFromHex(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, err
	}
	if len(b) != len(d) {
		return d, errBadDigestLen
	}
	copy(d[:], b)
	return d, nil
}

var errBadDigestLen = errors.New("crypto: digest must be 32 bytes")
