package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
)

// encode serializes an entry as:
//
//	num_hashes   uint64 BE
//	id           32 bytes
//	has_mixin    1 byte
//	mixin        32 bytes (zero if !has_mixin)
//	num_tx       uint32 BE
//	tx[i]        core.EncodedSize bytes, repeated num_tx times
func encode(e Entry) []byte {
	buf := make([]byte, 8+32+1+32+4+len(e.Transactions)*core.EncodedSize)
	off := 0
	binary.BigEndian.PutUint64(buf[off:], e.NumHashes)
	off += 8
	copy(buf[off:], e.ID[:])
	off += 32
	if e.HasMixin {
		buf[off] = 1
	}
	off++
	copy(buf[off:], e.Mixin[:])
	off += 32
	binary.BigEndian.PutUint32(buf[off:], uint32(len(e.Transactions)))
	off += 4
	for _, tx := range e.Transactions {
		copy(buf[off:], tx.Encode())
		off += core.EncodedSize
	}
	return buf
}

// decode is encode's inverse. It returns an error (rather than panicking)
// on any truncated or malformed record so the caller can treat it as a
// recovery boundary.
func decode(b []byte) (Entry, error) {
	const fixedHeader = 8 + 32 + 1 + 32 + 4
	if len(b) < fixedHeader {
		return Entry{}, fmt.Errorf("ledger: short entry record: %d bytes", len(b))
	}
	var e Entry
	off := 0
	e.NumHashes = binary.BigEndian.Uint64(b[off:])
	off += 8
	copy(e.ID[:], b[off:off+32])
	off += 32
	e.HasMixin = b[off] == 1
	off++
	var mixin crypto.Digest
	copy(mixin[:], b[off:off+32])
	off += 32
	if e.HasMixin {
		e.Mixin = mixin
	}
	numTx := binary.BigEndian.Uint32(b[off:])
	off += 4
	want := off + int(numTx)*core.EncodedSize
	if len(b) != want {
		return Entry{}, fmt.Errorf("ledger: entry record length mismatch: have %d want %d", len(b), want)
	}
	e.Transactions = make([]*core.Transaction, numTx)
	for i := 0; i < int(numTx); i++ {
		tx, err := core.Decode(b[off : off+core.EncodedSize])
		if err != nil {
			return Entry{}, err
		}
		e.Transactions[i] = tx
		off += core.EncodedSize
	}
	return e, nil
}
