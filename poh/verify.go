package poh

import (
	"errors"
	"fmt"

	"github.com/tolelom/fullnode/crypto"
)

// ErrZeroNumHashes is returned when an entry claims zero num_hashes and
// carries no mixin. A tick with no hashing and no payload carries no
// information and is never valid. An entry with zero num_hashes AND a
// mixin is legal: it denotes a mix-in performed with no prior hash work,
// the shape the mint's bootstrap entry uses (see the mint package).
var ErrZeroNumHashes = errors.New("poh: entry has zero num_hashes and no mixin")

// ErrBadEntry is returned by Verify when an entry's id does not match
// the reconstructed chain.
type ErrBadEntry struct {
	Index int
	Want  crypto.Digest
	Got   crypto.Digest
}

func (e *ErrBadEntry) Error() string {
	return fmt.Sprintf("poh: entry %d id mismatch: want %s got %s", e.Index, e.Want, e.Got)
}

// NextID reconstructs the id a single entry must have, given the
// previous id in the chain. It performs num_hashes-1 additional Hash
// steps beyond the implicit one already accounted for by Record/Tick,
// then mixes in the payload digest if present.
//
// num_hashes == 0 is rejected unless the entry carries a mixin, in which
// case zero additional steps are applied before the one mixing hash —
// the shape of the mint's second bootstrap entry, which mixes in its
// transaction digest without having done any prior PoH work.
func NextID(prev crypto.Digest, e Entry) (crypto.Digest, error) {
	if e.NumHashes == 0 && !e.HasMixin {
		return crypto.Digest{}, ErrZeroNumHashes
	}
	running := prev
	for i := uint64(1); i < e.NumHashes; i++ {
		running = crypto.DigestsOf(running[:])
	}
	if e.HasMixin {
		return crypto.DigestsOf(running[:], e.Mixin[:]), nil
	}
	return crypto.DigestsOf(running[:]), nil
}

// Verify checks that every entry in the sequence chains correctly from
// initial. It returns the first mismatch it encounters, wrapped as
// *ErrBadEntry, or nil if the whole sequence verifies.
func Verify(initial crypto.Digest, entries []Entry) error {
	prev := initial
	for i, e := range entries {
		want, err := NextID(prev, e)
		if err != nil {
			return fmt.Errorf("poh: entry %d: %w", i, err)
		}
		if want != e.ID {
			return &ErrBadEntry{Index: i, Want: want, Got: e.ID}
		}
		prev = e.ID
	}
	return nil
}
