package ledger

import (
	"fmt"

	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/poh"
)

// VerifyChain holds (spec.md §4.2's "Block property") iff every entry's
// id matches the PoH rule applied to the previous entry's id, its
// num_hashes, and its transactions' signature digest. It also checks
// that each entry's stored mixin (if any) actually matches the digest of
// its own Transactions, since the two are independently presentable in
// memory and must agree on the wire.
func VerifyChain(initial crypto.Digest, entries []Entry) error {
	prev := initial
	for i, e := range entries {
		wantMixin, hasMixin := mixinOf(e)
		if hasMixin != e.HasMixin || (hasMixin && wantMixin != e.Mixin) {
			return fmt.Errorf("ledger: entry %d mixin does not match its transactions", i)
		}
		id, err := poh.NextID(prev, e.Entry)
		if err != nil {
			return fmt.Errorf("ledger: entry %d: %w", i, err)
		}
		if id != e.ID {
			return &poh.ErrBadEntry{Index: i, Want: id, Got: e.ID}
		}
		prev = e.ID
	}
	return nil
}

func mixinOf(e Entry) (crypto.Digest, bool) {
	if len(e.Transactions) == 0 {
		return crypto.Digest{}, false
	}
	return core.SignaturesDigest(e.Transactions), true
}
