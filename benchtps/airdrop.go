package benchtps

import (
	"context"
	"fmt"
	"time"

	"github.com/tolelom/fullnode/client"
	"github.com/tolelom/fullnode/crypto"
)

// AirdropIfNeeded tops pub up to at least required tokens: it requests
// exactly the deficit (required - current balance) rather than a fixed
// amount, and treats a post-airdrop balance that doesn't match the
// requested deficit as fatal — both carried from the original's
// airdrop_tokens, which distinguishes "already funded from a prior run"
// from "drone request silently short-changed us".
func AirdropIfNeeded(ctx context.Context, c *client.Client, pub crypto.PublicKey, required uint64) error {
	current, err := c.GetBalance(ctx, pub)
	if err != nil {
		return fmt.Errorf("benchtps: airdrop: check balance: %w", err)
	}
	if current >= required {
		return nil
	}
	deficit := required - current
	log.Infow("airdropping tokens", "pubkey", pub.Hex(), "amount", deficit)

	if err := c.RequestAirdrop(ctx, pub, deficit); err != nil {
		return fmt.Errorf("benchtps: airdrop: request %d to %s: %w", deficit, pub.Hex(), err)
	}

	var final uint64
	for i := 0; i < 20; i++ {
		time.Sleep(500 * time.Millisecond)
		final, err = c.GetBalance(ctx, pub)
		if err != nil {
			log.Warnw("airdrop: balance poll failed", "error", err)
			continue
		}
		if final != current {
			break
		}
	}
	if final-current != deficit {
		return fmt.Errorf("benchtps: airdrop failed: balance moved from %d to %d, wanted +%d", current, final, deficit)
	}
	return nil
}
