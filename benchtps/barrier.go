package benchtps

import (
	"context"
	"fmt"
	"time"

	"github.com/tolelom/fullnode/client"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/wallet"
)

// barrierTimeout bounds how long SendBarrierTransaction waits for
// confirmation before giving up; the original treats this as fatal after
// 3 minutes ("some batches of transactions can take upwards of 1 minute").
const barrierTimeout = 3 * time.Minute

// barrierPollInterval is how often SendBarrierTransaction polls
// confirmation status between resends.
const barrierPollInterval = 250 * time.Millisecond

// SendBarrierTransaction sends a loopback zero-token transfer and blocks
// until it confirms, to validate the network is still live without
// having to confirm every transaction in a wave. lastID is refreshed
// from the client whenever confirmation stalls, rather than resending
// against a stale id (a supplemented behavior carried from the original's
// send_barrier_transaction).
func SendBarrierTransaction(ctx context.Context, c *client.Client, barrier *wallet.Wallet, lastID *crypto.Digest) error {
	start := time.Now()
	self := barrier.PrivKey().Public()

	for {
		fresh, err := c.GetLastID(ctx)
		if err == nil {
			*lastID = fresh
		}

		tx := barrier.Transfer(self, 0, 0, *lastID)
		sig, err := c.SendTransaction(ctx, tx)
		if err != nil {
			return fmt.Errorf("benchtps: barrier transaction: %w", err)
		}

		confirmed, err := pollUntilConfirmed(ctx, c, sig, barrierPollInterval)
		if err == nil && confirmed {
			balance, err := c.GetBalance(ctx, self)
			if err != nil {
				return fmt.Errorf("benchtps: barrier transaction: check balance: %w", err)
			}
			if balance != 1 {
				return fmt.Errorf("benchtps: barrier transaction: Expected an account balance of 1 (balance: %d)", balance)
			}
			return nil
		}

		if time.Since(start) > barrierTimeout {
			return fmt.Errorf("benchtps: barrier transaction not confirmed after %s", barrierTimeout)
		}
		time.Sleep(barrierPollInterval)
	}
}

func pollUntilConfirmed(ctx context.Context, c *client.Client, sig crypto.Digest, interval time.Duration) (bool, error) {
	deadline := time.Now().Add(8 * interval)
	for time.Now().Before(deadline) {
		status, err := c.SignatureStatus(ctx, sig)
		if err != nil {
			return false, err
		}
		if status == "confirmed" {
			return true, nil
		}
		time.Sleep(interval)
	}
	return false, nil
}
