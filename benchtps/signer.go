package benchtps

import (
	"fmt"

	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/wallet"
	"golang.org/x/sync/errgroup"
)

// GenerateKeypairs creates n wallets in parallel, mirroring the original's
// rnd.gen_n_keypairs fan-out (there, a seeded deterministic generator;
// here, independently generated keys, since this module has no
// wallet-hierarchy Non-goal to honor a seed for).
func GenerateKeypairs(n int) ([]*wallet.Wallet, error) {
	out := make([]*wallet.Wallet, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			w, err := wallet.Generate()
			if err != nil {
				return fmt.Errorf("benchtps: generate keypair %d: %w", i, err)
			}
			out[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateTransfers signs a wave of 1-token transfers between source and
// every wallet in keypairs, in parallel. When reclaim is false, tokens
// flow source -> keypairs; when true, they flow back keypairs -> source.
// Mirrors generate_txs's reclaim toggle, which drives the ping-pong
// funding pattern ShouldSwitchDirections decides when to reverse.
func GenerateTransfers(source *wallet.Wallet, keypairs []*wallet.Wallet, lastID crypto.Digest, reclaim bool) ([]*core.Transaction, error) {
	txs := make([]*core.Transaction, len(keypairs))
	var g errgroup.Group
	for i, kp := range keypairs {
		i, kp := i, kp
		g.Go(func() error {
			if !reclaim {
				txs[i] = source.Transfer(kp.PrivKey().Public(), 1, 0, lastID)
			} else {
				txs[i] = kp.Transfer(source.PrivKey().Public(), 1, 0, lastID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return txs, nil
}
