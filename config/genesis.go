package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tolelom/fullnode/bank"
	"github.com/tolelom/fullnode/ledger"
	"github.com/tolelom/fullnode/mint"
)

// genesisFileName is the on-disk file living alongside the ledger's
// data/index pair (spec.md §6).
const genesisFileName = "genesis.json"

// GenesisConfig describes the chain's initial state: mint pubkey
// (recoverable from MintPKCS8), initial supply, bootstrap leader id and
// stake, ticks-per-slot, slots-per-epoch, and the bootstrapped
// instruction processors list — spec.md §6's on-disk genesis.json.
type GenesisConfig struct {
	MintPKCS8              []byte   `json:"mint_pkcs8"`
	InitialSupply          uint64   `json:"initial_supply"`
	BootstrapLeaderID      string   `json:"bootstrap_leader_id"`
	BootstrapLeaderStake   uint64   `json:"bootstrap_leader_stake"`
	TicksPerSlot           uint64   `json:"ticks_per_slot"`
	SlotsPerEpoch          uint64   `json:"slots_per_epoch"`
	BootstrappedProcessors []string `json:"bootstrapped_processors,omitempty"`
}

// LoadGenesisFile reads genesis.json from dir.
func LoadGenesisFile(dir string) (*GenesisConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, genesisFileName))
	if err != nil {
		return nil, err
	}
	var g GenesisConfig
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("config: decode genesis.json: %w", err)
	}
	return &g, nil
}

// SaveGenesisFile writes g to dir/genesis.json.
func SaveGenesisFile(dir string, g *GenesisConfig) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, genesisFileName), data, 0o644)
}

// CreateGenesis builds a fresh mint for initialSupply tokens, derives its
// two-entry bootstrap prefix, appends both entries to store, credits the
// mint's initial supply into state directly (genesis allocation is a
// trusted operation — see bank.Executor.Credit — not a replay of the
// mint transaction through the normal signature/balance-checked transfer
// path, since the mint account starts at a zero balance and could not
// otherwise afford to pay itself), and persists genesis.json in store's
// directory. It is the Go-native counterpart of
// original_source/soros/genesis/src/main.rs.
func CreateGenesis(dir string, store *ledger.Store, exec *bank.Executor, initialSupply uint64, bootstrapLeaderID string, bootstrapLeaderStake uint64) (*mint.Mint, error) {
	m, err := mint.New(initialSupply)
	if err != nil {
		return nil, fmt.Errorf("config: create mint: %w", err)
	}

	entries, err := m.CreateEntries()
	if err != nil {
		return nil, fmt.Errorf("config: create bootstrap entries: %w", err)
	}
	for i, e := range entries {
		if err := store.Append(e); err != nil {
			return nil, fmt.Errorf("config: append bootstrap entry %d: %w", i, err)
		}
	}

	if err := exec.Credit(m.Pubkey(), initialSupply); err != nil {
		return nil, fmt.Errorf("config: credit mint initial supply: %w", err)
	}
	if err := exec.Commit(); err != nil {
		return nil, fmt.Errorf("config: commit genesis state: %w", err)
	}

	g := &GenesisConfig{
		MintPKCS8:            m.PKCS8,
		InitialSupply:        initialSupply,
		BootstrapLeaderID:    bootstrapLeaderID,
		BootstrapLeaderStake: bootstrapLeaderStake,
		TicksPerSlot:         8,
		SlotsPerEpoch:        8192,
	}
	if err := SaveGenesisFile(dir, g); err != nil {
		return nil, fmt.Errorf("config: save genesis.json: %w", err)
	}
	return m, nil
}

// IsFreshLedger reports whether dir has no genesis.json yet, meaning
// CreateGenesis must run before any leader loop starts.
func IsFreshLedger(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, genesisFileName))
	return os.IsNotExist(err)
}
