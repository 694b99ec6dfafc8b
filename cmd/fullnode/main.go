// Command fullnode starts a validator: it opens (or creates) a ledger,
// bootstraps genesis into an empty one or resumes from the stored tip of
// an existing one (no replay), and runs the PoH leader loop, gossip
// transport, and RPC front end until signaled to stop.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/tolelom/fullnode/bank"
	"github.com/tolelom/fullnode/config"
	"github.com/tolelom/fullnode/consensus"
	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
	"github.com/tolelom/fullnode/crypto/certgen"
	"github.com/tolelom/fullnode/events"
	"github.com/tolelom/fullnode/gossip"
	"github.com/tolelom/fullnode/indexer"
	"github.com/tolelom/fullnode/ledger"
	"github.com/tolelom/fullnode/poh"
	"github.com/tolelom/fullnode/rpc"
	"github.com/tolelom/fullnode/storage"
	"github.com/tolelom/fullnode/wallet"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to config file")
	keyPath := flag.String("key", "validator.key", "path to keystore file")
	genKey := flag.Bool("genkey", false, "generate a new validator key and exit")
	genCerts := flag.String("gencerts", "", "generate CA + node TLS certs into the given directory and exit (requires node ID from config)")
	initialSupply := flag.Uint64("initial-supply", 1_000_000_000, "mint supply to allocate on a fresh ledger")
	flag.Parse()

	password := os.Getenv("TOL_PASSWORD")
	if password == "" {
		log.Println("WARNING: TOL_PASSWORD not set — keystore will use an empty password")
	}

	if *genKey {
		w, err := wallet.Generate()
		if err != nil {
			log.Fatal(err)
		}
		if err := wallet.SaveKey(*keyPath, password, w.PrivKey()); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Generated key. Public key (validator address): %s\n", w.PubKey())
		fmt.Printf("Saved to: %s\n", *keyPath)
		return
	}

	if *genCerts != "" {
		cfgForCerts, err := loadConfig(*cfgPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if err := certgen.GenerateAll(*genCerts, cfgForCerts.NodeID, nil); err != nil {
			log.Fatalf("gencerts: %v", err)
		}
		fmt.Printf("Certificates generated in %s for node %q\n", *genCerts, cfgForCerts.NodeID)
		return
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	privKey, err := wallet.LoadKey(*keyPath, password)
	if err != nil {
		log.Fatalf("load key: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("mkdir data dir: %v", err)
	}

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chain"))
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	state := bank.NewStateDB(db)
	emitter := events.NewEmitter()
	idx := indexer.New(db, emitter)
	exec := bank.NewExecutor(state, emitter)
	mempool := core.NewMempool()

	ledgerDir := filepath.Join(cfg.DataDir, "ledger")
	store, err := ledger.Open(ledgerDir)
	if err != nil {
		log.Fatalf("ledger open: %v", err)
	}
	defer store.Close()

	var lastID crypto.Digest
	if config.IsFreshLedger(ledgerDir) {
		m, err := config.CreateGenesis(ledgerDir, store, exec, *initialSupply, cfg.NodeID, 0)
		if err != nil {
			log.Fatalf("genesis: %v", err)
		}
		lastID, err = m.LastID()
		if err != nil {
			log.Fatalf("genesis: derive last_id: %v", err)
		}
		log.Printf("Genesis committed. Mint pubkey: %s, supply: %d", m.Pubkey().Hex(), *initialSupply)
	} else {
		n := store.Len()
		if n == 0 {
			log.Fatalf("ledger: genesis.json present but ledger is empty")
		}
		last, err := store.Read(n - 1)
		if err != nil {
			log.Fatalf("ledger: read tip: %v", err)
		}
		lastID = last.ID
		log.Printf("Resuming existing ledger: %d entries, tip %s", n, lastID)
	}

	generator := poh.New(lastID)
	leader := consensus.NewLeader(cfg, generator, store, mempool, exec, emitter)

	tlsCfg, err := config.LoadTLSConfig(cfg.TLS)
	if err != nil {
		log.Fatalf("tls: %v", err)
	}
	if tlsCfg != nil {
		log.Println("mTLS enabled for P2P")
	}

	p2pAddr := fmt.Sprintf(":%d", cfg.P2PPort)
	rpcAddr := fmt.Sprintf(":%d", cfg.RPCPort)
	// TPU advertises the RPC endpoint: in this transport, RPC is where a
	// client (a wallet, the bench-tps driver) actually submits
	// transactions, not the gossip port.
	node := gossip.NewNode(cfg.NodeID, p2pAddr, rpcAddr, mempool, tlsCfg)
	syncer := gossip.NewSyncer(node, store, exec)
	if err := node.Start(); err != nil {
		log.Fatalf("p2p start: %v", err)
	}
	defer node.Stop()
	log.Printf("P2P listening on %s", p2pAddr)

	for _, sp := range cfg.SeedPeers {
		if err := node.AddPeer(sp.ID, sp.Addr); err != nil {
			log.Printf("seed peer %s (%s): %v", sp.ID, sp.Addr, err)
			continue
		}
		if peer := node.Peer(sp.ID); peer != nil {
			if err := syncer.RequestEntries(peer, store.Len()); err != nil {
				log.Printf("sync request to %s: %v", sp.ID, err)
			}
		}
		log.Printf("Connected to seed peer %s (%s)", sp.ID, sp.Addr)
	}

	rpcHandler := rpc.NewHandler(store, mempool, exec, idx)
	rpcServer := rpc.NewServer(rpcAddr, rpcHandler, cfg.RPCAuthToken)
	if err := rpcServer.Start(); err != nil {
		log.Fatalf("rpc start: %v", err)
	}
	defer rpcServer.Stop()
	log.Printf("RPC listening on %s", rpcAddr)
	if cfg.RPCAuthToken != "" {
		log.Println("RPC Bearer token authentication enabled")
	}

	tickInterval := cfg.TickInterval
	if tickInterval <= 0 {
		tickInterval = 10 * time.Millisecond
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runLeader(leader, node, tickInterval, done)
	}()
	log.Printf("Leader running (validator: %s)", privKey.Public().Hex())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	close(done)
	wg.Wait()

	log.Println("Shutdown complete.")
}

// runLeader drives the leader loop manually (rather than consensus.Leader.Run)
// so each produced entry can also be gossiped to connected peers.
func runLeader(leader *consensus.Leader, node *gossip.Node, tickInterval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			entry, err := leader.ProduceEntry()
			if err != nil {
				log.Printf("[fullnode] produce entry error: %v", err)
				continue
			}
			node.BroadcastEntry(entry)
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config file not found at %s, using defaults.", path)
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
