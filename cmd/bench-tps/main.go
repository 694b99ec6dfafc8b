// Command bench-tps converges on a running network and sustains
// transaction throughput against its leader, reporting sampled TPS per
// node. Grounded on original_source/buffett/src/bin/bench-tps.rs.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tolelom/fullnode/benchtps"
	"github.com/tolelom/fullnode/wallet"
)

func main() {
	var (
		network          string
		identityPath     string
		password         string
		numNodes         int
		rejectExtraNodes bool
		threads          int
		duration         time.Duration
		txCount          int
		sustained        bool
		convergeOnly     bool
		authToken        string
		metricsAddr      string
	)

	cmd := &cobra.Command{
		Use:   "bench-tps",
		Short: "Drive transaction load against a converged network and report throughput.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			defer logger.Sync()
			benchtps.SetLogger(logger.Sugar())

			reg := prometheus.NewRegistry()
			metrics := benchtps.NewMetrics(reg)
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				go func() {
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						logger.Sugar().Warnw("metrics server stopped", "error", err)
					}
				}()
			}

			var identity *wallet.Wallet
			if !convergeOnly {
				priv, err := wallet.LoadKey(identityPath, password)
				if err != nil {
					return fmt.Errorf("load identity: %w", err)
				}
				identity = wallet.New(priv)
			}

			leaderID, leaderAddr, err := splitNetwork(network)
			if err != nil {
				return err
			}

			cfg := benchtps.DefaultConfig()
			cfg.NumNodes = numNodes
			cfg.RejectExtraNodes = rejectExtraNodes
			cfg.Threads = threads
			cfg.Duration = duration
			cfg.TxCount = txCount
			cfg.Sustained = sustained
			cfg.ConvergeOnly = convergeOnly
			cfg.AuthToken = authToken

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			driver := benchtps.NewDriver(cfg, metrics)
			result, err := driver.Run(ctx, ":0", leaderID, leaderAddr, nil, identity)
			if err != nil {
				return err
			}

			if cfg.ConvergeOnly {
				fmt.Printf("converged on %d node(s), leader %s (%s)\n", len(result.Nodes), result.Leader.NodeID, result.Leader.TPU)
				return nil
			}

			fmt.Printf("sent %d transactions in %s\n", result.TxSent, result.Elapsed)
			fmt.Print(benchtps.Report(result.SampledStats, result.Elapsed))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&network, "network", "", "leader contact as node_id@host:port")
	flags.StringVar(&identityPath, "identity", "", "path to the keystore file funding this run")
	flags.StringVar(&password, "password", os.Getenv("TOL_PASSWORD"), "keystore password (defaults to $TOL_PASSWORD)")
	flags.IntVar(&numNodes, "num-nodes", 1, "number of nodes to converge on before starting")
	flags.BoolVar(&rejectExtraNodes, "reject-extra-nodes", false, "fail convergence if more than num-nodes are discovered")
	flags.IntVar(&threads, "threads", 4, "number of concurrent transaction-sending workers")
	flags.DurationVar(&duration, "duration", 24*365*time.Hour, "how long to sustain load")
	flags.IntVar(&txCount, "tx_count", 500_000, "number of transactions to generate per wave")
	flags.BoolVar(&sustained, "sustained", false, "overlap wave generation with in-flight sends instead of draining between waves")
	flags.BoolVar(&convergeOnly, "converge-only", false, "converge on the network and report discovered nodes, then exit")
	flags.StringVar(&authToken, "auth-token", "", "bearer token for the leader's RPC endpoint")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "address to serve /metrics on (disabled if empty)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// splitNetwork parses "node_id@host:port" into its parts.
func splitNetwork(network string) (nodeID, addr string, err error) {
	for i := 0; i < len(network); i++ {
		if network[i] == '@' {
			return network[:i], network[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("bench-tps: --network must be node_id@host:port, got %q", network)
}
