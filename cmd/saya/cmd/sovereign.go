package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sayaproofs/saya/internal/config"
	"github.com/sayaproofs/saya/internal/da/celestia"
	"github.com/sayaproofs/saya/internal/ingestor"
	"github.com/sayaproofs/saya/internal/orchestrator"
	"github.com/sayaproofs/saya/internal/pie"
	"github.com/sayaproofs/saya/internal/prover/atlantic"
	"github.com/sayaproofs/saya/internal/storage"
	"github.com/sayaproofs/saya/internal/storage/memstore"
	"github.com/sayaproofs/saya/internal/storage/sqlstore"
)

var sovereignCmd = &cobra.Command{
	Use:   "sovereign",
	Short: "Run in sovereign mode: prove and publish to a DA layer",
}

var sovereignStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sovereign pipeline",
	Long: `Ingests rollup blocks, proves each with SNOS, and publishes the
proof to a Celestia namespace. There is no settlement step: sovereign
mode never writes back to any L1 or L2 contract.

Examples:
  saya sovereign start \
    --rollup-rpc http://localhost:5050 \
    --snos-program ./build/os_latest.json \
    --atlantic-key $ATLANTIC_API_KEY \
    --celestia-rpc http://localhost:26658 \
    --celestia-token $CELESTIA_NODE_TOKEN \
    --db-dir ./saya-data

  # Wiring smoke test, no real provers or DA node required
  saya sovereign start \
    --rollup-rpc http://localhost:5050 \
    --mock-snos-from-pie \
    --db-dir :memory:`,
	RunE: runSovereignStart,
}

func init() {
	cmd := sovereignStartCmd
	cmd.Flags().String("rollup-rpc", "", "rollup Starknet JSON-RPC URL")
	cmd.Flags().String("snos-program", "", "path to the compiled Starknet OS program")
	cmd.Flags().String("snos-runner", "snos-runner", "path to the external PIE-generation binary")
	cmd.Flags().String("atlantic-key", "", "Atlantic remote prover API key")
	cmd.Flags().String("atlantic-url", config.DefaultAtlanticBaseURL, "Atlantic remote prover base URL")
	cmd.Flags().Bool("mock-snos-from-pie", false, "synthesize SNOS proofs from PIE public output instead of calling Atlantic")
	cmd.Flags().String("celestia-rpc", "", "Celestia node JSON-RPC URL (omit to run without DA publication)")
	cmd.Flags().String("celestia-token", "", "Celestia node auth token")
	cmd.Flags().String("celestia-namespace", config.DefaultCelestiaNamespace, "Celestia namespace string")
	cmd.Flags().String("celestia-key-name", "", "Celestia node key name used to sign blob submissions")
	cmd.Flags().Int("blocks-processed-in-parallel", 10, "number of blocks the pipeline keeps in flight at once")
	cmd.Flags().String("db-dir", "./saya-data", "embedded SQL store directory, or :memory: for an ephemeral in-memory store")
	cmd.Flags().Uint64("genesis.first-block-number", 0, "first block to ingest when no chain head has been persisted yet")
	cmd.Flags().String("metrics-addr", "", "address to serve /metrics on, e.g. :9090 (disabled if empty)")
	cmd.Flags().Bool("debug", false, "enable debug logging")

	sovereignCmd.AddCommand(sovereignStartCmd)
	rootCmd.AddCommand(sovereignCmd)
}

func runSovereignStart(cmd *cobra.Command, _ []string) error {
	v, err := config.Bind(cmd)
	if err != nil {
		return fail(err)
	}
	cfg := config.Load(v)

	logger := newLogger(v.GetBool("debug"))
	ctx, cancel := runContext()
	defer cancel()
	startMetricsServer(ctx, v.GetString("metrics-addr"), logger)

	store, err := openStore(cfg.Storage)
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	var atlanticClient *atlantic.Client
	if !cfg.Atlantic.Mock {
		atlanticClient = atlantic.New(cfg.Atlantic.BaseURL, cfg.Atlantic.APIKey)
	}

	workers := ingestor.CalculateWorkersPerStage(cfg.Concurrency.BlocksProcessedInParallel)

	var celestiaCfg *celestia.Config
	if cfg.Celestia.RPC != "" {
		celestiaCfg = &celestia.Config{
			RPC:       cfg.Celestia.RPC,
			Token:     cfg.Celestia.Token,
			Namespace: cfg.Celestia.Namespace,
			KeyName:   cfg.Celestia.KeyName,
			Timeout:   15 * time.Second,
		}
	}

	o, err := orchestrator.NewSovereign(ctx, orchestrator.SovereignConfig{
		RollupRPC:       cfg.Rollup.RPC,
		Atlantic:        atlanticClient,
		MockSnosFromPie: cfg.Atlantic.Mock,
		Celestia:        celestiaCfg,
		WorkerCount:     workers[0],
		Generator: &pie.LocalGenerator{
			RunnerPath:  v.GetString("snos-runner"),
			ProgramPath: v.GetString("snos-program"),
			RPCURL:      cfg.Rollup.RPC,
		},
		Store:   store,
		Genesis: cfg.Genesis.FirstBlockNumber,
		Logger:  logger,
	})
	if err != nil {
		return fail(err)
	}

	logger.Info("starting sovereign pipeline", "workers", workers)
	if err := o.Start(ctx); err != nil {
		return fail(err)
	}
	fmt.Println(colorGreen("✓"), "sovereign pipeline shut down cleanly")
	return nil
}

func openStore(cfg config.Storage) (storage.BlockLifecycleStore, error) {
	if cfg.InMemory {
		return memstore.New(), nil
	}
	return sqlstore.Open(cfg.DBDir)
}
