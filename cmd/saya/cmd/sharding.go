package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sayaproofs/saya/internal/aggregator"
	"github.com/sayaproofs/saya/internal/config"
	"github.com/sayaproofs/saya/internal/ingestor"
	"github.com/sayaproofs/saya/internal/orchestrator"
	"github.com/sayaproofs/saya/internal/pie"
	"github.com/sayaproofs/saya/internal/prover/atlantic"
	"github.com/sayaproofs/saya/internal/storage/sqlstore"
)

var shardingCmd = &cobra.Command{
	Use:   "sharding",
	Short: "Run in sharding mode: prove and fold state diffs locally",
	Long: `Ingests rollup blocks starting at block 0, proves each with SNOS,
and folds each block's state-diff output into one squashed diff written
to <db-dir>/state_diff.json. There is no DA publication or settlement
step: sharding mode never reads or writes a chain head.

Examples:
  saya sharding \
    --rollup-rpc http://localhost:5050 \
    --snos-program ./build/os_latest.json \
    --atlantic-key $ATLANTIC_API_KEY \
    --db-dir ./saya-shard-0`,
	RunE: runSharding,
}

func init() {
	cmd := shardingCmd
	cmd.Flags().String("rollup-rpc", "", "rollup Starknet JSON-RPC URL")
	cmd.Flags().String("snos-program", "", "path to the compiled Starknet OS program")
	cmd.Flags().String("snos-runner", "snos-runner", "path to the external PIE-generation binary")
	cmd.Flags().String("atlantic-key", "", "Atlantic remote prover API key")
	cmd.Flags().String("atlantic-url", config.DefaultAtlanticBaseURL, "Atlantic remote prover base URL")
	cmd.Flags().Bool("mock-snos-from-pie", false, "synthesize SNOS proofs from PIE public output instead of calling Atlantic")
	cmd.Flags().Int("blocks-processed-in-parallel", 10, "number of blocks the pipeline keeps in flight at once")
	cmd.Flags().String("db-dir", "./saya-data", "directory holding the embedded SQL store and state_diff.json")
	cmd.Flags().String("metrics-addr", "", "address to serve /metrics on, e.g. :9090 (disabled if empty)")
	cmd.Flags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(shardingCmd)
}

func runSharding(cmd *cobra.Command, _ []string) error {
	v, err := config.Bind(cmd)
	if err != nil {
		return fail(err)
	}

	cfg := config.Load(v)

	logger := newLogger(v.GetBool("debug"))
	ctx, cancel := runContext()
	defer cancel()
	startMetricsServer(ctx, v.GetString("metrics-addr"), logger)

	dbDir := cfg.Storage.DBDir
	store, err := sqlstore.Open(dbDir)
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	var atlanticClient *atlantic.Client
	if !cfg.Atlantic.Mock {
		atlanticClient = atlantic.New(cfg.Atlantic.BaseURL, cfg.Atlantic.APIKey)
	}

	workers := ingestor.CalculateWorkersPerStage(cfg.Concurrency.BlocksProcessedInParallel)

	o, err := orchestrator.NewSharding(ctx, orchestrator.ShardingConfig{
		RollupRPC:       cfg.Rollup.RPC,
		Atlantic:        atlanticClient,
		MockSnosFromPie: cfg.Atlantic.Mock,
		Persister:       aggregator.NewFilePersister(dbDir),
		WorkerCount:     workers[0],
		Generator: &pie.LocalGenerator{
			RunnerPath:  v.GetString("snos-runner"),
			ProgramPath: v.GetString("snos-program"),
			RPCURL:      cfg.Rollup.RPC,
		},
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return fail(err)
	}

	logger.Info("starting sharding pipeline", "workers", workers)
	if err := o.Start(ctx); err != nil {
		return fail(err)
	}
	fmt.Println(colorGreen("✓"), "sharding pipeline shut down cleanly")
	return nil
}
