package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sayaproofs/saya/internal/config"
	"github.com/sayaproofs/saya/internal/felt"
	"github.com/sayaproofs/saya/internal/ingestor"
	"github.com/sayaproofs/saya/internal/orchestrator"
	"github.com/sayaproofs/saya/internal/pie"
	"github.com/sayaproofs/saya/internal/prover/atlantic"
	"github.com/sayaproofs/saya/internal/settlement/piltover"
)

var persistentCmd = &cobra.Command{
	Use:   "persistent",
	Short: "Run in persistent mode: prove, bridge, and settle on-chain",
}

var persistentStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the persistent pipeline",
	Long: `Ingests rollup blocks, proves each with SNOS, recursively bridges
the proof with the layout-bridge program, and submits an update_state
call to the piltover contract on the settlement network.

Examples:
  saya persistent start \
    --rollup-rpc http://localhost:5050 \
    --settlement-rpc https://settlement.example/rpc \
    --snos-program ./build/os_latest.json \
    --atlantic-key $ATLANTIC_API_KEY \
    --settlement-piltover-address 0x1234... \
    --settlement-integrity-address 0x5678... \
    --settlement-account-address 0xabcd... \
    --settlement-account-private-key $SETTLEMENT_PRIVATE_KEY \
    --db-dir ./saya-data

  # Wiring smoke test: mocked layout bridge, no Integrity registration
  saya persistent start \
    --rollup-rpc http://localhost:5050 \
    --settlement-rpc http://localhost:5051 \
    --atlantic-key $ATLANTIC_API_KEY \
    --mock-snos-from-pie \
    --mock-layout-bridge \
    --settlement-piltover-address 0x1234... \
    --settlement-account-address 0xabcd... \
    --settlement-account-private-key $SETTLEMENT_PRIVATE_KEY \
    --db-dir :memory:`,
	RunE: runPersistentStart,
}

func init() {
	cmd := persistentStartCmd
	cmd.Flags().String("rollup-rpc", "", "rollup Starknet JSON-RPC URL")
	cmd.Flags().String("settlement-rpc", "", "settlement network Starknet JSON-RPC URL")
	cmd.Flags().String("snos-program", "", "path to the compiled Starknet OS program")
	cmd.Flags().String("snos-runner", "snos-runner", "path to the external PIE-generation binary")
	cmd.Flags().String("layout-bridge-program", "", "path to the compiled layout-bridge verifier program")
	cmd.Flags().String("atlantic-key", "", "Atlantic remote prover API key")
	cmd.Flags().String("atlantic-url", config.DefaultAtlanticBaseURL, "Atlantic remote prover base URL")
	cmd.Flags().Bool("mock-snos-from-pie", false, "synthesize SNOS proofs from PIE public output instead of calling Atlantic")
	cmd.Flags().Bool("mock-layout-bridge", false, "synthesize the recursive proof instead of calling Atlantic, and skip facts-registry registration")
	cmd.Flags().String("mock-layout-bridge-program-hash", "0x0", "program hash stamped on mock recursive proofs")
	cmd.Flags().String("settlement-piltover-address", "", "piltover settlement contract address")
	cmd.Flags().String("settlement-integrity-address", "", "Integrity facts-registry contract address")
	cmd.Flags().String("settlement-account-address", "", "settlement account contract address")
	cmd.Flags().String("settlement-account-private-key", "", "settlement account signing key (hex)")
	cmd.Flags().Int("blocks-processed-in-parallel", 10, "number of blocks the pipeline keeps in flight at once")
	cmd.Flags().String("db-dir", "./saya-data", "embedded SQL store directory, or :memory: for an ephemeral in-memory store")
	cmd.Flags().String("metrics-addr", "", "address to serve /metrics on, e.g. :9090 (disabled if empty)")
	cmd.Flags().Bool("debug", false, "enable debug logging")

	persistentCmd.AddCommand(persistentStartCmd)
	rootCmd.AddCommand(persistentCmd)
}

func runPersistentStart(cmd *cobra.Command, _ []string) error {
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

	mockBridge := cfg.Settlement.MockLayoutBridge
	var atlanticClient *atlantic.Client
	if !cfg.Atlantic.Mock || !mockBridge {
		atlanticClient = atlantic.New(cfg.Atlantic.BaseURL, cfg.Atlantic.APIKey)
	}

	accountAddress, err := felt.FromHex(cfg.Settlement.AccountAddress)
	if err != nil {
		return fail(fmt.Errorf("parse settlement-account-address: %w", err))
	}
	signer, err := piltover.NewLocalSigner(cfg.Settlement.AccountPrivateKey, accountAddress)
	if err != nil {
		return fail(fmt.Errorf("construct settlement signer: %w", err))
	}

	piltoverAddress, err := felt.FromHex(cfg.Settlement.PiltoverAddress)
	if err != nil {
		return fail(fmt.Errorf("parse settlement-piltover-address: %w", err))
	}
	var integrityAddress felt.Felt
	if !mockBridge {
		integrityAddress, err = felt.FromHex(cfg.Settlement.IntegrityAddress)
		if err != nil {
			return fail(fmt.Errorf("parse settlement-integrity-address: %w", err))
		}
	}

	workers := ingestor.CalculateWorkersPerStage(cfg.Concurrency.BlocksProcessedInParallel)

	var bridgeProgramFile []byte
	if !mockBridge {
		path := v.GetString("layout-bridge-program")
		bridgeProgramFile, err = os.ReadFile(path)
		if err != nil {
			return fail(fmt.Errorf("read layout-bridge-program: %w", err))
		}
	}

	o, err := orchestrator.NewPersistent(ctx, orchestrator.PersistentConfig{
		RollupRPC:               cfg.Rollup.RPC,
		SettlementRPC:           cfg.Settlement.RPC,
		Atlantic:                atlanticClient,
		MockLayoutBridge:        mockBridge,
		MockProgramHash:         cfg.Settlement.MockProgramHash,
		LayoutBridgeProgramFile: bridgeProgramFile,
		Settlement: piltover.Config{
			PiltoverAddress:      piltoverAddress,
			IntegrityAddress:     integrityAddress,
			SkipFactRegistration: mockBridge,
		},
		Signer:      signer,
		WorkerCount: workers[0],
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

	logger.Info("starting persistent pipeline", "workers", workers)
	if err := o.Start(ctx); err != nil {
		return fail(err)
	}
	fmt.Println(colorGreen("✓"), "persistent pipeline shut down cleanly")
	return nil
}
