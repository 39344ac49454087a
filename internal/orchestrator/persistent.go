package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sayaproofs/saya/internal/da"
	"github.com/sayaproofs/saya/internal/ingestor"
	"github.com/sayaproofs/saya/internal/pipeline"
	"github.com/sayaproofs/saya/internal/prover/atlantic"
	"github.com/sayaproofs/saya/internal/prover/layoutbridge"
	"github.com/sayaproofs/saya/internal/prover/mock"
	"github.com/sayaproofs/saya/internal/prover/snos"
	"github.com/sayaproofs/saya/internal/settlement/piltover"
	"github.com/sayaproofs/saya/internal/starknetrpc"
	"github.com/sayaproofs/saya/internal/storage"
	"github.com/sayaproofs/saya/internal/types"
)

// PersistentConfig configures a persistent-mode run: prove, recursively
// bridge, publish, and settle each block on the piltover contract.
type PersistentConfig struct {
	RollupRPC     string
	SettlementRPC string

	Atlantic                *atlantic.Client
	MockLayoutBridge        bool
	MockProgramHash         string
	LayoutBridgeProgramFile []byte

	Settlement piltover.Config
	Signer     piltover.Signer

	WorkerCount int
	Generator   ingestor.PieGenerator
	Store       storage.BlockLifecycleStore

	Logger *slog.Logger
}

// NewPersistent wires BlockIngestor → SnosProver → LayoutBridgeProver →
// DataAvailabilityBackend (noop by default; persistent mode settles
// on-chain, DA publication is optional insurance) → SettlementBackend,
// with a supervisor that persists ChainHead after every settlement.
func NewPersistent(ctx context.Context, cfg PersistentConfig) (*Orchestrator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rollup, err := starknetrpc.Dial(ctx, cfg.RollupRPC)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: dial rollup rpc: %w", err)
	}
	settlementRPC, err := starknetrpc.Dial(ctx, cfg.SettlementRPC)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: dial settlement rpc: %w", err)
	}

	settlementClient := piltover.New(settlementRPC, cfg.Signer, cfg.Settlement)

	resumeBlock, err := settlementClient.GetBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read settlement block number: %w", err)
	}

	ingestorOut := make(chan types.NewBlock, 10)
	snosOut := make(chan types.SnosProof[string], 10)
	bridgeOut := make(chan types.RecursiveProof, 10)
	daOut := make(chan types.DataAvailabilityCursor[types.RecursiveProof], 5)
	settlementOut := make(chan types.SettlementCursor, 5)

	ingestorStage, err := ingestor.NewBuilder(logger, rollup, cfg.Generator).
		WithWorkerCount(cfg.WorkerCount).
		WithResumeBlock(resumeBlock).
		WithOutbound(ingestorOut).
		Build()
	if err != nil {
		return nil, err
	}

	snosStage, err := snos.NewBuilder(logger, cfg.Atlantic, cfg.Store).WithInbound(ingestorOut).WithOutbound(snosOut).Build()
	if err != nil {
		return nil, err
	}

	var bridgeStage pipeline.Daemon
	if cfg.MockLayoutBridge {
		bridgeStage, err = mock.NewLayoutBridgeBuilder(logger, cfg.MockProgramHash).
			WithInbound(snosOut).WithOutbound(bridgeOut).Build()
	} else {
		bridgeStage, err = layoutbridge.NewBuilder(logger, cfg.Atlantic, cfg.Store).
			WithProgramFile(cfg.LayoutBridgeProgramFile).
			WithInbound(snosOut).WithOutbound(bridgeOut).Build()
	}
	if err != nil {
		return nil, err
	}

	// DA publication is a noop in persistent mode: settlement is the
	// terminal guarantee, so no Publisher is wired. The stage is kept so
	// RecursiveProof still flows through the same DaCursor shape
	// settlement consumes, matching spec §4.6's "Consumes
	// DaCursor<RecursiveProof>" contract uniformly across modes.
	daStage, err := da.NewBuilder[types.RecursiveProof](logger, nil).
		WithInbound(bridgeOut).
		WithOutbound(daOut).
		Build()
	if err != nil {
		return nil, err
	}

	settlementStage, err := piltover.NewBuilder(logger, settlementClient, cfg.Store).
		WithInbound(daOut).
		WithOutbound(settlementOut).
		Build()
	if err != nil {
		return nil, err
	}

	stages := []stage{ingestorStage, snosStage, bridgeStage, daStage, settlementStage}

	o := &Orchestrator{stages: stages}
	o.supervisor = func(ctx context.Context) error {
		earlyFinish := watchEarlyFinish(stages)
		for {
			select {
			case <-ctx.Done():
				return Shutdown(stages)
			case <-earlyFinish:
				logger.Error("a pipeline stage finished unexpectedly, shutting down")
				_ = Shutdown(stages)
				return fmt.Errorf("orchestrator: stage finished unexpectedly")
			case cursor, ok := <-settlementOut:
				if !ok {
					return Shutdown(stages)
				}
				if err := cfg.Store.SetChainHead(ctx, types.Block(cursor.BlockNumber, nil)); err != nil {
					logger.Warn("persist chain head failed", "err", err)
				}
				logger.Info("settled block", "block_number", cursor.BlockNumber)
			}
		}
	}
	return o, nil
}
