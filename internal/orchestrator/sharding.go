package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sayaproofs/saya/internal/aggregator"
	"github.com/sayaproofs/saya/internal/ingestor"
	"github.com/sayaproofs/saya/internal/pipeline"
	"github.com/sayaproofs/saya/internal/prover/atlantic"
	"github.com/sayaproofs/saya/internal/prover/mock"
	"github.com/sayaproofs/saya/internal/prover/snos"
	"github.com/sayaproofs/saya/internal/starknetrpc"
	"github.com/sayaproofs/saya/internal/storage"
	"github.com/sayaproofs/saya/internal/types"
)

// ShardingConfig configures a sharding-mode run: prove each block and
// fold its SNOS output into a running squashed state-diff, with no
// settlement or DA step.
type ShardingConfig struct {
	RollupRPC string

	Atlantic        *atlantic.Client
	MockSnosFromPie bool

	Persister aggregator.Persister

	WorkerCount int
	Generator   ingestor.PieGenerator
	Store       storage.BlockLifecycleStore

	Logger *slog.Logger
}

// NewSharding wires BlockIngestor → SnosProver → Aggregator. Sharding
// always starts at block 0 — spec §4.7 explicitly excludes it from the
// ChainHead/on-chain resume-watermark lookups the other two modes use,
// since a shard has no prior settlement to resume from.
func NewSharding(ctx context.Context, cfg ShardingConfig) (*Orchestrator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rollup, err := starknetrpc.Dial(ctx, cfg.RollupRPC)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: dial rollup rpc: %w", err)
	}

	ingestorOut := make(chan types.NewBlock, 10)
	snosOut := make(chan types.SnosProof[string], 10)
	progress := make(chan uint64, 1)

	ingestorStage, err := ingestor.NewBuilder(logger, rollup, cfg.Generator).
		WithWorkerCount(cfg.WorkerCount).
		WithResumeBlock(0).
		WithOutbound(ingestorOut).
		Build()
	if err != nil {
		return nil, err
	}

	var snosStage pipeline.Daemon
	if cfg.MockSnosFromPie {
		snosStage, err = mock.NewSnosBuilder(logger).WithInbound(ingestorOut).WithOutbound(snosOut).Build()
	} else {
		snosStage, err = snos.NewBuilder(logger, cfg.Atlantic, cfg.Store).WithInbound(ingestorOut).WithOutbound(snosOut).Build()
	}
	if err != nil {
		return nil, err
	}

	aggregatorStage, err := aggregator.NewBuilder(logger, cfg.Persister).
		WithInbound(snosOut).
		WithProgress(progress).
		Build()
	if err != nil {
		return nil, err
	}

	stages := []stage{ingestorStage, snosStage, aggregatorStage}

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
			case block, ok := <-progress:
				if !ok {
					return Shutdown(stages)
				}
				logger.Info("aggregated block into shard state diff", "block_number", block)
			}
		}
	}
	return o, nil
}
