package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sayaproofs/saya/internal/da"
	"github.com/sayaproofs/saya/internal/da/celestia"
	"github.com/sayaproofs/saya/internal/ingestor"
	"github.com/sayaproofs/saya/internal/pipeline"
	"github.com/sayaproofs/saya/internal/prover/atlantic"
	"github.com/sayaproofs/saya/internal/prover/mock"
	"github.com/sayaproofs/saya/internal/prover/snos"
	"github.com/sayaproofs/saya/internal/starknetrpc"
	"github.com/sayaproofs/saya/internal/storage"
	"github.com/sayaproofs/saya/internal/types"
)

// SovereignConfig configures a sovereign-mode run: prove each block and
// publish it to a DA layer, with no settlement step.
type SovereignConfig struct {
	RollupRPC string

	Atlantic      *atlantic.Client // nil under MockSnosFromPie
	MockSnosFromPie bool

	Celestia *celestia.Config // nil selects the noop DA variant

	WorkerCount int
	Generator   ingestor.PieGenerator
	Store       storage.BlockLifecycleStore
	Genesis     uint64

	Logger *slog.Logger
}

// NewSovereign wires BlockIngestor → SnosProver → DataAvailabilityBackend
// and a supervisor that persists ChainHead after every published block.
func NewSovereign(ctx context.Context, cfg SovereignConfig) (*Orchestrator, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rollup, err := starknetrpc.Dial(ctx, cfg.RollupRPC)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: dial rollup rpc: %w", err)
	}

	resumeBlock := cfg.Genesis
	head, err := cfg.Store.GetChainHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read chain head: %w", err)
	}
	if !head.IsGenesis {
		resumeBlock = head.Height + 1
	}

	ingestorOut := make(chan types.NewBlock, 10)
	snosOut := make(chan types.SnosProof[string], 10)
	daOut := make(chan types.DataAvailabilityCursor[types.SnosProof[string]], 5)

	ingestorStage, err := ingestor.NewBuilder(logger, rollup, cfg.Generator).
		WithWorkerCount(cfg.WorkerCount).
		WithResumeBlock(resumeBlock).
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

	var publisher da.Publisher
	if cfg.Celestia != nil {
		publisher, err = celestia.New(*cfg.Celestia)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: construct celestia publisher: %w", err)
		}
	}

	daBuilder := da.NewBuilder[types.SnosProof[string]](logger, publisher).
		WithInbound(snosOut).
		WithOutbound(daOut)
	if !head.IsGenesis {
		daBuilder = daBuilder.WithResumePointer(head.DAPointer)
	}
	daStage, err := daBuilder.Build()
	if err != nil {
		return nil, err
	}

	stages := []stage{ingestorStage, snosStage, daStage}

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
			case cursor, ok := <-daOut:
				if !ok {
					return Shutdown(stages)
				}
				err := cfg.Store.SetChainHead(ctx, types.Block(cursor.BlockNumber, cursor.Pointer))
				if err != nil {
					logger.Warn("persist chain head failed", "err", err)
				}
				logger.Info("published block", "block_number", cursor.BlockNumber)
			}
		}
	}
	return o, nil
}
