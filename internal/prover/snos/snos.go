// Package snos implements the SnosProver stage: it submits each
// ingested block's PIE to the shared Atlantic client, polls to
// completion, persists the resulting proof, and forwards it downstream
// as a raw textual proof the layout-bridge prover (or, in sovereign
// mode, the DA backend directly) consumes.
package snos

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	retry "github.com/avast/retry-go/v4"

	"github.com/sayaproofs/saya/internal/metrics"
	"github.com/sayaproofs/saya/internal/pipeline"
	"github.com/sayaproofs/saya/internal/prover/atlantic"
	"github.com/sayaproofs/saya/internal/stageerr"
	"github.com/sayaproofs/saya/internal/storage"
	"github.com/sayaproofs/saya/internal/types"
)

const stageName = "snos_prover"

const (
	// ProveRetryBackoff is the fixed delay between retries of a
	// transient proving error (submit/store RPC hiccups).
	ProveRetryBackoff = 5 * time.Second
	// MaxProveRetries bounds how many times a transient error is
	// retried before the block is treated as failed.
	MaxProveRetries = 3
)

// Stage submits compressed PIEs to the remote prover and emits raw
// proof text per block.
type Stage struct {
	handle *pipeline.FinishHandle
	logger *slog.Logger

	client *atlantic.Client
	store  storage.BlockLifecycleStore

	in  <-chan types.NewBlock
	out chan<- types.SnosProof[string]
}

type Builder struct {
	stage Stage
}

func NewBuilder(logger *slog.Logger, client *atlantic.Client, store storage.BlockLifecycleStore) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{stage: Stage{
		logger: logger.With(slog.String("stage", stageName)),
		client: client,
		store:  store,
	}}
}

func (b *Builder) WithInbound(in <-chan types.NewBlock) *Builder {
	b.stage.in = in
	return b
}

func (b *Builder) WithOutbound(out chan<- types.SnosProof[string]) *Builder {
	b.stage.out = out
	return b
}

func (b *Builder) Build() (*Stage, error) {
	if b.stage.client == nil {
		return nil, stageerr.Config(stageName, fmt.Errorf("atlantic client not wired"))
	}
	if b.stage.store == nil {
		return nil, stageerr.Config(stageName, fmt.Errorf("store not wired"))
	}
	if b.stage.in == nil {
		return nil, stageerr.Config(stageName, fmt.Errorf("inbound channel not wired"))
	}
	if b.stage.out == nil {
		return nil, stageerr.Config(stageName, fmt.Errorf("outbound channel not wired"))
	}
	b.stage.handle = pipeline.NewFinishHandle()
	s := b.stage
	return &s, nil
}

func (s *Stage) ShutdownHandle() pipeline.ShutdownHandle {
	return pipeline.NewShutdownHandle(s.handle)
}

func (s *Stage) Start() { go s.run() }

func (s *Stage) run() {
	defer s.handle.MarkFinished()

	for {
		block, ok, err := pipeline.Recv(s.handle, s.in)
		if err != nil || !ok {
			return
		}

		proof, err := s.proveWithRetry(block)
		if err != nil {
			if stageerr.IsShutdown(err) {
				return
			}
			s.logger.Error("snos proving failed", "block_number", block.Number, "err", err)
			_ = s.store.RecordFailure(context.Background(), block.Number, err.Error())
			metrics.BlocksFailed.WithLabelValues(stageName).Inc()
			return
		}

		if err := pipeline.Send(s.handle, s.out, proof); err != nil {
			return
		}
		metrics.BlocksSnosProved.Inc()
		metrics.CurrentBlock.WithLabelValues(stageName).Set(float64(block.Number))
	}
}

// proveWithRetry retries prove while it keeps failing with a transient
// error (submit/store RPC hiccups), per spec §7's "Transient network/RPC
// error — retried locally with fixed or exponential backoff." Fatal and
// shutdown errors propagate on the first attempt.
func (s *Stage) proveWithRetry(block types.NewBlock) (types.SnosProof[string], error) {
	logger := s.logger.With(slog.Uint64("block_number", block.Number))

	ctx, cancel := pipeline.Context(s.handle, context.Background())
	defer cancel()

	var result types.SnosProof[string]
	err := retry.Do(
		func() error {
			proof, err := s.prove(block)
			if err != nil {
				return err
			}
			result = proof
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(MaxProveRetries+1),
		retry.Delay(ProveRetryBackoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return stageerr.KindOf(err) == stageerr.KindTransient }),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("snos proving attempt failed, retrying", "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		if !stageerr.IsShutdown(err) {
			select {
			case <-s.handle.Cancelled():
				return types.SnosProof[string]{}, stageerr.Shutdown(stageName)
			default:
			}
		}
		return types.SnosProof[string]{}, err
	}
	return result, nil
}

func (s *Stage) prove(block types.NewBlock) (types.SnosProof[string], error) {
	logger := s.logger.With(slog.Uint64("block_number", block.Number))
	ctx := context.Background()

	existing, err := s.store.GetJobIDs(ctx, block.Number)
	if err != nil {
		return types.SnosProof[string]{}, stageerr.Transient(stageName, block.Number, err)
	}

	queryID := existing.SnosQueryID
	if queryID == "" {
		queryID, err = s.client.SubmitPie(ctx, block.Pie, atlantic.SubmitProofGenerationParams{
			ExternalID: fmt.Sprintf("block-%d", block.Number),
			Layout:     "dynamic",
			JobSize:    atlantic.DeclaredJobSize(block.Pie.NSteps),
			Result:     atlantic.ResultProofGeneration,
		})
		if err != nil {
			return types.SnosProof[string]{}, stageerr.Transient(stageName, block.Number, err)
		}
		if err := s.store.SetJobIDs(ctx, block.Number, storage.JobIDs{SnosQueryID: queryID}); err != nil {
			return types.SnosProof[string]{}, stageerr.Transient(stageName, block.Number, err)
		}
		if err := s.store.SetBlockStatus(ctx, block.Number, storage.StatusSnosProofSubmitted); err != nil {
			logger.Warn("set block status failed", "err", err)
		}
	}

	proofBytes, err := s.client.AwaitProof(ctx, s.handle, queryID)
	if err != nil {
		if stageerr.IsShutdown(err) {
			return types.SnosProof[string]{}, err
		}
		return types.SnosProof[string]{}, stageerr.Fatal(stageName, block.Number, err)
	}

	if err := s.store.SaveSnosProof(ctx, block.Number, proofBytes); err != nil {
		logger.Warn("persist snos proof failed", "err", err)
	}
	if err := s.store.SetBlockStatus(ctx, block.Number, storage.StatusSnosProofGenerated); err != nil {
		logger.Warn("set block status failed", "err", err)
	}

	return types.SnosProof[string]{BlockNumber: block.Number, Proof: string(proofBytes)}, nil
}
