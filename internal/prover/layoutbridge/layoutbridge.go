// Package layoutbridge implements the LayoutBridgeProver stage
// (persistent mode only): it wraps each SNOS proof as the bridge
// program's input, submits it for recursive proving over the same
// shared Atlantic client, and emits the RecursiveProof the settlement
// backend consumes.
package layoutbridge

import (
	"context"
	"encoding/json"
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

const stageName = "layout_bridge_prover"

const (
	// ProveRetryBackoff is the fixed delay between retries of a
	// transient proving error (submit/store RPC hiccups).
	ProveRetryBackoff = 5 * time.Second
	// MaxProveRetries bounds how many times a transient error is
	// retried before the block is treated as failed.
	MaxProveRetries = 3
)

type Stage struct {
	handle *pipeline.FinishHandle
	logger *slog.Logger

	client      *atlantic.Client
	store       storage.BlockLifecycleStore
	programFile []byte

	in  <-chan types.SnosProof[string]
	out chan<- types.RecursiveProof
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

// WithProgramFile attaches the compiled layout-bridge verifier program
// Atlantic compiles each submitted proof against. Omit it only when the
// stage is never built (mock-layout-bridge mode bypasses this builder
// entirely).
func (b *Builder) WithProgramFile(program []byte) *Builder {
	b.stage.programFile = program
	return b
}

func (b *Builder) WithInbound(in <-chan types.SnosProof[string]) *Builder {
	b.stage.in = in
	return b
}

func (b *Builder) WithOutbound(out chan<- types.RecursiveProof) *Builder {
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
		snosProof, ok, err := pipeline.Recv(s.handle, s.in)
		if err != nil || !ok {
			return
		}

		recursive, err := s.proveWithRetry(snosProof)
		if err != nil {
			if stageerr.IsShutdown(err) {
				return
			}
			s.logger.Error("layout bridge proving failed", "block_number", snosProof.BlockNumber, "err", err)
			_ = s.store.RecordFailure(context.Background(), snosProof.BlockNumber, err.Error())
			metrics.BlocksFailed.WithLabelValues(stageName).Inc()
			return
		}

		if err := pipeline.Send(s.handle, s.out, recursive); err != nil {
			return
		}
		metrics.BlocksBridgeProved.Inc()
		metrics.CurrentBlock.WithLabelValues(stageName).Set(float64(recursive.BlockNumber))
	}
}

// bridgeInput is the `{"proof": <raw>}` wrapper the bridge program
// expects as its input file.
type bridgeInput struct {
	Proof string `json:"proof"`
}

// proveWithRetry retries prove while it keeps failing with a transient
// error (submit/store RPC hiccups), per spec §7's "Transient network/RPC
// error — retried locally with fixed or exponential backoff." Fatal and
// shutdown errors propagate on the first attempt.
func (s *Stage) proveWithRetry(snosProof types.SnosProof[string]) (types.RecursiveProof, error) {
	logger := s.logger.With(slog.Uint64("block_number", snosProof.BlockNumber))

	ctx, cancel := pipeline.Context(s.handle, context.Background())
	defer cancel()

	var result types.RecursiveProof
	err := retry.Do(
		func() error {
			recursive, err := s.prove(snosProof)
			if err != nil {
				return err
			}
			result = recursive
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(MaxProveRetries+1),
		retry.Delay(ProveRetryBackoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return stageerr.KindOf(err) == stageerr.KindTransient }),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("layout bridge proving attempt failed, retrying", "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		if !stageerr.IsShutdown(err) {
			select {
			case <-s.handle.Cancelled():
				return types.RecursiveProof{}, stageerr.Shutdown(stageName)
			default:
			}
		}
		return types.RecursiveProof{}, err
	}
	return result, nil
}

func (s *Stage) prove(snosProof types.SnosProof[string]) (types.RecursiveProof, error) {
	block := snosProof.BlockNumber
	logger := s.logger.With(slog.Uint64("block_number", block))
	ctx := context.Background()

	parsedSnos, err := types.ParseStarkProof(snosProof.Proof)
	if err != nil {
		return types.RecursiveProof{}, stageerr.Fatal(stageName, block, err)
	}
	snosOutput, err := types.CalculateOutput(parsedSnos)
	if err != nil {
		return types.RecursiveProof{}, stageerr.Fatal(stageName, block, err)
	}

	existing, err := s.store.GetJobIDs(ctx, block)
	if err != nil {
		return types.RecursiveProof{}, stageerr.Transient(stageName, block, err)
	}

	queryID := existing.BridgeQueryID
	if queryID == "" {
		input, err := json.Marshal(bridgeInput{Proof: snosProof.Proof})
		if err != nil {
			return types.RecursiveProof{}, stageerr.Fatal(stageName, block, err)
		}

		queryID, err = s.client.SubmitInputFile(ctx, "bridge_input.json", input, atlantic.SubmitProofGenerationParams{
			ExternalID:  fmt.Sprintf("bridge-block-%d", block),
			Layout:      "dynamic",
			JobSize:     atlantic.JobSizeS,
			Result:      atlantic.ResultProofGeneration,
			ProgramFile: s.programFile,
		})
		if err != nil {
			return types.RecursiveProof{}, stageerr.Transient(stageName, block, err)
		}
		existing.BridgeQueryID = queryID
		if err := s.store.SetJobIDs(ctx, block, existing); err != nil {
			return types.RecursiveProof{}, stageerr.Transient(stageName, block, err)
		}
		if err := s.store.SetBlockStatus(ctx, block, storage.StatusBridgeProofSubmitted); err != nil {
			logger.Warn("set block status failed", "err", err)
		}
	}

	proofBytes, err := s.client.AwaitProof(ctx, s.handle, queryID)
	if err != nil {
		if stageerr.IsShutdown(err) {
			return types.RecursiveProof{}, err
		}
		return types.RecursiveProof{}, stageerr.Fatal(stageName, block, err)
	}

	bridgeProof, err := types.ParseStarkProof(string(proofBytes))
	if err != nil {
		return types.RecursiveProof{}, stageerr.Fatal(stageName, block, err)
	}

	if err := s.store.SaveBridgeProof(ctx, block, proofBytes); err != nil {
		logger.Warn("persist bridge proof failed", "err", err)
	}
	if err := s.store.SetBlockStatus(ctx, block, storage.StatusBridgeProofGenerated); err != nil {
		logger.Warn("set block status failed", "err", err)
	}

	return types.RecursiveProof{
		BlockNumber:       block,
		SnosOutput:        snosOutput,
		LayoutBridgeProof: bridgeProof,
	}, nil
}
