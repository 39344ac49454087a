package piltover

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	retry "github.com/avast/retry-go/v4"

	"github.com/sayaproofs/saya/internal/metrics"
	"github.com/sayaproofs/saya/internal/pipeline"
	"github.com/sayaproofs/saya/internal/stageerr"
	"github.com/sayaproofs/saya/internal/storage"
	"github.com/sayaproofs/saya/internal/types"
)

const stageName = "settlement_backend"

const (
	// SettleRetryBackoff is the fixed delay between retries of a
	// transient settlement error (fee estimation/submit RPC hiccups).
	SettleRetryBackoff = 5 * time.Second
	// MaxSettleRetries bounds how many times a transient error is
	// retried before the block is treated as failed.
	MaxSettleRetries = 3
)

// Stage is the persistent-mode SettlementBackend: for each recursive
// proof it submits update_state, waits for confirmation, and emits a
// SettlementCursor.
type Stage struct {
	handle *pipeline.FinishHandle
	logger *slog.Logger

	client *Client
	store  storage.BlockLifecycleStore

	in  <-chan types.DataAvailabilityCursor[types.RecursiveProof]
	out chan<- types.SettlementCursor
}

type Builder struct {
	stage Stage
}

func NewBuilder(logger *slog.Logger, client *Client, store storage.BlockLifecycleStore) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{stage: Stage{
		logger: logger.With(slog.String("stage", stageName)),
		client: client,
		store:  store,
	}}
}

func (b *Builder) WithInbound(in <-chan types.DataAvailabilityCursor[types.RecursiveProof]) *Builder {
	b.stage.in = in
	return b
}

func (b *Builder) WithOutbound(out chan<- types.SettlementCursor) *Builder {
	b.stage.out = out
	return b
}

func (b *Builder) Build() (*Stage, error) {
	if b.stage.client == nil {
		return nil, stageerr.Config(stageName, fmt.Errorf("piltover client not wired"))
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

	if err := s.client.EnsureFactsRegistry(context.Background()); err != nil {
		s.logger.Error("set_facts_registry failed", "err", err)
		return
	}

	for {
		cursor, ok, err := pipeline.Recv(s.handle, s.in)
		if err != nil || !ok {
			return
		}

		settled, err := s.settleWithRetry(cursor.FullPayload)
		if err != nil {
			if stageerr.IsShutdown(err) {
				return
			}
			s.logger.Error("settlement failed", "block_number", cursor.BlockNumber, "err", err)
			_ = s.store.RecordFailure(context.Background(), cursor.BlockNumber, err.Error())
			metrics.BlocksFailed.WithLabelValues(stageName).Inc()
			return
		}

		if err := pipeline.Send(s.handle, s.out, settled); err != nil {
			return
		}
		metrics.BlocksSettled.Inc()
		metrics.CurrentBlock.WithLabelValues(stageName).Set(float64(settled.BlockNumber))
	}
}

// settleWithRetry retries settle while it keeps failing with a transient
// error (fee estimation/submit RPC hiccups), per spec §7's "Transient
// network/RPC error — retried locally with fixed or exponential
// backoff." Fatal and shutdown errors propagate on the first attempt.
func (s *Stage) settleWithRetry(proof types.RecursiveProof) (types.SettlementCursor, error) {
	logger := s.logger.With(slog.Uint64("block_number", proof.BlockNumber))

	ctx, cancel := pipeline.Context(s.handle, context.Background())
	defer cancel()

	var result types.SettlementCursor
	err := retry.Do(
		func() error {
			settled, err := s.settle(proof)
			if err != nil {
				return err
			}
			result = settled
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(MaxSettleRetries+1),
		retry.Delay(SettleRetryBackoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return stageerr.KindOf(err) == stageerr.KindTransient }),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("settlement attempt failed, retrying", "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		if !stageerr.IsShutdown(err) {
			select {
			case <-s.handle.Cancelled():
				return types.SettlementCursor{}, stageerr.Shutdown(stageName)
			default:
			}
		}
		return types.SettlementCursor{}, err
	}
	return result, nil
}

func (s *Stage) settle(proof types.RecursiveProof) (types.SettlementCursor, error) {
	block := proof.BlockNumber
	logger := s.logger.With(slog.Uint64("block_number", block))
	ctx, cancel := pipeline.Context(s.handle, context.Background())
	defer cancel()

	// program_output begins with snos_output by construction of both the
	// remote and mock layout bridge provers: calculate_output on the
	// bridge proof reproduces the recursive program's public output,
	// whose leading segment echoes the SNOS output it wraps.
	programOutput, err := types.CalculateOutput(proof.LayoutBridgeProof)
	if err != nil {
		return types.SettlementCursor{}, stageerr.Fatal(stageName, block, err)
	}

	call := s.client.UpdateStateCall(proof.SnosOutput, programOutput)

	fee, err := s.client.EstimateFee(ctx, call)
	if err != nil {
		return types.SettlementCursor{}, stageerr.Transient(stageName, block, err)
	}
	logger.Info("estimated settlement fee", "overall_fee", fee.Hex())

	txHash, err := s.client.SendInvoke(ctx, call)
	if err != nil {
		return types.SettlementCursor{}, stageerr.Transient(stageName, block, err)
	}
	if err := s.store.SetBlockStatus(ctx, block, storage.StatusVerifiedProof); err != nil {
		logger.Warn("set block status failed", "err", err)
	}
	logger.Info("submitted update_state", "tx_hash", txHash.Hex())

	if err := s.client.PollReceipt(s.handle, txHash); err != nil {
		if stageerr.IsShutdown(err) {
			return types.SettlementCursor{}, err
		}
		return types.SettlementCursor{}, stageerr.Fatal(stageName, block, err)
	}

	if err := s.store.SetBlockStatus(ctx, block, storage.StatusSettled); err != nil {
		logger.Warn("set block status failed", "err", err)
	}
	if err := s.store.SetChainHead(ctx, types.Block(block, nil)); err != nil {
		logger.Warn("set chain head failed", "err", err)
	}

	return types.SettlementCursor{BlockNumber: block, TransactionHash: txHash.Bytes32()}, nil
}
