package ingestor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v4"

	"github.com/sayaproofs/saya/internal/metrics"
	"github.com/sayaproofs/saya/internal/pipeline"
	"github.com/sayaproofs/saya/internal/stageerr"
	"github.com/sayaproofs/saya/internal/starknetrpc"
	"github.com/sayaproofs/saya/internal/types"
)

const stageName = "block_ingestor"

const (
	// BlockCheckInterval is how often the stage polls the rollup RPC for
	// its latest height.
	BlockCheckInterval = 5 * time.Second
	// TaskBufferSize bounds the internal dispatch queue feeding the
	// worker pool.
	TaskBufferSize = 10
	// ProveBlockFailureBackoff is the fixed delay between PIE-generation
	// retries.
	ProveBlockFailureBackoff = 5 * time.Second
	// MaxRetries is the number of retries a worker attempts before giving
	// up on a height and moving to the next task.
	MaxRetries = 3
)

// PieGenerator is the narrow external collaborator that actually runs
// Starknet-OS over a block. The core treats its CairoPie output as
// opaque beyond the public-output segment calculate_output later reads.
type PieGenerator interface {
	ProveBlock(ctx context.Context, blockNumber uint64) (types.CairoPie, uint64, error)
}

type task struct {
	height uint64
}

// Stage is the BlockIngestor: a polling loop that dispatches heights to
// a fixed worker pool and a reorder buffer that re-serialises their
// out-of-order completions.
type Stage struct {
	handle *pipeline.FinishHandle
	logger *slog.Logger

	rollup       *starknetrpc.Client
	generator    PieGenerator
	workerCount  int
	currentBlock uint64

	// dispatched is the next height the dispatcher will attempt to
	// queue; it only advances once the task has been accepted by the
	// worker queue, so a full downstream channel holds it stable — the
	// observable signal the backpressure property asserts on.
	dispatched atomic.Uint64

	out chan<- types.NewBlock
}

// CurrentBlock reports the next height the dispatcher will attempt to
// queue. It is stable whenever the pipeline is backpressured.
func (s *Stage) CurrentBlock() uint64 { return s.dispatched.Load() }

// Builder constructs a Stage with late wiring; Build validates mandatory
// fields, per the builder-with-late-wiring pattern every stage uses.
type Builder struct {
	stage Stage
}

func NewBuilder(logger *slog.Logger, rollup *starknetrpc.Client, generator PieGenerator) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{stage: Stage{
		logger:    logger.With(slog.String("stage", stageName)),
		rollup:    rollup,
		generator: generator,
	}}
}

func (b *Builder) WithWorkerCount(n int) *Builder {
	b.stage.workerCount = n
	return b
}

// WithResumeBlock sets the first height the stage dispatches, the
// configured genesis or the persisted ChainHead's height+1.
func (b *Builder) WithResumeBlock(height uint64) *Builder {
	b.stage.currentBlock = height
	return b
}

func (b *Builder) WithOutbound(out chan<- types.NewBlock) *Builder {
	b.stage.out = out
	return b
}

func (b *Builder) Build() (*Stage, error) {
	if b.stage.rollup == nil {
		return nil, stageerr.Config(stageName, fmt.Errorf("rollup rpc client not wired"))
	}
	if b.stage.generator == nil {
		return nil, stageerr.Config(stageName, fmt.Errorf("pie generator not wired"))
	}
	if b.stage.out == nil {
		return nil, stageerr.Config(stageName, fmt.Errorf("outbound channel not wired"))
	}
	if b.stage.workerCount < 1 {
		b.stage.workerCount = 1
	}
	b.stage.handle = pipeline.NewFinishHandle()
	s := b.stage
	return &s, nil
}

func (s *Stage) ShutdownHandle() pipeline.ShutdownHandle {
	return pipeline.NewShutdownHandle(s.handle)
}

func (s *Stage) Start() {
	go s.run()
}

func (s *Stage) run() {
	defer s.handle.MarkFinished()

	tasks := make(chan task, TaskBufferSize)
	completions := make(chan completion, TaskBufferSize)

	var wg sync.WaitGroup
	for i := 0; i < s.workerCount; i++ {
		wg.Add(1)
		go s.worker(&wg, tasks, completions)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	nextDispatch := s.currentBlock
	s.dispatched.Store(nextDispatch)
	buffer := newReorderBuffer(s.currentBlock)
	wait := time.Duration(0) // the first poll happens immediately

	for {
		select {
		case <-s.handle.Cancelled():
			close(tasks)
			<-done
			return
		default:
		}

		// Wait out the poll interval inside the completion loop, emitting
		// every completion as soon as it arrives, then fall through to the
		// poll/dispatch steps below: sleeping between polls without reading
		// completions would cap emission at one batch per BlockCheckInterval
		// regardless of how fast the workers finish.
		timer := time.After(wait)
		wait = BlockCheckInterval
	drainCompletions:
		for {
			select {
			case c, ok := <-completions:
				if !ok {
					return
				}
				ready := buffer.Add(c)
				for _, block := range ready {
					if err := pipeline.Send(s.handle, s.out, block); err != nil {
						close(tasks)
						<-done
						return
					}
					metrics.BlocksIngested.Inc()
					metrics.CurrentBlock.WithLabelValues(stageName).Set(float64(block.Number))
				}
			case <-timer:
				break drainCompletions
			case <-s.handle.Cancelled():
				close(tasks)
				<-done
				return
			}
		}

		latest, err := s.rollup.BlockNumber(context.Background())
		if err != nil {
			s.logger.Warn("poll latest block failed", "err", err)
			continue
		}

		for nextDispatch <= latest {
			select {
			case tasks <- task{height: nextDispatch}:
				nextDispatch++
				s.dispatched.Store(nextDispatch)
			case <-s.handle.Cancelled():
				close(tasks)
				<-done
				return
			}
		}
	}
}

func (s *Stage) worker(wg *sync.WaitGroup, tasks <-chan task, completions chan<- completion) {
	defer wg.Done()

	for t := range tasks {
		block, ok := s.generate(t.height)
		if !ok {
			continue
		}
		select {
		case completions <- completion{height: t.height, block: block}:
		case <-s.handle.Cancelled():
			return
		}
	}
}

// generate invokes the PIE generator with retries; ok is false once
// retries are exhausted or shutdown preempts the retry loop, meaning
// the dispatcher must not advance past this height (it is simply never
// completed, so no gap is emitted).
func (s *Stage) generate(height uint64) (types.NewBlock, bool) {
	logger := s.logger.With(slog.Uint64("block_number", height))

	ctx, cancel := pipeline.Context(s.handle, context.Background())
	defer cancel()

	var result types.NewBlock
	err := retry.Do(
		func() error {
			pie, nTxs, err := s.generator.ProveBlock(ctx, height)
			if err != nil {
				return err
			}
			result = types.NewBlock{Number: height, Pie: pie, NTxs: nTxs}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(MaxRetries+1),
		retry.Delay(ProveBlockFailureBackoff),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("pie generation attempt failed", "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		logger.Error("pie generation exhausted retries, block will be retried on next run", "err", err)
		return types.NewBlock{}, false
	}

	return result, true
}
