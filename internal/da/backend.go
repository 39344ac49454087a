// Package da defines the DataAvailabilityBackend stage contract and its
// two variants (celestia, noop) share. Both are built around the same
// channel-in/channel-out generic stage shape the teacher's pipeline
// stages use, parameterised over the proof payload type so the engine
// can swap proof backends without touching this package.
package da

import (
	"context"
	"log/slog"

	"github.com/sayaproofs/saya/internal/metrics"
	"github.com/sayaproofs/saya/internal/pipeline"
	"github.com/sayaproofs/saya/internal/stageerr"
	"github.com/sayaproofs/saya/internal/types"
)

const stageName = "data_availability"

// Publisher is the narrow seam a concrete variant implements: submit a
// CBOR-encoded packet and report the DataAvailabilityPointer the network
// assigned it. The celestia variant implements this over go-square blobs
// and a configured node RPC endpoint; the noop variant never calls it.
type Publisher interface {
	Publish(ctx context.Context, packetCBOR []byte) (types.DataAvailabilityPointer, error)
}

// Numbered is the constraint on the proof payload the DA stage consumes:
// SnosProof[T] in sovereign mode (no bridge recursion step), or
// RecursiveProof in persistent mode.
type Numbered interface {
	BlockNum() uint64
}

// Stage runs the DataAvailabilityBackend for proof payload type P. A nil
// Publisher selects noop behaviour: cursors are emitted immediately with
// a nil pointer and no external call.
type Stage[P Numbered] struct {
	handle *pipeline.FinishHandle
	logger *slog.Logger

	in  <-chan P
	out chan<- types.DataAvailabilityCursor[P]

	publisher   Publisher
	lastPointer *types.DataAvailabilityPointer
}

// Builder constructs a Stage with late channel wiring, per the builder
// pattern every stage in this pipeline uses: setters accept endpoints,
// Build validates all mandatory fields are present.
type Builder[P Numbered] struct {
	stage Stage[P]
}

func NewBuilder[P Numbered](logger *slog.Logger, publisher Publisher) *Builder[P] {
	return &Builder[P]{stage: Stage[P]{
		logger:    logging(logger),
		publisher: publisher,
	}}
}

func logging(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("stage", stageName))
}

func (b *Builder[P]) WithInbound(in <-chan P) *Builder[P] {
	b.stage.in = in
	return b
}

func (b *Builder[P]) WithOutbound(out chan<- types.DataAvailabilityCursor[P]) *Builder[P] {
	b.stage.out = out
	return b
}

// WithResumePointer seeds last_pointer from the persisted ChainHead so a
// restart continues the contiguous-chain invariant rather than starting
// a new one at genesis.
func (b *Builder[P]) WithResumePointer(ptr *types.DataAvailabilityPointer) *Builder[P] {
	b.stage.lastPointer = ptr
	return b
}

func (b *Builder[P]) Build() (*Stage[P], error) {
	if b.stage.in == nil {
		return nil, stageerr.Config(stageName, errMissing("inbound channel"))
	}
	if b.stage.out == nil {
		return nil, stageerr.Config(stageName, errMissing("outbound channel"))
	}
	b.stage.handle = pipeline.NewFinishHandle()
	s := b.stage
	return &s, nil
}

type configErr string

func (e configErr) Error() string { return string(e) }

func errMissing(what string) error { return configErr(what + " not wired") }

func (s *Stage[P]) ShutdownHandle() pipeline.ShutdownHandle {
	return pipeline.NewShutdownHandle(s.handle)
}

func (s *Stage[P]) Start() {
	go s.run()
}

func (s *Stage[P]) run() {
	defer s.handle.MarkFinished()

	for {
		proof, ok, err := pipeline.Recv(s.handle, s.in)
		if err != nil {
			if !stageerr.IsShutdown(err) {
				s.logger.Error("inbound recv failed", "err", err)
			}
			return
		}
		if !ok {
			return
		}

		cursor, err := s.publish(proof)
		if err != nil {
			if stageerr.IsShutdown(err) {
				return
			}
			s.logger.Error("publish failed", "block_number", proof.BlockNum(), "err", err)
			return
		}

		if err := pipeline.Send(s.handle, s.out, cursor); err != nil {
			return
		}
		if s.publisher != nil {
			metrics.BlocksPublished.Inc()
			metrics.CurrentBlock.WithLabelValues(stageName).Set(float64(cursor.BlockNumber))
		}
	}
}

func (s *Stage[P]) publish(proof P) (types.DataAvailabilityCursor[P], error) {
	blockNumber := proof.BlockNum()

	if s.publisher == nil {
		return types.DataAvailabilityCursor[P]{
			BlockNumber: blockNumber,
			Pointer:     nil,
			FullPayload: proof,
		}, nil
	}

	packet := types.DataAvailabilityPacket[P]{Prev: s.lastPointer, Content: proof}
	encoded, err := types.EncodeCBOR(packet)
	if err != nil {
		return types.DataAvailabilityCursor[P]{}, stageerr.Fatal(stageName, blockNumber, err)
	}

	ctx, cancel := pipeline.Context(s.handle, context.Background())
	defer cancel()
	ptr, err := s.publisher.Publish(ctx, encoded)
	if err != nil {
		return types.DataAvailabilityCursor[P]{}, stageerr.Transient(stageName, blockNumber, err)
	}

	s.lastPointer = &ptr
	return types.DataAvailabilityCursor[P]{
		BlockNumber: blockNumber,
		Pointer:     &ptr,
		FullPayload: proof,
	}, nil
}
