// Package aggregator implements sharding mode's Aggregator: it folds
// each shard's per-block SNOS outputs into a single running squashed
// state-diff and persists it as a side effect, rather than forwarding
// anything downstream — sharding mode has no settlement step.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sayaproofs/saya/internal/metrics"
	"github.com/sayaproofs/saya/internal/pipeline"
	"github.com/sayaproofs/saya/internal/stageerr"
	"github.com/sayaproofs/saya/internal/types"
)

const stageName = "aggregator"

// Persister is the side-effect sink the aggregator writes its squashed
// diff to after every fold. The default implementation writes JSON to
// a file in the configured db-dir; a concrete deployment could swap in
// any other store without the aggregator's folding logic changing.
type Persister interface {
	Persist(ctx context.Context, throughBlock uint64, squashed []felt64) error
}

// felt64 is the JSON-friendly felt representation Persist writes:
// hex-encoded, matching every other wire format in this engine.
type felt64 = string

// FilePersister persists the squashed diff as a JSON document at path,
// overwritten after every fold.
type FilePersister struct {
	path string
}

func NewFilePersister(dbDir string) *FilePersister {
	return &FilePersister{path: filepath.Join(dbDir, "state_diff.json")}
}

type stateDiffDocument struct {
	ThroughBlock uint64   `json:"through_block"`
	Squashed     []felt64 `json:"squashed"`
}

func (p *FilePersister) Persist(_ context.Context, throughBlock uint64, squashed []felt64) error {
	doc := stateDiffDocument{ThroughBlock: throughBlock, Squashed: squashed}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("aggregator: marshal state diff: %w", err)
	}
	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("aggregator: write state diff: %w", err)
	}
	return os.Rename(tmp, p.path)
}

// Stage is the sharding-mode Aggregator: it consumes SnosProof directly
// (sharding mode has no layout-bridge recursion step) and emits nothing
// downstream.
type Stage struct {
	handle *pipeline.FinishHandle
	logger *slog.Logger

	persister Persister
	diff      *StateDiff

	in       <-chan types.SnosProof[string]
	progress chan<- uint64 // optional: last folded block number, for supervisor progress logging
}

type Builder struct {
	stage Stage
}

func NewBuilder(logger *slog.Logger, persister Persister) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{stage: Stage{
		logger:    logger.With(slog.String("stage", stageName)),
		persister: persister,
		diff:      NewStateDiff(),
	}}
}

func (b *Builder) WithInbound(in <-chan types.SnosProof[string]) *Builder {
	b.stage.in = in
	return b
}

// WithProgress wires an optional channel the stage reports the last
// folded block number on, for the orchestrator's supervisor to log —
// sharding mode has no settlement cursor to watch, so this is its
// substitute progress signal.
func (b *Builder) WithProgress(progress chan<- uint64) *Builder {
	b.stage.progress = progress
	return b
}

func (b *Builder) Build() (*Stage, error) {
	if b.stage.persister == nil {
		return nil, stageerr.Config(stageName, fmt.Errorf("persister not wired"))
	}
	if b.stage.in == nil {
		return nil, stageerr.Config(stageName, fmt.Errorf("inbound channel not wired"))
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
		proof, ok, err := pipeline.Recv(s.handle, s.in)
		if err != nil || !ok {
			return
		}

		if err := s.fold(proof); err != nil {
			s.logger.Error("fold failed", "block_number", proof.BlockNumber, "err", err)
			return
		}

		if s.progress != nil {
			if err := pipeline.Send(s.handle, s.progress, proof.BlockNumber); err != nil {
				return
			}
		}
	}
}

func (s *Stage) fold(proof types.SnosProof[string]) error {
	parsed, err := types.ParseStarkProof(proof.Proof)
	if err != nil {
		return stageerr.Fatal(stageName, proof.BlockNumber, err)
	}
	output, err := types.CalculateOutput(parsed)
	if err != nil {
		return stageerr.Fatal(stageName, proof.BlockNumber, err)
	}
	if err := s.diff.Fold(output); err != nil {
		return stageerr.Fatal(stageName, proof.BlockNumber, err)
	}

	squashed := s.diff.Squash()
	hexes := make([]felt64, len(squashed))
	for i, f := range squashed {
		hexes[i] = f.Hex()
	}

	ctx, cancel := pipeline.Context(s.handle, context.Background())
	defer cancel()
	if err := s.persister.Persist(ctx, proof.BlockNumber, hexes); err != nil {
		return stageerr.Transient(stageName, proof.BlockNumber, err)
	}

	s.logger.Info("folded block into state diff", "block_number", proof.BlockNumber, "keys_tracked", s.diff.Len())
	metrics.CurrentBlock.WithLabelValues(stageName).Set(float64(proof.BlockNumber))
	return nil
}
