// Package mock provides stand-ins for the remote prover used by wiring
// tests and the `--mock-snos-from-pie` / `--mock-layout-bridge` CLI
// flags: synthesized proofs that round-trip through calculate_output
// correctly but carry no cryptographic validity. Spec §4.3 calls this
// mode out explicitly: "this produces invalid proofs useful only for
// downstream wiring tests."
package mock

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sayaproofs/saya/internal/felt"
	"github.com/sayaproofs/saya/internal/pipeline"
	"github.com/sayaproofs/saya/internal/stageerr"
	"github.com/sayaproofs/saya/internal/types"
)

const (
	snosStageName   = "mock_snos_prover"
	bridgeStageName = "mock_layout_bridge_prover"
)

// proofDoc is the minimal proof.json shape SnosStage/types.ParseStarkProof
// round-trip through.
type proofDoc struct {
	PublicInput struct {
		MainPage []mainPageCell `json:"main_page"`
	} `json:"public_input"`
	Segments []segment `json:"segments"`
}

type mainPageCell struct {
	Address uint64 `json:"address"`
	Value   string `json:"value"`
}

type segment struct {
	BeginAddr uint64 `json:"begin_addr"`
	StopPtr   uint64 `json:"stop_ptr"`
}

func encodeProof(proof types.StarkProof) (string, error) {
	var doc proofDoc
	for _, seg := range proof.Segments {
		doc.Segments = append(doc.Segments, segment{BeginAddr: seg.BeginAddr, StopPtr: seg.StopPtr})
	}
	for _, cell := range proof.PublicInput.MainPage {
		doc.PublicInput.MainPage = append(doc.PublicInput.MainPage, mainPageCell{
			Address: cell.Address,
			Value:   felt.FromBytes32(cell.Value).Hex(),
		})
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("mock: encode proof: %w", err)
	}
	return string(b), nil
}

// SnosStage synthesizes a SnosProof from a block's PIE public-output
// segment instead of calling the remote prover: segment index 2 of the
// PIE's opaque segment table becomes public_input.main_page directly.
type SnosStage struct {
	handle *pipeline.FinishHandle
	logger *slog.Logger

	in  <-chan types.NewBlock
	out chan<- types.SnosProof[string]
}

func NewSnosBuilder(logger *slog.Logger) *snosBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &snosBuilder{stage: SnosStage{logger: logger.With(slog.String("stage", snosStageName))}}
}

type snosBuilder struct{ stage SnosStage }

func (b *snosBuilder) WithInbound(in <-chan types.NewBlock) *snosBuilder {
	b.stage.in = in
	return b
}

func (b *snosBuilder) WithOutbound(out chan<- types.SnosProof[string]) *snosBuilder {
	b.stage.out = out
	return b
}

func (b *snosBuilder) Build() (*SnosStage, error) {
	if b.stage.in == nil {
		return nil, stageerr.Config(snosStageName, fmt.Errorf("inbound channel not wired"))
	}
	if b.stage.out == nil {
		return nil, stageerr.Config(snosStageName, fmt.Errorf("outbound channel not wired"))
	}
	b.stage.handle = pipeline.NewFinishHandle()
	s := b.stage
	return &s, nil
}

func (s *SnosStage) ShutdownHandle() pipeline.ShutdownHandle {
	return pipeline.NewShutdownHandle(s.handle)
}

func (s *SnosStage) Start() { go s.run() }

func (s *SnosStage) run() {
	defer s.handle.MarkFinished()

	for {
		block, ok, err := pipeline.Recv(s.handle, s.in)
		if err != nil || !ok {
			return
		}

		proof := s.synthesize(block)
		encoded, err := encodeProof(proof)
		if err != nil {
			s.logger.Error("synthesize mock proof failed", "block_number", block.Number, "err", err)
			return
		}

		snosProof := types.SnosProof[string]{BlockNumber: block.Number, Proof: encoded}
		if err := pipeline.Send(s.handle, s.out, snosProof); err != nil {
			return
		}
	}
}

func (s *SnosStage) synthesize(block types.NewBlock) types.StarkProof {
	page := make([]types.MemoryCell, len(block.Pie.PublicOutputSegment))
	copy(page, block.Pie.PublicOutputSegment)
	return types.StarkProof{
		PublicInput: types.PublicInput{MainPage: page},
		Segments: []types.Segment{
			{BeginAddr: 0, StopPtr: 0},
			{BeginAddr: 0, StopPtr: 0},
			{BeginAddr: 0, StopPtr: uint64(len(page))},
		},
	}
}

// LayoutBridgeStage is the `--mock-layout-bridge` variant: it never
// submits to the remote prover. It emits a RecursiveProof whose
// LayoutBridgeProof is synthesized so that calculate_output on it
// reproduces snos_output exactly, as scenario 6 requires ("program_output
// begins with snos_output").
type LayoutBridgeStage struct {
	handle *pipeline.FinishHandle
	logger *slog.Logger

	programHash string

	in  <-chan types.SnosProof[string]
	out chan<- types.RecursiveProof
}

func NewLayoutBridgeBuilder(logger *slog.Logger, programHash string) *bridgeBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &bridgeBuilder{stage: LayoutBridgeStage{
		logger:      logger.With(slog.String("stage", bridgeStageName)),
		programHash: programHash,
	}}
}

type bridgeBuilder struct{ stage LayoutBridgeStage }

func (b *bridgeBuilder) WithInbound(in <-chan types.SnosProof[string]) *bridgeBuilder {
	b.stage.in = in
	return b
}

func (b *bridgeBuilder) WithOutbound(out chan<- types.RecursiveProof) *bridgeBuilder {
	b.stage.out = out
	return b
}

func (b *bridgeBuilder) Build() (*LayoutBridgeStage, error) {
	if b.stage.in == nil {
		return nil, stageerr.Config(bridgeStageName, fmt.Errorf("inbound channel not wired"))
	}
	if b.stage.out == nil {
		return nil, stageerr.Config(bridgeStageName, fmt.Errorf("outbound channel not wired"))
	}
	b.stage.handle = pipeline.NewFinishHandle()
	s := b.stage
	return &s, nil
}

func (s *LayoutBridgeStage) ShutdownHandle() pipeline.ShutdownHandle {
	return pipeline.NewShutdownHandle(s.handle)
}

func (s *LayoutBridgeStage) Start() { go s.run() }

func (s *LayoutBridgeStage) run() {
	defer s.handle.MarkFinished()

	for {
		snosProof, ok, err := pipeline.Recv(s.handle, s.in)
		if err != nil || !ok {
			return
		}

		parsed, err := types.ParseStarkProof(snosProof.Proof)
		if err != nil {
			s.logger.Error("parse snos proof failed", "block_number", snosProof.BlockNumber, "err", err)
			return
		}
		snosOutput, err := types.CalculateOutput(parsed)
		if err != nil {
			s.logger.Error("calculate snos output failed", "block_number", snosProof.BlockNumber, "err", err)
			return
		}

		recursive := types.RecursiveProof{
			BlockNumber:       snosProof.BlockNumber,
			SnosOutput:        snosOutput,
			LayoutBridgeProof: types.MockProofFromOutput(snosOutput),
		}

		if err := pipeline.Send(s.handle, s.out, recursive); err != nil {
			return
		}
	}
}

// ProgramHash returns the configured mock bridge program hash.
func (s *LayoutBridgeStage) ProgramHash() string { return s.programHash }
