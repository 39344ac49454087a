package types

import "github.com/sayaproofs/saya/internal/felt"

// SnosProof is the SNOS prover's output: one proof per block. Proof is
// generic over the representation the downstream stage needs — the raw
// textual proof (what the layout bridge submits as input) or an already
// parsed StarkProof (what calculate_output reads from).
type SnosProof[T any] struct {
	BlockNumber uint64
	Proof       T
}

// BlockNum satisfies da.Numbered so SnosProof can flow directly into the
// DataAvailabilityBackend stage in sovereign mode, where there
// is no layout-bridge recursion step between the SNOS prover and DA.
func (p SnosProof[T]) BlockNum() uint64 { return p.BlockNumber }

// StarkProof is the parsed shape of a prover's proof.json response, down
// to the fields calculate_output needs: the segment table that locates
// the public-output region, and main_page, the flat list of (address,
// value) cells from which that region is sliced.
type StarkProof struct {
	Raw         string // the untouched proof.json text, for re-submission
	PublicInput PublicInput
	Segments    []Segment
}

// PublicInput holds the portion of a parsed proof relevant to output
// extraction and bridge submission.
type PublicInput struct {
	MainPage []MemoryCell
}

// Segment is one entry of a StarkProof's segment table. Segment index 2
// is, by convention, the program's output segment: BeginAddr and StopPtr
// bound the region of MainPage holding the public output.
type Segment struct {
	BeginAddr uint64
	StopPtr   uint64
}

// RecursiveProof is the layout-bridge prover's output (persistent mode
// only): the SNOS program's public output plus a recursive proof that
// the SNOS proof verifying it is itself valid.
type RecursiveProof struct {
	BlockNumber       uint64
	SnosOutput        []felt.Felt
	LayoutBridgeProof StarkProof
}

// BlockNum satisfies da.Numbered so RecursiveProof can flow into the
// DataAvailabilityBackend stage in persistent mode.
func (p RecursiveProof) BlockNum() uint64 { return p.BlockNumber }

// CalculateOutput is the one operation the core performs on proof
// internals: it locates segment #2 (begin_addr, stop_ptr), computes
// output_len = stop_ptr - begin_addr, and returns the value half of the
// last output_len cells of public_input.main_page. It is reused by the
// layout bridge prover (to populate RecursiveProof.SnosOutput), by
// settlement (to populate program_output from the bridge proof), and by
// the aggregator (to fold per-block SNOS outputs).
func CalculateOutput(proof StarkProof) ([]felt.Felt, error) {
	if len(proof.Segments) < 3 {
		return nil, errSegmentTable("proof has fewer than 3 segments, cannot locate output segment")
	}
	seg := proof.Segments[2]
	if seg.StopPtr < seg.BeginAddr {
		return nil, errSegmentTable("output segment has stop_ptr < begin_addr")
	}
	outputLen := seg.StopPtr - seg.BeginAddr
	page := proof.PublicInput.MainPage
	if outputLen > uint64(len(page)) {
		return nil, errSegmentTable("output_len exceeds main_page length")
	}
	start := uint64(len(page)) - outputLen
	out := make([]felt.Felt, 0, outputLen)
	for _, cell := range page[start:] {
		out = append(out, felt.FromBytes32(cell.Value))
	}
	return out, nil
}

// MockProofFromOutput builds a StarkProof whose calculate_output is
// exactly xs: a three-segment table with segment #2 spanning
// [0, len(xs)) and a main_page holding xs in order at addresses 0..n-1.
// Used by mock provers and by the calculate_output round-trip test.
func MockProofFromOutput(xs []felt.Felt) StarkProof {
	page := make([]MemoryCell, len(xs))
	for i, f := range xs {
		page[i] = MemoryCell{Address: uint64(i), Value: f.Bytes32()}
	}
	return StarkProof{
		PublicInput: PublicInput{MainPage: page},
		Segments: []Segment{
			{BeginAddr: 0, StopPtr: 0},
			{BeginAddr: 0, StopPtr: 0},
			{BeginAddr: 0, StopPtr: uint64(len(xs))},
		},
	}
}

type segmentTableError string

func (e segmentTableError) Error() string { return string(e) }

func errSegmentTable(msg string) error { return segmentTableError(msg) }
