package types

import (
	"encoding/json"
	"fmt"

	"github.com/sayaproofs/saya/internal/felt"
)

// proofJSON is the subset of Atlantic's proof.json shape calculate_output
// needs: the segment table locating the public-output region and the
// flat list of (address, value) cells it indexes into. Everything else
// in the real proof artifact is opaque to the core.
type proofJSON struct {
	PublicInput struct {
		MainPage []struct {
			Address uint64 `json:"address"`
			Value   string `json:"value"`
		} `json:"main_page"`
	} `json:"public_input"`
	Segments []struct {
		BeginAddr uint64 `json:"begin_addr"`
		StopPtr   uint64 `json:"stop_ptr"`
	} `json:"segments"`
}

// ParseStarkProof parses a raw proof.json document into the structured
// form CalculateOutput reads from, keeping the original text around for
// re-submission to the layout-bridge prover. Each main_page cell's value
// is accepted as either a "0x"-prefixed hex literal or a base-10 decimal
// string, the two forms proof.json documents use interchangeably.
func ParseStarkProof(raw string) (StarkProof, error) {
	var doc proofJSON
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return StarkProof{}, fmt.Errorf("parse proof: %w", err)
	}

	proof := StarkProof{Raw: raw}
	for _, seg := range doc.Segments {
		proof.Segments = append(proof.Segments, Segment{BeginAddr: seg.BeginAddr, StopPtr: seg.StopPtr})
	}
	for _, cell := range doc.PublicInput.MainPage {
		value, err := parseFeltLiteral(cell.Value)
		if err != nil {
			return StarkProof{}, fmt.Errorf("parse proof: main_page cell %d: %w", cell.Address, err)
		}
		proof.PublicInput.MainPage = append(proof.PublicInput.MainPage, MemoryCell{Address: cell.Address, Value: value.Bytes32()})
	}
	return proof, nil
}

func parseFeltLiteral(s string) (felt.Felt, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return felt.FromHex(s)
	}
	return felt.FromDecimal(s)
}
