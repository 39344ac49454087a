// Package pie provides the BlockIngestor's PieGenerator implementations.
// Generating a CairoPie means actually running the Starknet OS program
// over a block's execution trace — a Cairo VM run — which has no
// equivalent library anywhere in this module's dependency set. The
// generator here shells out to an external runner binary the same way
// the reference implementation's local variant wraps an in-process
// prove_block call, just across a process boundary instead of an FFI
// boundary.
package pie

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sayaproofs/saya/internal/types"
)

// LocalGenerator shells out to a runner binary that performs the actual
// Cairo VM execution and writes its CairoPie artifacts to a manifest the
// generator reads back. It is the PieGenerator every mode's
// BlockIngestor is built with.
type LocalGenerator struct {
	// RunnerPath is the executable that runs the Starknet OS program.
	// It is invoked as:
	//   <RunnerPath> --program <ProgramPath> --block-number <n> --rpc-url <url> --layout all_cairo --full-output --out <tmpfile>
	// and must write a JSON manifest (see runnerManifest) to --out.
	RunnerPath  string
	ProgramPath string
	RPCURL      string
}

// runnerManifest is the JSON shape the runner binary is expected to
// produce: a path to each of the five PIE artifact files, plus the
// public-output segment and step count the core needs without having to
// parse the PIE itself.
type runnerManifest struct {
	VersionJSONPath            string               `json:"version_json_path"`
	MetadataJSONPath           string               `json:"metadata_json_path"`
	MemoryBinPath              string               `json:"memory_bin_path"`
	AdditionalDataJSONPath     string               `json:"additional_data_json_path"`
	ExecutionResourcesJSONPath string               `json:"execution_resources_json_path"`
	PublicOutputSegment        []manifestMemoryCell `json:"public_output_segment"`
	NSteps                     uint64               `json:"n_steps"`
	NTxs                       uint64               `json:"n_txs"`
}

type manifestMemoryCell struct {
	Address uint64 `json:"address"`
	Value   string `json:"value"` // hex-encoded 32 bytes
}

// ProveBlock runs the configured binary for blockNumber and loads its
// output manifest into a types.CairoPie.
func (g *LocalGenerator) ProveBlock(ctx context.Context, blockNumber uint64) (types.CairoPie, uint64, error) {
	outFile, err := os.CreateTemp("", fmt.Sprintf("saya-pie-%d-*.json", blockNumber))
	if err != nil {
		return types.CairoPie{}, 0, fmt.Errorf("pie: create manifest temp file: %w", err)
	}
	outPath := outFile.Name()
	outFile.Close()
	defer os.Remove(outPath)

	cmd := exec.CommandContext(ctx, g.RunnerPath,
		"--program", g.ProgramPath,
		"--block-number", fmt.Sprint(blockNumber),
		"--rpc-url", g.RPCURL,
		"--layout", "all_cairo",
		"--full-output",
		"--out", outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return types.CairoPie{}, 0, fmt.Errorf("pie: runner failed for block %d: %w (%s)", blockNumber, err, stderr.String())
	}

	manifestBytes, err := os.ReadFile(outPath)
	if err != nil {
		return types.CairoPie{}, 0, fmt.Errorf("pie: read manifest: %w", err)
	}
	var manifest runnerManifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return types.CairoPie{}, 0, fmt.Errorf("pie: parse manifest: %w", err)
	}

	artifacts, err := loadArtifacts(manifest)
	if err != nil {
		return types.CairoPie{}, 0, err
	}

	segment, err := decodeSegment(manifest.PublicOutputSegment)
	if err != nil {
		return types.CairoPie{}, 0, err
	}

	return types.CairoPie{
		Raw:                 artifacts,
		PublicOutputSegment: segment,
		NSteps:              manifest.NSteps,
	}, manifest.NTxs, nil
}

func loadArtifacts(m runnerManifest) (types.PieArtifacts, error) {
	paths := []string{
		m.VersionJSONPath, m.MetadataJSONPath, m.MemoryBinPath,
		m.AdditionalDataJSONPath, m.ExecutionResourcesJSONPath,
	}
	contents := make([][]byte, len(paths))
	for i, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return types.PieArtifacts{}, fmt.Errorf("pie: read artifact %q: %w", p, err)
		}
		contents[i] = b
	}
	return types.PieArtifacts{
		VersionJSON:            contents[0],
		MetadataJSON:           contents[1],
		MemoryBin:              contents[2],
		AdditionalDataJSON:     contents[3],
		ExecutionResourcesJSON: contents[4],
	}, nil
}

func decodeSegment(cells []manifestMemoryCell) ([]types.MemoryCell, error) {
	out := make([]types.MemoryCell, len(cells))
	for i, c := range cells {
		raw, err := hex.DecodeString(strings.TrimPrefix(c.Value, "0x"))
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("pie: decode memory cell %d value %q: %w", i, c.Value, err)
		}
		var value [32]byte
		copy(value[:], raw)
		out[i] = types.MemoryCell{Address: c.Address, Value: value}
	}
	return out, nil
}
