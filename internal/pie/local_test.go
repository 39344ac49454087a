package pie

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSegment_RoundTripsHexValues(t *testing.T) {
	cells := []manifestMemoryCell{
		{Address: 1, Value: "0x0000000000000000000000000000000000000000000000000000000000002a"},
	}

	out, err := decodeSegment(cells)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, uint64(1), out[0].Address)
	assert.Equal(t, byte(0x2a), out[0].Value[31])
}

func TestDecodeSegment_RejectsWrongLength(t *testing.T) {
	_, err := decodeSegment([]manifestMemoryCell{{Address: 1, Value: "0x1234"}})
	assert.Error(t, err)
}

func TestLoadArtifacts_ReadsAllFiveFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	m := runnerManifest{
		VersionJSONPath:            write("version.json", "v1"),
		MetadataJSONPath:           write("metadata.json", "m1"),
		MemoryBinPath:              write("memory.bin", "mem"),
		AdditionalDataJSONPath:     write("additional.json", "a1"),
		ExecutionResourcesJSONPath: write("resources.json", "r1"),
	}

	artifacts, err := loadArtifacts(m)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(artifacts.VersionJSON))
	assert.Equal(t, "m1", string(artifacts.MetadataJSON))
	assert.Equal(t, "mem", string(artifacts.MemoryBin))
	assert.Equal(t, "a1", string(artifacts.AdditionalDataJSON))
	assert.Equal(t, "r1", string(artifacts.ExecutionResourcesJSON))
}

func TestLoadArtifacts_MissingFileErrors(t *testing.T) {
	_, err := loadArtifacts(runnerManifest{VersionJSONPath: "/no/such/file"})
	assert.Error(t, err)
}

// TestProveBlock_ReadsBackRunnerManifest exercises the full subprocess
// contract with a fake runner script instead of a real Cairo VM,
// verifying ProveBlock's manifest read-back path end to end.
func TestProveBlock_ReadsBackRunnerManifest(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("fake runner script assumes a POSIX shell")
	}
	dir := t.TempDir()

	artifactPath := func(name string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("stub-"+name), 0o644))
		return p
	}
	version := artifactPath("version.json")
	metadata := artifactPath("metadata.json")
	memory := artifactPath("memory.bin")
	additional := artifactPath("additional.json")
	resources := artifactPath("resources.json")

	manifest := `{
		"version_json_path": "` + version + `",
		"metadata_json_path": "` + metadata + `",
		"memory_bin_path": "` + memory + `",
		"additional_data_json_path": "` + additional + `",
		"execution_resources_json_path": "` + resources + `",
		"public_output_segment": [{"address": 7, "value": "0x0000000000000000000000000000000000000000000000000000000000000a"}],
		"n_steps": 1000,
		"n_txs": 3
	}`

	runner := filepath.Join(dir, "fake-runner.sh")
	script := "#!/bin/sh\n" +
		"while [ \"$1\" != \"--out\" ]; do shift; done\n" +
		"shift\n" +
		"cat > \"$1\" <<'EOF'\n" + manifest + "\nEOF\n"
	require.NoError(t, os.WriteFile(runner, []byte(script), 0o755))

	g := &LocalGenerator{RunnerPath: runner, ProgramPath: "os.json", RPCURL: "http://localhost:5050"}
	cairoPie, nTxs, err := g.ProveBlock(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), nTxs)
	assert.Equal(t, uint64(1000), cairoPie.NSteps)
	assert.Equal(t, "stub-version.json", string(cairoPie.Raw.VersionJSON))
	require.Len(t, cairoPie.PublicOutputSegment, 1)
	assert.Equal(t, uint64(7), cairoPie.PublicOutputSegment[0].Address)
	assert.Equal(t, byte(0x0a), cairoPie.PublicOutputSegment[0].Value[31])
}
