// Package types holds the data model shared across pipeline stages: the
// entities that flow down the channels between BlockIngestor, the
// provers, the DA backend, settlement, and the aggregator. Every entity
// is created by exactly one stage, owned for the duration of one
// processing step, and dropped after being forwarded — channels transfer
// ownership, nothing is shared by reference across stages.
package types

// CairoPie is the opaque, serialisable trace of one Cairo run (a
// "Program Independent Execution"). The core never looks inside it
// except to extract the public-output segment for calculate_output; it
// treats the rest as an opaque blob to zip up and hand to the prover.
type CairoPie struct {
	// Raw holds the uncompressed PIE payload, ready to be split into the
	// version.json / metadata.json / memory.bin / additional_data.json /
	// execution_resources.json members of the zip archive the prover
	// expects.
	Raw PieArtifacts
	// PublicOutputSegment is segment index 2 of the PIE's memory
	// segments, the canonical location of the program's public output.
	// Mock provers synthesize a proof directly from this.
	PublicOutputSegment []MemoryCell
	// NSteps is the Cairo step count, used to pick a declaredJobSize.
	NSteps uint64
}

// MemoryCell is one (address, value) pair from a Cairo memory segment.
type MemoryCell struct {
	Address uint64
	Value   [32]byte
}

// PieArtifacts groups the five files a compressed PIE archive must
// contain, named after the fields the remote prover's multipart upload
// expects.
type PieArtifacts struct {
	VersionJSON            []byte
	MetadataJSON           []byte
	MemoryBin              []byte
	AdditionalDataJSON     []byte
	ExecutionResourcesJSON []byte
}

// NewBlock is the ingestor's output: one ingested block, produced at
// most once per height and consumed exactly once by the SNOS prover.
type NewBlock struct {
	Number uint64
	Pie    CairoPie
	NTxs   uint64
}
