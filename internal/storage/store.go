// Package storage abstracts the two persistence operations the
// orchestrator needs — reading and advancing the chain head — behind an
// interface with two concrete implementations: an ephemeral in-memory
// store for sovereign test runs, and an embedded SQL store for durable,
// restart-safe deployments. The store implementation owns its own
// internal locking; storage is touched both by the orchestrator's
// supervisor task and by the prover and settlement stages, which record
// per-block status, job IDs, proofs and failures.
package storage

import (
	"context"

	"github.com/sayaproofs/saya/internal/types"
)

// ChainHeadStore is the minimal contract every backend satisfies: the
// watermark the orchestrator reads at startup and advances after every
// terminal-stage success.
type ChainHeadStore interface {
	// GetChainHead returns the persisted watermark, or types.Genesis()
	// if none has ever been recorded.
	GetChainHead(ctx context.Context) (types.ChainHead, error)
	// SetChainHead atomically replaces the persisted watermark.
	SetChainHead(ctx context.Context, head types.ChainHead) error
}

// BlockStatus is the constrained vocabulary block lifecycle rows take in
// the embedded SQL store. original_source's Rust schema and status enum
// diverged (upper-snake vs lower-snake, and an extended status set not
// reflected in the CHECK constraint); this is Open Question
// "duplicate-status coverage" from spec §9 — SPEC_FULL picks the
// lower-snake vocabulary below and enforces it consistently via the CHECK
// clause in migrations/0001_init.up.sql.
type BlockStatus string

const (
	StatusMined               BlockStatus = "mined"
	StatusSnosPieGenerated     BlockStatus = "snos_pie_generated"
	StatusSnosProofSubmitted   BlockStatus = "snos_proof_submitted"
	StatusSnosProofGenerated   BlockStatus = "snos_proof_generated"
	StatusBridgeProofSubmitted BlockStatus = "bridge_proof_submitted"
	StatusBridgeProofGenerated BlockStatus = "bridge_proof_generated"
	StatusVerifiedProof        BlockStatus = "verified_proof"
	StatusSettled              BlockStatus = "settled"
	StatusFailed               BlockStatus = "failed"
)

// AllStatuses lists the vocabulary enforced by the CHECK constraint, in
// lifecycle order.
var AllStatuses = []BlockStatus{
	StatusMined,
	StatusSnosPieGenerated,
	StatusSnosProofSubmitted,
	StatusSnosProofGenerated,
	StatusBridgeProofSubmitted,
	StatusBridgeProofGenerated,
	StatusVerifiedProof,
	StatusSettled,
	StatusFailed,
}

// JobIDs records the query IDs in flight for a block, so a restart can
// poll the same remote jobs instead of resubmitting work already paid
// for.
type JobIDs struct {
	SnosQueryID   string
	BridgeQueryID string
}

// BlockLifecycleStore is implemented by durable backends (the embedded
// SQL store); the in-memory store also satisfies it, keeping statuses,
// job IDs and failures in memory while its PIE/proof Save methods are
// no-ops. It is suitable only for ephemeral sovereign runs, since it
// cannot make restart safe.
type BlockLifecycleStore interface {
	ChainHeadStore

	// SetBlockStatus transitions block's status row, creating it if
	// absent.
	SetBlockStatus(ctx context.Context, block uint64, status BlockStatus) error
	// GetBlockStatus returns the last recorded status for block, or ""
	// if no row exists yet.
	GetBlockStatus(ctx context.Context, block uint64) (BlockStatus, error)
	// SavePie persists the compressed SNOS PIE bytes for block.
	SavePie(ctx context.Context, block uint64, pie []byte) error
	// SaveSnosProof persists the raw SNOS proof bytes for block.
	SaveSnosProof(ctx context.Context, block uint64, proof []byte) error
	// SaveBridgeProof persists the raw layout-bridge proof bytes for block.
	SaveBridgeProof(ctx context.Context, block uint64, proof []byte) error
	// SetJobIDs records the remote query IDs in flight for block.
	SetJobIDs(ctx context.Context, block uint64, ids JobIDs) error
	// GetJobIDs returns the query IDs recorded for block, if any.
	GetJobIDs(ctx context.Context, block uint64) (JobIDs, error)
	// RecordFailure marks block permanently failed with reason, so a
	// `saya status` caller can see why the pipeline stalled.
	RecordFailure(ctx context.Context, block uint64, reason string) error
	// RecentFailures returns up to limit most recent failures, newest
	// first.
	RecentFailures(ctx context.Context, limit int) ([]FailedBlock, error)
	// Close releases underlying resources (the sqlite connection pool).
	Close() error
}

// FailedBlock is one row of the failed_blocks table.
type FailedBlock struct {
	BlockNumber uint64
	Reason      string
}
