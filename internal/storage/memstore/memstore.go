// Package memstore is the single-process, ephemeral BlockLifecycleStore
// used by sovereign test runs that don't need restart safety: every row
// lives only as long as the process does. It satisfies the full
// storage.BlockLifecycleStore contract (not just ChainHeadStore) so
// every stage builder can wire it interchangeably with the embedded SQL
// store.
package memstore

import (
	"context"
	"sync"

	"github.com/sayaproofs/saya/internal/storage"
	"github.com/sayaproofs/saya/internal/types"
)

// Store is a mutex-protected in-memory BlockLifecycleStore.
type Store struct {
	mu sync.Mutex

	head     types.ChainHead
	statuses map[uint64]storage.BlockStatus
	jobIDs   map[uint64]storage.JobIDs
	failures []storage.FailedBlock
}

// New returns a Store watermarked at genesis.
func New() *Store {
	return &Store{
		head:     types.Genesis(),
		statuses: make(map[uint64]storage.BlockStatus),
		jobIDs:   make(map[uint64]storage.JobIDs),
	}
}

func (s *Store) GetChainHead(_ context.Context) (types.ChainHead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.head, nil
}

func (s *Store) SetChainHead(_ context.Context, head types.ChainHead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = head
	return nil
}

func (s *Store) SetBlockStatus(_ context.Context, block uint64, status storage.BlockStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[block] = status
	return nil
}

func (s *Store) GetBlockStatus(_ context.Context, block uint64) (storage.BlockStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[block], nil
}

// SavePie is a no-op: the ephemeral store keeps only lifecycle
// metadata, not artifact bytes, since it never survives a restart that
// would need them.
func (s *Store) SavePie(_ context.Context, _ uint64, _ []byte) error { return nil }

func (s *Store) SaveSnosProof(_ context.Context, _ uint64, _ []byte) error { return nil }

func (s *Store) SaveBridgeProof(_ context.Context, _ uint64, _ []byte) error { return nil }

func (s *Store) SetJobIDs(_ context.Context, block uint64, ids storage.JobIDs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobIDs[block] = ids
	return nil
}

func (s *Store) GetJobIDs(_ context.Context, block uint64) (storage.JobIDs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobIDs[block], nil
}

func (s *Store) RecordFailure(_ context.Context, block uint64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, storage.FailedBlock{BlockNumber: block, Reason: reason})
	s.statuses[block] = storage.StatusFailed
	return nil
}

func (s *Store) RecentFailures(_ context.Context, limit int) ([]storage.FailedBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.failures)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]storage.FailedBlock, n)
	for i := 0; i < n; i++ {
		out[i] = s.failures[len(s.failures)-1-i]
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

var _ storage.BlockLifecycleStore = (*Store)(nil)
