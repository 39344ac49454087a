// Package sqlstore is the durable, restart-safe BlockLifecycleStore. It
// embeds its own schema migrations and runs them against a pure-Go
// sqlite database on open, the same golang-migrate-plus-embed.FS pattern
// the teacher's control-plane/internal/database uses for Postgres,
// adapted from pgxpool to database/sql since modernc.org/sqlite has no
// pool type of its own.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/sayaproofs/saya/internal/storage"
	"github.com/sayaproofs/saya/internal/types"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store is an embedded sqlite-backed BlockLifecycleStore.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the database file at filepath.Join(dbDir,
// "saya.db") and runs pending migrations.
func Open(dbDir string) (*Store, error) {
	path := filepath.Join(dbDir, "saya.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid SQLITE_BUSY churn

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations source: %w", err)
	}

	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetChainHead(ctx context.Context) (types.ChainHead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT is_genesis, height, da_pointer_height, da_pointer_commitment FROM chain_head WHERE id = 1`)

	var isGenesis int
	var height int64
	var ptrHeight sql.NullInt64
	var ptrCommitment []byte
	if err := row.Scan(&isGenesis, &height, &ptrHeight, &ptrCommitment); err != nil {
		if err == sql.ErrNoRows {
			return types.Genesis(), nil
		}
		return types.ChainHead{}, fmt.Errorf("scan chain head: %w", err)
	}

	head := types.ChainHead{IsGenesis: isGenesis != 0, Height: uint64(height)}
	if ptrHeight.Valid && len(ptrCommitment) == 32 {
		var commitment [32]byte
		copy(commitment[:], ptrCommitment)
		head.DAPointer = &types.DataAvailabilityPointer{
			Height:     uint64(ptrHeight.Int64),
			Commitment: commitment,
		}
	}
	return head, nil
}

func (s *Store) SetChainHead(ctx context.Context, head types.ChainHead) error {
	var ptrHeight sql.NullInt64
	var ptrCommitment []byte
	if head.DAPointer != nil {
		ptrHeight = sql.NullInt64{Int64: int64(head.DAPointer.Height), Valid: true}
		ptrCommitment = head.DAPointer.Commitment[:]
	}

	isGenesis := 0
	if head.IsGenesis {
		isGenesis = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chain_head (id, is_genesis, height, da_pointer_height, da_pointer_commitment)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			is_genesis = excluded.is_genesis,
			height = excluded.height,
			da_pointer_height = excluded.da_pointer_height,
			da_pointer_commitment = excluded.da_pointer_commitment
	`, isGenesis, int64(head.Height), ptrHeight, ptrCommitment)
	if err != nil {
		return fmt.Errorf("set chain head: %w", err)
	}
	return nil
}

func (s *Store) SetBlockStatus(ctx context.Context, block uint64, status storage.BlockStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blocks (block_id, status, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(block_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at
	`, int64(block), string(status), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("set block status: %w", err)
	}
	return nil
}

func (s *Store) GetBlockStatus(ctx context.Context, block uint64) (storage.BlockStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM blocks WHERE block_id = ?`, int64(block)).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get block status: %w", err)
	}
	return storage.BlockStatus(status), nil
}

func (s *Store) SavePie(ctx context.Context, block uint64, pie []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pies (block_id, snos_pie) VALUES (?, ?)
		ON CONFLICT(block_id) DO UPDATE SET snos_pie = excluded.snos_pie
	`, int64(block), pie)
	if err != nil {
		return fmt.Errorf("save pie: %w", err)
	}
	return nil
}

func (s *Store) SaveSnosProof(ctx context.Context, block uint64, proof []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proofs (block_id, snos_proof) VALUES (?, ?)
		ON CONFLICT(block_id) DO UPDATE SET snos_proof = excluded.snos_proof
	`, int64(block), proof)
	if err != nil {
		return fmt.Errorf("save snos proof: %w", err)
	}
	return nil
}

func (s *Store) SaveBridgeProof(ctx context.Context, block uint64, proof []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO proofs (block_id, bridge_proof) VALUES (?, ?)
		ON CONFLICT(block_id) DO UPDATE SET bridge_proof = excluded.bridge_proof
	`, int64(block), proof)
	if err != nil {
		return fmt.Errorf("save bridge proof: %w", err)
	}
	return nil
}

func (s *Store) SetJobIDs(ctx context.Context, block uint64, ids storage.JobIDs) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_ids (block_id, snos_query_id, bridge_query_id) VALUES (?, ?, ?)
		ON CONFLICT(block_id) DO UPDATE SET
			snos_query_id = excluded.snos_query_id,
			bridge_query_id = excluded.bridge_query_id
	`, int64(block), ids.SnosQueryID, ids.BridgeQueryID)
	if err != nil {
		return fmt.Errorf("set job ids: %w", err)
	}
	return nil
}

func (s *Store) GetJobIDs(ctx context.Context, block uint64) (storage.JobIDs, error) {
	var snos, bridge sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT snos_query_id, bridge_query_id FROM job_ids WHERE block_id = ?`, int64(block)).
		Scan(&snos, &bridge)
	if err == sql.ErrNoRows {
		return storage.JobIDs{}, nil
	}
	if err != nil {
		return storage.JobIDs{}, fmt.Errorf("get job ids: %w", err)
	}
	return storage.JobIDs{SnosQueryID: snos.String, BridgeQueryID: bridge.String}, nil
}

func (s *Store) RecordFailure(ctx context.Context, block uint64, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO failed_blocks (block_id, reason, failed_at) VALUES (?, ?, ?)
		ON CONFLICT(block_id) DO UPDATE SET reason = excluded.reason, failed_at = excluded.failed_at
	`, int64(block), reason, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return s.SetBlockStatus(ctx, block, storage.StatusFailed)
}

func (s *Store) RecentFailures(ctx context.Context, limit int) ([]storage.FailedBlock, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT block_id, reason FROM failed_blocks ORDER BY failed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent failures: %w", err)
	}
	defer rows.Close()

	var out []storage.FailedBlock
	for rows.Next() {
		var block int64
		var reason string
		if err := rows.Scan(&block, &reason); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		out = append(out, storage.FailedBlock{BlockNumber: uint64(block), Reason: reason})
	}
	return out, rows.Err()
}

var _ storage.BlockLifecycleStore = (*Store)(nil)
