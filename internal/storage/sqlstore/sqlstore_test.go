package sqlstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayaproofs/saya/internal/storage"
	"github.com/sayaproofs/saya/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_StartsAtGenesisWhenEmpty(t *testing.T) {
	store := openTestStore(t)

	head, err := store.GetChainHead(context.Background())
	require.NoError(t, err)
	assert.True(t, head.IsGenesis)
}

func TestSetChainHead_RoundTripsWithDAPointer(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := types.ChainHead{
		Height:    12,
		DAPointer: &types.DataAvailabilityPointer{Height: 99, Commitment: [32]byte{1, 2, 3}},
	}
	require.NoError(t, store.SetChainHead(ctx, want))

	got, err := store.GetChainHead(ctx)
	require.NoError(t, err)
	assert.False(t, got.IsGenesis)
	assert.Equal(t, want.Height, got.Height)
	require.NotNil(t, got.DAPointer)
	assert.Equal(t, want.DAPointer.Height, got.DAPointer.Height)
	assert.Equal(t, want.DAPointer.Commitment, got.DAPointer.Commitment)
}

func TestSetChainHead_OverwritesPreviousValue(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetChainHead(ctx, types.ChainHead{Height: 1}))
	require.NoError(t, store.SetChainHead(ctx, types.ChainHead{Height: 2}))

	got, err := store.GetChainHead(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), got.Height)
}

func TestBlockStatus_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	status, err := store.GetBlockStatus(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, storage.BlockStatus(""), status)

	require.NoError(t, store.SetBlockStatus(ctx, 5, storage.StatusMined))
	status, err = store.GetBlockStatus(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusMined, status)

	require.NoError(t, store.SetBlockStatus(ctx, 5, storage.StatusSettled))
	status, err = store.GetBlockStatus(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusSettled, status)
}

func TestJobIDs_RoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetJobIDs(ctx, 3, storage.JobIDs{SnosQueryID: "snos-1", BridgeQueryID: "bridge-1"}))

	ids, err := store.GetJobIDs(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "snos-1", ids.SnosQueryID)
	assert.Equal(t, "bridge-1", ids.BridgeQueryID)
}

func TestRecordFailure_SetsFailedStatusAndAppendsHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordFailure(ctx, 1, "prover timeout"))
	require.NoError(t, store.RecordFailure(ctx, 2, "settlement reverted"))

	status, err := store.GetBlockStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, storage.StatusFailed, status)

	failures, err := store.RecentFailures(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, uint64(2), failures[0].BlockNumber)
	assert.Equal(t, "settlement reverted", failures[0].Reason)
}

func TestPiesAndProofs_SaveDoesNotError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetBlockStatus(ctx, 1, storage.StatusMined))
	require.NoError(t, store.SavePie(ctx, 1, []byte("pie-bytes")))
	require.NoError(t, store.SaveSnosProof(ctx, 1, []byte("snos-proof")))
	require.NoError(t, store.SaveBridgeProof(ctx, 1, []byte("bridge-proof")))
}
