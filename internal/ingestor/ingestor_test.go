package ingestor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayaproofs/saya/internal/starknetrpc"
	"github.com/sayaproofs/saya/internal/types"
)

type fakeGenerator struct{}

func (fakeGenerator) ProveBlock(_ context.Context, blockNumber uint64) (types.CairoPie, uint64, error) {
	return types.CairoPie{NSteps: blockNumber}, blockNumber, nil
}

func blockNumberServer(t *testing.T, latest uint64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resultJSON, err := json.Marshal(latest)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  json.RawMessage(resultJSON),
		})
	}))
}

func TestBuilder_RejectsMissingCollaborators(t *testing.T) {
	_, err := NewBuilder(nil, nil, nil).Build()
	assert.Error(t, err)
}

func TestBuilder_DefaultsWorkerCountToOne(t *testing.T) {
	server := blockNumberServer(t, 0)
	defer server.Close()
	rpc, err := starknetrpc.Dial(context.Background(), server.URL)
	require.NoError(t, err)
	defer rpc.Close()

	out := make(chan types.NewBlock, 1)
	stage, err := NewBuilder(nil, rpc, fakeGenerator{}).WithOutbound(out).Build()
	require.NoError(t, err)
	assert.Equal(t, 1, stage.workerCount)
}

func TestStage_DispatchesBlocksInOrderUpToLatest(t *testing.T) {
	server := blockNumberServer(t, 2)
	defer server.Close()
	rpc, err := starknetrpc.Dial(context.Background(), server.URL)
	require.NoError(t, err)
	defer rpc.Close()

	out := make(chan types.NewBlock, 8)
	stage, err := NewBuilder(nil, rpc, fakeGenerator{}).
		WithWorkerCount(2).
		WithResumeBlock(0).
		WithOutbound(out).
		Build()
	require.NoError(t, err)
	stage.Start()

	var got []uint64
	timeout := time.After(3 * time.Second)
	for len(got) < 3 {
		select {
		case block := <-out:
			got = append(got, block.Number)
		case <-timeout:
			t.Fatalf("timed out waiting for blocks, got %v so far", got)
		}
	}

	assert.Equal(t, []uint64{0, 1, 2}, got)

	stage.ShutdownHandle().Shutdown()
	select {
	case <-stage.handle.Finished():
	case <-time.After(3 * time.Second):
		t.Fatal("stage did not finish after shutdown")
	}
}
