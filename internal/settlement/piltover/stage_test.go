package piltover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sayaproofs/saya/internal/felt"
	"github.com/sayaproofs/saya/internal/starknetrpc"
	"github.com/sayaproofs/saya/internal/storage"
	"github.com/sayaproofs/saya/internal/storage/memstore"
	"github.com/sayaproofs/saya/internal/types"
)

type rpcCall struct {
	Method string          `json:"method"`
	ID     json.RawMessage `json:"id"`
}

// stubRPCServer answers the handful of starknet_* methods SendInvoke,
// EstimateFee, getNonce and PollReceipt need, enough to drive one
// settlement call through Stage.run end to end.
func stubRPCServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call rpcCall
		require.NoError(t, json.NewDecoder(r.Body).Decode(&call))

		var result json.RawMessage
		switch call.Method {
		case "starknet_getNonce":
			result = json.RawMessage(`"0x1"`)
		case "starknet_estimateFee":
			result = json.RawMessage(`[{"overall_fee":"0x100"}]`)
		case "starknet_addInvokeTransaction":
			result = json.RawMessage(`{"transaction_hash":"0xabc"}`)
		case "starknet_getTransactionReceipt":
			result = json.RawMessage(`{"finality_status":"ACCEPTED_ON_L2","execution_status":"SUCCEEDED"}`)
		default:
			t.Fatalf("unexpected method %s", call.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      call.ID,
			"result":  result,
		})
	}))
}

func TestStage_SettlesRecursiveProofEndToEnd(t *testing.T) {
	server := stubRPCServer(t)
	defer server.Close()

	rpc, err := starknetrpc.Dial(context.Background(), server.URL)
	require.NoError(t, err)
	defer rpc.Close()

	signer, err := NewLocalSigner("0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7d8b32a9dae4a6faf04", felt.FromUint64(1))
	require.NoError(t, err)

	client := New(rpc, signer, Config{PiltoverAddress: felt.FromUint64(5), SkipFactRegistration: true})
	store := memstore.New()

	in := make(chan types.DataAvailabilityCursor[types.RecursiveProof], 1)
	out := make(chan types.SettlementCursor, 1)

	stage, err := NewBuilder(nil, client, store).WithInbound(in).WithOutbound(out).Build()
	require.NoError(t, err)
	stage.Start()

	output := []felt.Felt{felt.FromUint64(1), felt.FromUint64(2)}
	in <- types.DataAvailabilityCursor[types.RecursiveProof]{
		BlockNumber: 9,
		FullPayload: types.RecursiveProof{
			BlockNumber:       9,
			SnosOutput:        output,
			LayoutBridgeProof: types.MockProofFromOutput(output),
		},
	}

	select {
	case settled := <-out:
		require.Equal(t, uint64(9), settled.BlockNumber)
	case <-time.After(3 * time.Second):
		t.Fatal("expected settlement cursor")
	}

	stage.ShutdownHandle().Shutdown()

	status, err := store.GetBlockStatus(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, storage.StatusSettled, status)
}
