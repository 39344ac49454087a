package piltover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sayaproofs/saya/internal/felt"
	"github.com/sayaproofs/saya/internal/pipeline"
	"github.com/sayaproofs/saya/internal/starknetrpc"
)

func receiptServer(t *testing.T, executionStatus, revertReason string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result, err := json.Marshal(map[string]string{
			"finality_status":  "ACCEPTED_ON_L2",
			"execution_status": executionStatus,
			"revert_reason":    revertReason,
		})
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  json.RawMessage(result),
		})
	}))
}

func TestPollOnce_SucceededStatus(t *testing.T) {
	server := receiptServer(t, "SUCCEEDED", "")
	defer server.Close()

	rpc, err := starknetrpc.Dial(context.Background(), server.URL)
	require.NoError(t, err)
	defer rpc.Close()

	c := New(rpc, nil, Config{})
	status, reason, err := c.pollOnce(context.Background(), felt.FromUint64(1))
	require.NoError(t, err)
	assert.Equal(t, ReceiptSucceeded, status)
	assert.Empty(t, reason)
}

func TestPollOnce_RevertedStatusCarriesReason(t *testing.T) {
	server := receiptServer(t, "REVERTED", "insufficient balance")
	defer server.Close()

	rpc, err := starknetrpc.Dial(context.Background(), server.URL)
	require.NoError(t, err)
	defer rpc.Close()

	c := New(rpc, nil, Config{})
	status, reason, err := c.pollOnce(context.Background(), felt.FromUint64(1))
	require.NoError(t, err)
	assert.Equal(t, ReceiptReverted, status)
	assert.Equal(t, "insufficient balance", reason)
}

func TestPollReceipt_ReturnsNilOnSucceeded(t *testing.T) {
	server := receiptServer(t, "SUCCEEDED", "")
	defer server.Close()

	rpc, err := starknetrpc.Dial(context.Background(), server.URL)
	require.NoError(t, err)
	defer rpc.Close()

	c := New(rpc, nil, Config{})
	require.NoError(t, c.PollReceipt(pipeline.NewFinishHandle(), felt.FromUint64(1)))
}

func TestPollReceipt_ErrorsOnReverted(t *testing.T) {
	server := receiptServer(t, "REVERTED", "oops")
	defer server.Close()

	rpc, err := starknetrpc.Dial(context.Background(), server.URL)
	require.NoError(t, err)
	defer rpc.Close()

	c := New(rpc, nil, Config{})
	err = c.PollReceipt(pipeline.NewFinishHandle(), felt.FromUint64(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverted: oops")
}
