package celestia

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsEmptyNamespaceOrRPC(t *testing.T) {
	_, err := New(Config{RPC: "http://x"})
	assert.Error(t, err)

	_, err = New(Config{Namespace: "saya"})
	assert.Error(t, err)
}

func TestNamespaceID_IsDeterministicAndFixedWidth(t *testing.T) {
	a := namespaceID("saya-rollup")
	b := namespaceID("saya-rollup")
	c := namespaceID("other")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestPublisher_Publish_ReturnsHeightAndCommitment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonrpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "blob.Submit", req.Method)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jsonrpcResponse{Result: json.RawMessage(`42`)})
	}))
	defer server.Close()

	p, err := New(Config{RPC: server.URL, Namespace: "saya-rollup", KeyName: "validator"})
	require.NoError(t, err)

	ptr, err := p.Publish(context.Background(), []byte("packet bytes"))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), ptr.Height)
	assert.NotEqual(t, [32]byte{}, ptr.Commitment)
}

func TestPublisher_Publish_ReturnsErrorOnRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jsonrpcResponse{Error: &struct {
			Message string `json:"message"`
		}{Message: "mempool full"}})
	}))
	defer server.Close()

	p, err := New(Config{RPC: server.URL, Namespace: "saya-rollup"})
	require.NoError(t, err)

	_, err = p.Publish(context.Background(), []byte("packet bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mempool full")
}
