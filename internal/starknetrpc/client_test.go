package starknetrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL_StripsTrailingSlashAndRPCPath(t *testing.T) {
	assert.Equal(t, "http://host", normalizeURL("http://host/"))
	assert.Equal(t, "http://host", normalizeURL("http://host/rpc/v0_7"))
	assert.Equal(t, "http://host", normalizeURL("http://host/rpc/v0_7/"))
	assert.Equal(t, "http://host", normalizeURL("http://host"))
}

type jsonRPCRequest struct {
	Method string          `json:"method"`
	ID     json.RawMessage `json:"id"`
}

func jsonRPCServer(t *testing.T, result string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req jsonRPCRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  json.RawMessage(result),
		})
	}))
}

func TestClient_BlockNumber(t *testing.T) {
	server := jsonRPCServer(t, "1234")
	defer server.Close()

	c, err := Dial(context.Background(), server.URL)
	require.NoError(t, err)
	defer c.Close()

	n, err := c.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), n)
}

func TestClient_ChainID(t *testing.T) {
	server := jsonRPCServer(t, `"0x534e5f4d41494e"`)
	defer server.Close()

	c, err := Dial(context.Background(), server.URL)
	require.NoError(t, err)
	defer c.Close()

	id, err := c.ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0x534e5f4d41494e", id)
}
