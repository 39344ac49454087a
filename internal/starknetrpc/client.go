// Package starknetrpc is a narrow Starknet JSON-RPC v0.7.1 client. It
// reuses go-ethereum's rpc.Client as a transport, the same way the
// teacher's ethereum package treats go-ethereum as a JSON-RPC/ABI
// toolbox rather than an Ethereum-only library: rpc.Client's
// CallContext is method-name agnostic, so it carries Starknet's
// non-Ethereum method set just as well.
package starknetrpc

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
)

// Client is the rollup RPC surface the ingestor and settlement backend
// need: the latest block number and the chain ID.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a Starknet JSON-RPC endpoint, normalising the URL by
// stripping a trailing "/rpc/v0_7" path segment some gateways append
// redundantly to their base URL.
func Dial(ctx context.Context, url string) (*Client, error) {
	url = normalizeURL(url)
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("starknetrpc: dial %s: %w", url, err)
	}
	return &Client{rpc: c}, nil
}

func normalizeURL(url string) string {
	return strings.TrimSuffix(strings.TrimSuffix(url, "/"), "/rpc/v0_7")
}

// RawClient exposes the underlying rpc.Client for callers (the
// settlement backend) that need to invoke additional Starknet methods
// this package doesn't wrap directly.
func (c *Client) RawClient() *rpc.Client { return c.rpc }

// BlockNumber calls starknet_blockNumber.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var result uint64
	if err := c.rpc.CallContext(ctx, &result, "starknet_blockNumber"); err != nil {
		return 0, fmt.Errorf("starknetrpc: blockNumber: %w", err)
	}
	return result, nil
}

// ChainID calls starknet_chainId.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	var result string
	if err := c.rpc.CallContext(ctx, &result, "starknet_chainId"); err != nil {
		return "", fmt.Errorf("starknetrpc: chainId: %w", err)
	}
	return result, nil
}

// Close releases the underlying connection.
func (c *Client) Close() { c.rpc.Close() }
