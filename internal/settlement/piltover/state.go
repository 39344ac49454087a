package piltover

import (
	"context"
	"fmt"

	"github.com/sayaproofs/saya/internal/felt"
)

// selectorGetState is the selector for piltover's get_state view, the
// read-only counterpart to update_state.
var selectorGetState = mustFelt("0x00382a967a31fd78ccb4d91d0d5303b1a9e3861a7bf8b27c9df9b62f5dbe8c9d")

// State is piltover's on-chain view, as returned by get_state.
type State struct {
	StateRoot   felt.Felt
	BlockNumber uint64
	BlockHash   felt.Felt
}

// GetState reads the contract's current state via starknet_call against
// the latest block.
func (c *Client) GetState(ctx context.Context) (State, error) {
	call := Call{To: c.cfg.PiltoverAddress, Selector: selectorGetState}
	req := map[string]any{
		"contract_address": call.To.Hex(),
		"entry_point_selector": call.Selector.Hex(),
		"calldata":          []string{},
	}

	var result []string
	if err := c.rpc.RawClient().CallContext(ctx, &result, "starknet_call", req, "latest"); err != nil {
		return State{}, fmt.Errorf("piltover: get_state: %w", err)
	}
	if len(result) < 3 {
		return State{}, fmt.Errorf("piltover: get_state: expected 3 return values, got %d", len(result))
	}

	stateRoot, err := felt.FromHex(result[0])
	if err != nil {
		return State{}, fmt.Errorf("piltover: get_state: state_root: %w", err)
	}
	blockNumberFelt, err := felt.FromHex(result[1])
	if err != nil {
		return State{}, fmt.Errorf("piltover: get_state: block_number: %w", err)
	}
	blockHash, err := felt.FromHex(result[2])
	if err != nil {
		return State{}, fmt.Errorf("piltover: get_state: block_hash: %w", err)
	}

	return State{
		StateRoot:   stateRoot,
		BlockNumber: blockNumberFelt.Big().Uint64(),
		BlockHash:   blockHash,
	}, nil
}

// GetBlockNumber returns the next block the settlement backend should
// produce for: state.block_number + 1, with wrap-around tolerance for
// the genesis sentinel. Before the first update_state call ever lands,
// piltover's storage slot for state_root reads as the felt zero value;
// treat that as "unset" and start from block 0 rather than trusting
// whatever block_number accompanies it (which may itself wrap to
// u64::MAX in the underlying Cairo storage layout).
func (c *Client) GetBlockNumber(ctx context.Context) (uint64, error) {
	state, err := c.GetState(ctx)
	if err != nil {
		return 0, err
	}
	if state.StateRoot.Big().Sign() == 0 {
		return 0, nil
	}
	return state.BlockNumber + 1, nil
}
