package piltover

import (
	"context"
	"fmt"

	"github.com/sayaproofs/saya/internal/felt"
)

// resourceBound is one entry of a v3 invoke's resource_bounds map, per
// Starknet RPC's RESOURCE_BOUNDS_MAPPING.
type resourceBound struct {
	MaxAmount       string `json:"max_amount"`
	MaxPricePerUnit string `json:"max_price_per_unit"`
}

// invokeRequest is the BROADCASTED_INVOKE_TXN v3 shape.
type invokeRequest struct {
	Type                      string                   `json:"type"`
	SenderAddress             string                   `json:"sender_address"`
	Calldata                  []string                 `json:"calldata"`
	Version                   string                   `json:"version"`
	Signature                 []string                 `json:"signature"`
	Nonce                     string                   `json:"nonce"`
	ResourceBounds            map[string]resourceBound `json:"resource_bounds"`
	Tip                       string                   `json:"tip"`
	PaymasterData             []string                 `json:"paymaster_data"`
	AccountDeploymentData     []string                 `json:"account_deployment_data"`
	NonceDataAvailabilityMode string                   `json:"nonce_data_availability_mode"`
	FeeDataAvailabilityMode   string                   `json:"fee_data_availability_mode"`
}

func feltsToHex(xs []felt.Felt) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = x.Hex()
	}
	return out
}

func invokeTransactionRequest(call Call, sender felt.Felt, signature []felt.Felt, nonce uint64) invokeRequest {
	if signature == nil {
		signature = []felt.Felt{}
	}
	calldata := append([]felt.Felt{call.To, call.Selector}, call.Calldata...)
	return invokeRequest{
		Type:          "INVOKE",
		SenderAddress: sender.Hex(),
		Calldata:      feltsToHex(calldata),
		Version:       "0x3",
		Signature:     feltsToHex(signature),
		Nonce:         felt.FromUint64(nonce).Hex(),
		ResourceBounds: map[string]resourceBound{
			"l1_gas": {MaxAmount: "0x0", MaxPricePerUnit: "0x0"},
			"l2_gas": {MaxAmount: "0x0", MaxPricePerUnit: "0x0"},
		},
		Tip:                       "0x0",
		PaymasterData:             []string{},
		AccountDeploymentData:     []string{},
		NonceDataAvailabilityMode: "L1",
		FeeDataAvailabilityMode:   "L1",
	}
}

// getNonce calls starknet_getNonce for the signer's account against the
// pending block.
func (c *Client) getNonce(ctx context.Context) (uint64, error) {
	var result string
	if err := c.rpc.RawClient().CallContext(ctx, &result, "starknet_getNonce", "pending", c.signer.AccountAddress().Hex()); err != nil {
		return 0, fmt.Errorf("piltover: get nonce: %w", err)
	}
	f, err := felt.FromHex(result)
	if err != nil {
		return 0, fmt.Errorf("piltover: get nonce: %w", err)
	}
	return f.Big().Uint64(), nil
}

// SendInvoke signs and broadcasts call as a v3 invoke transaction,
// returning the resulting transaction hash.
func (c *Client) SendInvoke(ctx context.Context, call Call) (felt.Felt, error) {
	nonce, err := c.getNonce(ctx)
	if err != nil {
		return felt.Felt{}, err
	}

	signature, err := c.signer.Sign(ctx, call, nonce)
	if err != nil {
		return felt.Felt{}, fmt.Errorf("piltover: sign: %w", err)
	}

	signed := invokeTransactionRequest(call, c.signer.AccountAddress(), signature, nonce)

	var result struct {
		TransactionHash string `json:"transaction_hash"`
	}
	if err := c.rpc.RawClient().CallContext(ctx, &result, "starknet_addInvokeTransaction", signed); err != nil {
		return felt.Felt{}, fmt.Errorf("piltover: add invoke transaction: %w", err)
	}

	return felt.FromHex(result.TransactionHash)
}
