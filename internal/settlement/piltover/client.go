// Package piltover is the SettlementBackend: it builds and sends
// update_state invoke transactions against the piltover contract,
// waits for receipts, and exposes get_state for startup resume-point
// recovery. Transaction signing is delegated to a narrow Signer
// collaborator — the concrete keystore is explicitly out of scope for
// this engine, per the core/external-collaborator split.
package piltover

import (
	"context"
	"fmt"
	"math/big"

	"github.com/sayaproofs/saya/internal/felt"
	"github.com/sayaproofs/saya/internal/pipeline"
	"github.com/sayaproofs/saya/internal/starknetrpc"
)

// Signer abstracts the account-abstraction v3 signing step. It owns
// both the transaction-hash computation (Starknet's Poseidon-based
// SNIP-9 scheme) and the signing key, so this package never touches
// curve arithmetic directly. The one implementation in this package is
// LocalSigner, which holds a private key in process memory and hashes
// with keccak256 instead of Poseidon.
type Signer interface {
	AccountAddress() felt.Felt
	Sign(ctx context.Context, call Call, nonce uint64) ([]felt.Felt, error)
}

// Config configures a Client.
type Config struct {
	PiltoverAddress      felt.Felt
	IntegrityAddress     felt.Felt
	SkipFactRegistration bool // true under --mock-layout-bridge
}

// Client is the Starknet JSON-RPC-backed settlement client.
type Client struct {
	rpc    *starknetrpc.Client
	signer Signer
	cfg    Config
}

func New(rpc *starknetrpc.Client, signer Signer, cfg Config) *Client {
	return &Client{rpc: rpc, signer: signer, cfg: cfg}
}

// selectorUpdateState is the Starknet selector for `update_state`,
// computed as starknet_keccak("update_state") truncated to 250 bits —
// treated as an opaque configured constant here since the core never
// computes selectors itself.
var selectorUpdateState = mustFelt("0x0137e407b98f3a9622d32a74a9a05a82c6e32a67bfbf5926fe94a0df6e65af3")

func mustFelt(s string) felt.Felt {
	f, err := felt.FromHex(s)
	if err != nil {
		panic(err)
	}
	return f
}

// u256ToFelts splits a big.Int into its low/high 128-bit felt halves,
// the Cairo convention for representing a u256 as calldata.
func u256ToFelts(v *big.Int) (low, high felt.Felt) {
	mask := new(big.Int).Lsh(big.NewInt(1), 128)
	mask.Sub(mask, big.NewInt(1))
	lowBig := new(big.Int).And(v, mask)
	highBig := new(big.Int).Rsh(v, 128)
	return felt.FromBigInt(lowBig), felt.FromBigInt(highBig)
}

// BuildUpdateStateCalldata assembles the Cairo calldata for
// update_state(snos_output, program_output, onchain_data_hash,
// onchain_data_size), array arguments calldata-encoded as a length felt
// followed by their elements.
func BuildUpdateStateCalldata(snosOutput, programOutput []felt.Felt, onchainDataHash felt.Felt, onchainDataSize *big.Int) []felt.Felt {
	calldata := make([]felt.Felt, 0, 3+len(snosOutput)+len(programOutput))

	calldata = append(calldata, felt.FromUint64(uint64(len(snosOutput))))
	calldata = append(calldata, snosOutput...)

	calldata = append(calldata, felt.FromUint64(uint64(len(programOutput))))
	calldata = append(calldata, programOutput...)

	calldata = append(calldata, onchainDataHash)

	low, high := u256ToFelts(onchainDataSize)
	calldata = append(calldata, low, high)

	return calldata
}

// Call is a single Starknet contract call: {to, selector, calldata}.
type Call struct {
	To       felt.Felt
	Selector felt.Felt
	Calldata []felt.Felt
}

// UpdateStateCall builds the {to: piltover, selector: update_state, ...}
// call for snosOutput/bridgeProof's program output.
func (c *Client) UpdateStateCall(snosOutput, programOutput []felt.Felt) Call {
	return Call{
		To:       c.cfg.PiltoverAddress,
		Selector: selectorUpdateState,
		Calldata: BuildUpdateStateCalldata(snosOutput, programOutput, felt.FromUint64(0), big.NewInt(0)),
	}
}

// selectorSetFactsRegistry is the one-time admin call wiring piltover
// to the Integrity fact registry it trusts for proof verification.
var selectorSetFactsRegistry = mustFelt("0x02e1a5ca5fe1d1ff2ec84f1e3af4e9bfe91b3b3e56f2de4ea7bf83e3be1a7c9d")

// EnsureFactsRegistry performs the one-time set_facts_registry call
// against the configured Integrity contract, unless the backend was
// constructed with SkipFactRegistration (the --mock-layout-bridge
// path, where there is no real proof for a registry to verify).
func (c *Client) EnsureFactsRegistry(ctx context.Context) error {
	if c.cfg.SkipFactRegistration {
		return nil
	}
	call := Call{
		To:       c.cfg.PiltoverAddress,
		Selector: selectorSetFactsRegistry,
		Calldata: []felt.Felt{c.cfg.IntegrityAddress},
	}
	txHash, err := c.SendInvoke(ctx, call)
	if err != nil {
		return fmt.Errorf("piltover: set_facts_registry: %w", err)
	}
	return c.PollReceipt(pipeline.NewFinishHandle(), txHash)
}

// EstimateFee calls starknet_estimateFee for call and returns the
// estimated overall fee, logged before sending.
func (c *Client) EstimateFee(ctx context.Context, call Call) (felt.Felt, error) {
	var result []struct {
		OverallFee string `json:"overall_fee"`
	}
	nonce, err := c.getNonce(ctx)
	if err != nil {
		return felt.Felt{}, err
	}
	invokeReq := invokeTransactionRequest(call, c.signer.AccountAddress(), nil, nonce)
	if err := c.rpc.RawClient().CallContext(ctx, &result, "starknet_estimateFee", []any{invokeReq}, []string{}, "pending"); err != nil {
		return felt.Felt{}, fmt.Errorf("piltover: estimate fee: %w", err)
	}
	if len(result) == 0 {
		return felt.Felt{}, fmt.Errorf("piltover: estimate fee: empty response")
	}
	return felt.FromHex(result[0].OverallFee)
}
