package piltover

import (
	"context"
	"fmt"
	"time"

	"github.com/sayaproofs/saya/internal/felt"
	"github.com/sayaproofs/saya/internal/pipeline"
)

// ReceiptPollInterval is how often PollReceipt calls
// starknet_getTransactionReceipt while a settlement transaction is
// pending.
const ReceiptPollInterval = 2 * time.Second

// ReceiptStatus is the finality status a receipt poll observes.
type ReceiptStatus string

const (
	ReceiptSucceeded            ReceiptStatus = "SUCCEEDED"
	ReceiptReverted              ReceiptStatus = "REVERTED"
	ReceiptNotFound              ReceiptStatus = "NOT_FOUND" // TransactionHashNotFound: retry, not fatal
)

type receiptResponse struct {
	FinalityStatus    string `json:"finality_status"`
	ExecutionStatus   string `json:"execution_status"`
	RevertReason      string `json:"revert_reason"`
}

// pollOnce calls starknet_getTransactionReceipt once and classifies the
// result. TransactionHashNotFound surfaces as ReceiptNotFound rather
// than an error: the node may not have indexed the transaction yet,
// which PollReceipt treats as "keep polling."
func (c *Client) pollOnce(ctx context.Context, txHash felt.Felt) (ReceiptStatus, string, error) {
	var resp receiptResponse
	err := c.rpc.RawClient().CallContext(ctx, &resp, "starknet_getTransactionReceipt", txHash.Hex())
	if err != nil {
		if isTransactionHashNotFound(err) {
			return ReceiptNotFound, "", nil
		}
		return "", "", err
	}

	switch resp.ExecutionStatus {
	case "SUCCEEDED":
		return ReceiptSucceeded, "", nil
	case "REVERTED":
		return ReceiptReverted, resp.RevertReason, nil
	default:
		return ReceiptNotFound, "", nil
	}
}

// isTransactionHashNotFound recognizes the JSON-RPC error code 25
// (TXN_HASH_NOT_FOUND) Starknet nodes return for an unindexed hash.
func isTransactionHashNotFound(err error) bool {
	type rpcError interface {
		ErrorCode() int
	}
	rpcErr, ok := err.(rpcError)
	return ok && rpcErr.ErrorCode() == 25
}

// PollReceipt polls the receipt for txHash every ReceiptPollInterval
// until it settles: Succeeded returns nil, Reverted returns a fatal
// error, TransactionHashNotFound keeps retrying. It observes the
// stage's shutdown signal via handle so a pending settlement does not
// block process exit past the shutdown grace period.
func (c *Client) PollReceipt(handle *pipeline.FinishHandle, txHash felt.Felt) error {
	for {
		ctx, cancel := pipeline.Context(handle, context.Background())
		status, reason, err := c.pollOnce(ctx, txHash)
		cancel()
		if err != nil {
			return fmt.Errorf("piltover: poll receipt %s: %w", txHash.Hex(), err)
		}

		switch status {
		case ReceiptSucceeded:
			return nil
		case ReceiptReverted:
			return fmt.Errorf("piltover: transaction %s reverted: %s", txHash.Hex(), reason)
		case ReceiptNotFound:
			if err := pipeline.Sleep(handle, ReceiptPollInterval); err != nil {
				return err
			}
		}
	}
}
