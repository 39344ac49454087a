package atlantic

import (
	"context"
	"fmt"

	"github.com/sayaproofs/saya/internal/pipeline"
)

// AwaitProof polls queryID's job status every PollInterval until it
// reaches a terminal state, then fetches and returns the raw proof
// bytes. Cancellation (via handle) returns pipeline's shutdown error so
// callers can exit their run loop cleanly instead of treating it as a
// prover failure.
func (c *Client) AwaitProof(ctx context.Context, handle *pipeline.FinishHandle, queryID string) ([]byte, error) {
	for {
		status, err := c.JobStatus(ctx, queryID)
		if err != nil {
			return nil, fmt.Errorf("atlantic: poll job status: %w", err)
		}

		switch status {
		case JobCompleted:
			proof, err := c.FetchProof(ctx, queryID)
			if err != nil {
				return nil, fmt.Errorf("atlantic: fetch completed proof: %w", err)
			}
			return proof, nil
		case JobFailed:
			return nil, fmt.Errorf("atlantic: query %s: remote job failed", queryID)
		}

		if err := pipeline.Sleep(handle, PollInterval); err != nil {
			return nil, err
		}
	}
}
