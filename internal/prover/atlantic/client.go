// Package atlantic is the shared HTTP client for the remote prover both
// the SNOS and layout-bridge provers submit to: multipart PIE/proof
// upload, job-size declaration, and status polling. It is intentionally
// the only place in the module that knows Atlantic's wire shapes — the
// core elsewhere only ever sees raw proof bytes and a query ID.
package atlantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sayaproofs/saya/internal/types"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"

	// httpClientTimeout is the per-request timeout spec's external
	// interfaces table specifies for prover HTTP calls.
	httpClientTimeout = 60 * time.Second
	// PollInterval is the cadence of atlantic-query-jobs / atlantic-query
	// status polling.
	PollInterval = 10 * time.Second
)

// ResultType selects what the remote prover computes for a submitted
// input.
type ResultType string

const (
	ResultProofGeneration       ResultType = "PROOF_GENERATION"
	ResultTraceGeneration       ResultType = "TRACE_GENERATION"
	ResultProofVerificationOnL2 ResultType = "PROOF_VERIFICATION_ON_L2"
)

// JobStatus is the job-level status atlantic-query-jobs reports.
type JobStatus string

const (
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// QueryStatus is the query-level status atlantic-query reports.
type QueryStatus string

const (
	QueryReceived   QueryStatus = "RECEIVED"
	QueryInProgress QueryStatus = "IN_PROGRESS"
	QueryDone       QueryStatus = "DONE"
	QueryFailed     QueryStatus = "FAILED"
)

// Client is the shared Atlantic HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New builds a Client against baseURL (spec's default is the staging
// endpoint; callers read it from config) authenticating with apiKey.
func New(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: httpClientTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// SubmitProofGenerationParams bundles the fields a SNOS or layout-bridge
// submission needs beyond the raw file payload.
type SubmitProofGenerationParams struct {
	// ExternalID is the caller-chosen label surfaced in Atlantic's
	// dashboard; the ingestor/prover uses "block-<n>" so queries are
	// greppable by the block they serve.
	ExternalID string
	Layout     string
	JobSize    JobSize
	Result     ResultType
	// ProgramFile is the compiled verifier program bytes the remote
	// prover compiles the input against. Only the layout-bridge
	// submission sets this; SNOS proving uses Atlantic's bundled OS
	// program and leaves it nil.
	ProgramFile []byte
}

// submitResponse is atlantic-query's POST response.
type submitResponse struct {
	AtlanticQueryID string `json:"atlanticQueryId"`
}

// SubmitPie uploads a CairoPie as the SNOS prover's pieFile input and
// returns the assigned query ID.
func (c *Client) SubmitPie(ctx context.Context, pie types.CairoPie, params SubmitProofGenerationParams) (string, error) {
	zipped, err := zipPie(pie)
	if err != nil {
		return "", err
	}
	return c.submitMultipart(ctx, "pieFile", "pie.zip", zipped, params)
}

// SubmitInputFile uploads an arbitrary JSON input file (the layout
// bridge prover's `{"proof": <raw>}` wrapper) and returns the assigned
// query ID.
func (c *Client) SubmitInputFile(ctx context.Context, filename string, data []byte, params SubmitProofGenerationParams) (string, error) {
	return c.submitMultipart(ctx, "inputFile", filename, data, params)
}

func (c *Client) submitMultipart(ctx context.Context, fileField, filename string, data []byte, params SubmitProofGenerationParams) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fw, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return "", fmt.Errorf("atlantic: create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return "", fmt.Errorf("atlantic: write form file: %w", err)
	}

	if len(params.ProgramFile) > 0 {
		pw, err := w.CreateFormFile("programFile", "program.json")
		if err != nil {
			return "", fmt.Errorf("atlantic: create program form file: %w", err)
		}
		if _, err := pw.Write(params.ProgramFile); err != nil {
			return "", fmt.Errorf("atlantic: write program form file: %w", err)
		}
	}

	fields := map[string]string{
		"layout":          params.Layout,
		"externalId":      params.ExternalID,
		"declaredJobSize": string(params.JobSize),
		"result":          string(params.Result),
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return "", fmt.Errorf("atlantic: write field %s: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("atlantic: close multipart writer: %w", err)
	}

	url := fmt.Sprintf("%s/atlantic-query?apiKey=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("atlantic: build request: %w", err)
	}
	req.Header.Set(headerContentType, w.FormDataContentType())

	var result submitResponse
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	return result.AtlanticQueryID, nil
}

// jobsResponse is atlantic-query-jobs's GET response.
type jobsResponse struct {
	Jobs []struct {
		JobName string    `json:"jobName"`
		Status  JobStatus `json:"status"`
	} `json:"jobs"`
}

// JobStatus polls atlantic-query-jobs/{id} and returns the status of the
// PROOF_GENERATION job specifically (the job of interest per spec).
func (c *Client) JobStatus(ctx context.Context, queryID string) (JobStatus, error) {
	url := fmt.Sprintf("%s/atlantic-query-jobs/%s", c.baseURL, queryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("atlantic: build request: %w", err)
	}

	var result jobsResponse
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	for _, job := range result.Jobs {
		if job.JobName == "PROOF_GENERATION" {
			return job.Status, nil
		}
	}
	return "", fmt.Errorf("atlantic: query %s has no PROOF_GENERATION job", queryID)
}

// queryResponse is atlantic-query/{id}'s GET response.
type queryResponse struct {
	AtlanticQuery struct {
		ID     string      `json:"id"`
		Status QueryStatus `json:"status"`
	} `json:"atlanticQuery"`
}

// QueryStatus polls the query-level status.
func (c *Client) QueryStatus(ctx context.Context, queryID string) (QueryStatus, error) {
	url := fmt.Sprintf("%s/atlantic-query/%s", c.baseURL, queryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("atlantic: build request: %w", err)
	}

	var result queryResponse
	if err := c.do(req, &result); err != nil {
		return "", err
	}
	return result.AtlanticQuery.Status, nil
}

// FetchProof downloads proof.json from the S3 artifact URL the given
// query ID published to.
func (c *Client) FetchProof(ctx context.Context, queryID string) ([]byte, error) {
	url := fmt.Sprintf("https://s3.pl-waw.scw.cloud/atlantic-k8s-experimental/queries/%s/proof.json", queryID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("atlantic: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("atlantic: fetch proof: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("atlantic: read proof body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, parseError(resp.StatusCode, body)
	}
	return body, nil
}

// do executes req, stamping it with a fresh correlation ID so a failed
// call can be matched against Atlantic-side request logs even though
// the query ID it would otherwise be tracked by isn't minted yet.
func (c *Client) do(req *http.Request, result any) error {
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("atlantic: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("atlantic: read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, body)
	}
	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("atlantic: parse response: %w", err)
		}
	}
	return nil
}
