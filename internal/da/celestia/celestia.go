// Package celestia implements da.Publisher against a Celestia
// light/bridge node's blob submission RPC. Namespace and blob
// construction are delegated to celestiaorg/go-square, the same share
// encoding celestia-app itself uses, so the locally computed commitment
// matches what the node returns; the JSON-RPC transport is intentionally
// narrow (submit a blob, get back a height) per the engine's rule that
// blob-submit internals beyond that contract stay out of the core.
package celestia

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/celestiaorg/go-square/v3/share"

	"github.com/sayaproofs/saya/internal/types"
)

// Config configures the node client.
type Config struct {
	RPC       string
	Token     string
	Namespace string // UTF-8 short string, non-empty; derives a v0 namespace
	KeyName   string
	Timeout   time.Duration
}

// Publisher submits DA packets as Celestia blobs over the node's
// blob.Submit JSON-RPC method.
type Publisher struct {
	httpClient *http.Client
	rpc        string
	token      string
	namespace  share.Namespace
	keyName    string
}

// New builds a Publisher from cfg, deriving a v0 namespace from
// cfg.Namespace via namespaceID (a sha256-based ID of the width
// go-square's v0 namespaces take).
func New(cfg Config) (*Publisher, error) {
	if cfg.Namespace == "" {
		return nil, fmt.Errorf("celestia: namespace must not be empty")
	}
	if cfg.RPC == "" {
		return nil, fmt.Errorf("celestia: rpc endpoint must not be empty")
	}

	id := namespaceID(cfg.Namespace)
	ns, err := share.NewV0Namespace(id)
	if err != nil {
		return nil, fmt.Errorf("celestia: derive namespace: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Publisher{
		httpClient: &http.Client{Timeout: timeout},
		rpc:        cfg.RPC,
		token:      cfg.Token,
		namespace:  ns,
		keyName:    cfg.KeyName,
	}, nil
}

// namespaceID derives the fixed-width namespace ID go-square's v0
// namespaces expect from an arbitrary non-empty UTF-8 string, by taking
// the trailing bytes of its sha256 digest — stable, collision-resistant,
// and independent of the configured string's length.
func namespaceID(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[len(sum)-share.NamespaceVersionZeroIDSize:]
}

type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type jsonrpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// blobSubmitParam is the wire shape blob.Submit expects for a single
// blob: base64 namespace, base64 data, a share version, and an optional
// signer address (omitted here). The signing key is chosen by the
// key_name option submit sends alongside the blobs, from cfg.KeyName.
type blobSubmitParam struct {
	Namespace    string `json:"namespace"`
	Data         string `json:"data"`
	ShareVersion int    `json:"share_version"`
}

// Publish submits packetCBOR as a single blob under the configured
// namespace and returns the DataAvailabilityPointer {height, commitment}
// the call produced.
func (p *Publisher) Publish(ctx context.Context, packetCBOR []byte) (types.DataAvailabilityPointer, error) {
	blob, err := share.NewBlob(p.namespace, packetCBOR, share.ShareVersionZero, nil)
	if err != nil {
		return types.DataAvailabilityPointer{}, fmt.Errorf("celestia: build blob: %w", err)
	}

	commitment, err := blob.CommitmentUsingSubtreeRootThreshold(share.SubtreeRootThreshold)
	if err != nil {
		return types.DataAvailabilityPointer{}, fmt.Errorf("celestia: compute commitment: %w", err)
	}

	height, err := p.submit(ctx, blob)
	if err != nil {
		return types.DataAvailabilityPointer{}, err
	}

	var commitmentArr [32]byte
	copy(commitmentArr[:], commitment)
	return types.DataAvailabilityPointer{Height: height, Commitment: commitmentArr}, nil
}

func (p *Publisher) submit(ctx context.Context, blob *share.Blob) (uint64, error) {
	param := blobSubmitParam{
		Namespace:    base64.StdEncoding.EncodeToString(p.namespace.Bytes()),
		Data:         base64.StdEncoding.EncodeToString(blob.Data()),
		ShareVersion: int(share.ShareVersionZero),
	}

	req := jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "blob.Submit",
		Params:  []any{[]blobSubmitParam{param}, map[string]string{"key_name": p.keyName}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("celestia: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.rpc, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("celestia: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("celestia: blob.Submit: %w", err)
	}
	defer resp.Body.Close()

	var rpcResp jsonrpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return 0, fmt.Errorf("celestia: decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return 0, fmt.Errorf("celestia: blob.Submit failed: %s", rpcResp.Error.Message)
	}

	var height uint64
	if err := json.Unmarshal(rpcResp.Result, &height); err != nil {
		return 0, fmt.Errorf("celestia: parse height: %w", err)
	}
	return height, nil
}
