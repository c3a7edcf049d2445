// Package hive implements a minimal Hive blockchain JSON-RPC client: node
// failover, account/RC lookups, and condenser_api transaction broadcast.
// The RPC transport is grounded on
// src/chainadapter/rpc/http.go's HTTPRPCClient (round-robin endpoint
// selection, one JSON-RPC envelope per call, wrap-all-endpoints-failed);
// no pack example talks to a Hive node, so the wire format (operation and
// transaction binary layout) in transaction.go and ops.go is hand-built
// from the public graphene/Hive protocol rather than grounded on any
// example file.
package hive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
)

const defaultTimeout = 10 * time.Second

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int64       `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error,omitempty"`
}

// Client is a failover JSON-RPC client over a set of Hive API nodes.
type Client struct {
	endpoints []string
	http      *http.Client
	reqID     atomic.Int64

	mu  sync.Mutex
	idx int
}

func NewClient(endpoints []string) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("hive: at least one node endpoint is required")
	}
	return &Client{
		endpoints: endpoints,
		http:      &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Call tries every configured node in round-robin order until one answers
// successfully, returning the raw JSON-RPC result.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	var lastErr error
	c.mu.Lock()
	start := c.idx
	c.mu.Unlock()

	for i := 0; i < len(c.endpoints); i++ {
		endpoint := c.endpoints[(start+i)%len(c.endpoints)]
		result, err := c.callOne(ctx, endpoint, method, params)
		if err == nil {
			c.mu.Lock()
			c.idx = (start + i + 1) % len(c.endpoints)
			c.mu.Unlock()
			return result, nil
		}
		lastErr = err
	}
	return nil, gatewayerr.New(gatewayerr.ExternalUnavailable, "all hive nodes failed", lastErr)
}

func (c *Client) callOne(ctx context.Context, endpoint, method string, params interface{}) (json.RawMessage, error) {
	reqID := c.reqID.Add(1)
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: reqID, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: http %d: %s", endpoint, resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("%s: rpc error %d: %s", endpoint, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}
