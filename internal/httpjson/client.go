// Package httpjson is the shared REST/JSON fetch helper used by every chain
// poller and the pricing oracle. It generalizes the teacher toolkit's
// rpc.HTTPRPCClient (src/chainadapter/rpc/http.go) — same 10-second
// budget — from JSON-RPC POST envelopes to plain REST GET calls against
// the various block explorer APIs. Each call goes to the one URL it is
// given; there is no multi-endpoint failover here.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hiveonboard/gateway/internal/gatewayerr"
)

// Timeout is the outbound HTTP budget spec §5 mandates for every call.
const Timeout = 10 * time.Second

// Client is a thin *http.Client wrapper that classifies failures into the
// gateway's error taxonomy so pollers can distinguish "retry next tick"
// from "this data will never arrive."
type Client struct {
	http *http.Client
}

func New() *Client {
	return &Client{http: &http.Client{Timeout: Timeout}}
}

// GetJSON issues a GET request and decodes the response body into out.
// Network failures, timeouts, and 5xx responses are ExternalUnavailable;
// 404 is NotFound; other 4xx responses are NonRetryable-shaped as
// InputValidation since they
// usually mean a malformed request (bad address, bad hash) rather than a
// transient chain problem.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "build request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gatewayerr.New(gatewayerr.ExternalUnavailable, fmt.Sprintf("GET %s failed", url), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gatewayerr.New(gatewayerr.ExternalUnavailable, "read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return gatewayerr.New(gatewayerr.NotFound, "resource not found", nil)
	case resp.StatusCode >= 500:
		return gatewayerr.Newf(gatewayerr.ExternalUnavailable, nil, "GET %s: HTTP %d", url, resp.StatusCode)
	case resp.StatusCode >= 400:
		return gatewayerr.Newf(gatewayerr.InputValidation, nil, "GET %s: HTTP %d: %s", url, resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return gatewayerr.New(gatewayerr.ExternalUnavailable, "decode response", err)
	}
	return nil
}

// PostJSON issues a POST with a JSON-encoded body and decodes the response
// into out, for JSON-RPC style endpoints (Alchemy's eth_gasPrice) rather
// than the query-string REST calls GetJSON targets.
func (c *Client) PostJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	encoded, err := json.Marshal(body)
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "encode request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return gatewayerr.New(gatewayerr.Internal, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return gatewayerr.New(gatewayerr.ExternalUnavailable, fmt.Sprintf("POST %s failed", url), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gatewayerr.New(gatewayerr.ExternalUnavailable, "read response body", err)
	}
	if resp.StatusCode >= 500 {
		return gatewayerr.Newf(gatewayerr.ExternalUnavailable, nil, "POST %s: HTTP %d", url, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return gatewayerr.Newf(gatewayerr.InputValidation, nil, "POST %s: HTTP %d: %s", url, resp.StatusCode, string(respBody))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return gatewayerr.New(gatewayerr.ExternalUnavailable, "decode response", err)
	}
	return nil
}

// GetRaw issues a GET like GetJSON but returns the undecoded body, for the
// rare endpoint (Blockstream's tip-height) that replies with a bare scalar
// rather than a JSON document. Unlike GetJSON it reports every status of
// 400 or above, 404 included, as ExternalUnavailable.
func (c *Client) GetRaw(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "build request", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.ExternalUnavailable, fmt.Sprintf("GET %s failed", url), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.ExternalUnavailable, "read response body", err)
	}
	if resp.StatusCode >= 400 {
		return nil, gatewayerr.Newf(gatewayerr.ExternalUnavailable, nil, "GET %s: HTTP %d", url, resp.StatusCode)
	}
	return body, nil
}

// PostRaw issues a POST with a plain-text body and returns the undecoded
// response body, for endpoints like Blockstream's raw transaction push that
// take and return bare text rather than a JSON envelope.
func (c *Client) PostRaw(ctx context.Context, url string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.Internal, "build request", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.ExternalUnavailable, fmt.Sprintf("POST %s failed", url), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gatewayerr.New(gatewayerr.ExternalUnavailable, "read response body", err)
	}
	if resp.StatusCode >= 400 {
		return nil, gatewayerr.Newf(gatewayerr.ExternalUnavailable, nil, "POST %s: HTTP %d: %s", url, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
