// Package client is a thin JSON-RPC client for a fullnode, promoted from
// the teacher's test suite's rpcCall helper into a reusable type the load
// driver and any external tooling can depend on directly.
package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tolelom/fullnode/core"
	"github.com/tolelom/fullnode/crypto"
)

// Client talks to a single fullnode's RPC endpoint over HTTP.
type Client struct {
	url       string
	authToken string
	http      *http.Client
}

// New creates a Client targeting the given RPC URL (e.g. "http://host:port/").
func New(url, authToken string) *Client {
	return &Client{url: url, authToken: authToken, http: &http.Client{Timeout: 10 * time.Second}}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// call performs a single JSON-RPC round trip and decodes result into out
// (which may be nil if the caller doesn't need the result).
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("client: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s: %w", method, err)
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("client: %s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("client: %s: rpc error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(rpcResp.Result, out)
}

// GetTransactionCount returns the ledger's current entry count.
func (c *Client) GetTransactionCount(ctx context.Context) (int64, error) {
	var n int64
	err := c.call(ctx, "getTransactionCount", struct{}{}, &n)
	return n, err
}

// GetBalance returns pub's current account balance.
func (c *Client) GetBalance(ctx context.Context, pub crypto.PublicKey) (uint64, error) {
	var out struct {
		Balance uint64 `json:"balance"`
	}
	err := c.call(ctx, "getBalance", map[string]string{"pubkey": pub.Hex()}, &out)
	return out.Balance, err
}

// GetLastID returns the ledger tip's id, the value new transactions
// should stamp as their LastID.
func (c *Client) GetLastID(ctx context.Context) (crypto.Digest, error) {
	var out struct {
		LastID string `json:"last_id"`
	}
	if err := c.call(ctx, "getLastId", struct{}{}, &out); err != nil {
		return crypto.Digest{}, err
	}
	return crypto.DigestFromHex(out.LastID)
}

// SendTransaction submits a signed transaction and returns its signature.
func (c *Client) SendTransaction(ctx context.Context, tx *core.Transaction) (crypto.Digest, error) {
	var out struct {
		Signature string `json:"signature"`
	}
	params := map[string]string{"data": hex.EncodeToString(tx.Encode())}
	if err := c.call(ctx, "sendTransaction", params, &out); err != nil {
		return crypto.Digest{}, err
	}
	return crypto.DigestFromHex(out.Signature)
}

// SignatureStatus reports a transaction signature's current status:
// "pending", "confirmed", or "unknown".
func (c *Client) SignatureStatus(ctx context.Context, sig crypto.Digest) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	err := c.call(ctx, "getSignatureStatus", map[string]string{"signature": sig.String()}, &out)
	return out.Status, err
}

// RequestAirdrop asks the node to credit amount to pub directly (a
// trusted operation; see bank.Executor.Credit). Used by the load driver's
// airdrop-funding step (spec.md §4.6).
func (c *Client) RequestAirdrop(ctx context.Context, pub crypto.PublicKey, amount uint64) error {
	return c.call(ctx, "requestAirdrop", map[string]any{"pubkey": pub.Hex(), "amount": amount}, nil)
}

// GetMempoolSize returns the node's current pending-transaction count.
func (c *Client) GetMempoolSize(ctx context.Context) (int, error) {
	var n int
	err := c.call(ctx, "getMempoolSize", struct{}{}, &n)
	return n, err
}
