// Package mcp talks JSON-RPC to the per-persona MCP tool servers.
// Each persona binds its own port on the docker bridge; a few ports run
// older server builds with slightly different wire conventions, handled
// by the backend flavor.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ai2b/zena/internal/logging"
)

// Tool describes a tool exposed by an MCP server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Backend is the tool surface a dialog graph consumes. *Client is the real
// implementation.
type Backend interface {
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, arguments json.RawMessage) (string, error)
}

// Client is a JSON-RPC 2.0 client for one persona's MCP server.
type Client struct {
	endpoint string
	flavor   Flavor
	client   *http.Client
	log      *logging.Logger

	// One client is shared by every concurrent invocation of a persona's
	// graphs, so request IDs are handed out atomically.
	nextID atomic.Int64
}

// NewClient creates a client for the MCP server at host:port. The wire
// flavor is derived from the port. Pass nil for a default http.Client.
func NewClient(host string, port int, httpClient *http.Client, log *logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint: fmt.Sprintf("http://%s:%d/mcp", host, port),
		flavor:   FlavorForPort(port),
		client:   httpClient,
		log:      log.Sub("mcp").With("endpoint", fmt.Sprintf("%s:%d", host, port)),
	}
}

// Flavor returns the wire flavor this client speaks.
func (c *Client) Flavor() Flavor {
	return c.flavor
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call performs one JSON-RPC round trip.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      int(c.nextID.Add(1)),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request: %w", method, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("mcp call %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mcp call %s: status %d: %s", method, resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

// ListTools fetches the tool catalog from the server.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	result, err := c.call(ctx, c.flavor.listMethod(), nil)
	if err != nil {
		return nil, err
	}

	var listing struct {
		Tools []Tool `json:"tools"`
	}
	if err := json.Unmarshal(result, &listing); err != nil {
		return nil, fmt.Errorf("parsing tool listing: %w", err)
	}

	c.log.Debug().Int("tools", len(listing.Tools)).Msg("tool catalog fetched")
	return listing.Tools, nil
}

// CallTool invokes a tool and returns its text output. Multiple content
// blocks are joined with newlines.
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (string, error) {
	result, err := c.call(ctx, c.flavor.callMethod(), c.flavor.callParams(name, arguments))
	if err != nil {
		return "", err
	}

	var callResult struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError,omitempty"`
	}
	if err := json.Unmarshal(result, &callResult); err != nil {
		return "", fmt.Errorf("parsing tool result: %w", err)
	}

	var parts []string
	for _, block := range callResult.Content {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.Join(parts, "\n")

	if callResult.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, text)
	}
	return text, nil
}
