// Package llm provides the chat completion client stack: an
// OpenAI-compatible HTTP client, a failover wrapper that retries on a
// reserve credential, and the model set the graph nodes draw from.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ai2b/zena/internal/domain"
)

// ToolDefinition describes a tool the model can invoke.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema string `json:"inputSchema"` // JSON Schema string
}

// CompletionRequest is the input to a Complete call.
type CompletionRequest struct {
	Model       string           `json:"model,omitempty"`
	Messages    []domain.Message `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	MaxTokens   int              `json:"maxTokens,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
}

// CompletionResponse is the result of a completion.
type CompletionResponse struct {
	Content    string            `json:"content"`
	ToolCalls  []domain.ToolCall `json:"toolCalls,omitempty"`
	StopReason string            `json:"stopReason,omitempty"`
	Usage      Usage             `json:"usage"`
	Model      string            `json:"model,omitempty"`
	Duration   time.Duration     `json:"duration,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Add accumulates another usage into this one.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Client is the interface completion backends implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the backend name for logs and metrics.
	Name() string
}

// ProviderError is an HTTP-level error from a completion backend.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (%d): %s", e.Code, e.Message)
}
