package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai2b/zena/internal/domain"
	"github.com/ai2b/zena/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(nil, "silent")
}

func TestOpenAIClientComplete(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-1",
			"model": "mini-1",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "Привет!"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "sk-test", "mini-1", nil)
	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []domain.Message{domain.User("привет")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "mini-1", gotBody["model"])
	assert.Equal(t, "Привет!", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 12, resp.Usage.InputTokens)
	assert.Equal(t, 3, resp.Usage.OutputTokens)
}

func TestOpenAIClientToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"model": "mini-1",
			"choices": []map[string]any{{
				"message": map[string]any{
					"role":    "assistant",
					"content": "",
					"tool_calls": []map[string]any{{
						"id":   "call-1",
						"type": "function",
						"function": map[string]any{
							"name":      "zena_product_search",
							"arguments": `{"query": "маникюр"}`,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
		})
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "sk-test", "mini-1", nil)
	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []domain.Message{domain.User("хочу маникюр")},
		Tools: []ToolDefinition{{
			Name:        "zena_product_search",
			Description: "search products",
			InputSchema: `{"type":"object","properties":{"query":{"type":"string"}}}`,
		}},
	})
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call-1", resp.ToolCalls[0].ID)
	assert.Equal(t, "zena_product_search", resp.ToolCalls[0].Name)
	assert.Contains(t, resp.ToolCalls[0].Arguments, "маникюр")
}

func TestOpenAIClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOpenAIClient(srv.URL, "sk-test", "mini-1", nil)
	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []domain.Message{domain.User("hi")},
	})
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusTooManyRequests, provErr.Code)
}

func TestFailoverOnRetryableError(t *testing.T) {
	primary := NewMockClient("primary")
	primary.QueueError(&ProviderError{Code: 429, Message: "rate limited"})
	reserve := NewMockClient("reserve")
	reserve.QueueResponse(&CompletionResponse{Content: "from reserve"})

	fc := NewFailoverClient(primary, []Client{reserve}, testLogger())
	resp, err := fc.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "from reserve", resp.Content)
	assert.Len(t, reserve.Calls(), 1)
}

func TestFailoverStopsOnNonRetryable(t *testing.T) {
	primary := NewMockClient("primary")
	primary.QueueError(errors.New("invalid request body"))
	reserve := NewMockClient("reserve")

	fc := NewFailoverClient(primary, []Client{reserve}, testLogger())
	_, err := fc.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.Empty(t, reserve.Calls())
}

func TestFailoverExhausted(t *testing.T) {
	primary := NewMockClient("primary")
	primary.QueueError(&ProviderError{Code: 503, Message: "down"})
	reserve := NewMockClient("reserve")
	reserve.QueueError(&ProviderError{Code: 503, Message: "also down"})

	fc := NewFailoverClient(primary, []Client{reserve}, testLogger())
	_, err := fc.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, 503, provErr.Code)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&ProviderError{Code: 429}))
	assert.True(t, isRetryable(&ProviderError{Code: 503}))
	assert.True(t, isRetryable(errors.New("connection timeout")))
	assert.True(t, isRetryable(errors.New("server overloaded")))
	assert.False(t, isRetryable(&ProviderError{Code: 404}))
	assert.False(t, isRetryable(errors.New("bad schema")))
	assert.False(t, isRetryable(nil))
}

func TestEstimateText(t *testing.T) {
	assert.Equal(t, 0, EstimateText(""))
	assert.Equal(t, 1, EstimateText("hi"))
	assert.Equal(t, 10, EstimateText("0123456789012345678901234567890123456789"))
	// Cyrillic counts runes, not bytes
	assert.Equal(t, 2, EstimateText("привет, мир"))
}

func TestUsageOrEstimate(t *testing.T) {
	req := CompletionRequest{Messages: []domain.Message{domain.User("hello world, this is a test")}}

	reported := &CompletionResponse{Content: "ok", Usage: Usage{InputTokens: 10, OutputTokens: 5}}
	u := UsageOrEstimate(reported, req)
	assert.Equal(t, 10, u.InputTokens)
	assert.Equal(t, 5, u.OutputTokens)

	missing := &CompletionResponse{Content: "a longer answer than before"}
	u = UsageOrEstimate(missing, req)
	assert.Greater(t, u.InputTokens, 0)
	assert.Greater(t, u.OutputTokens, 0)
}
