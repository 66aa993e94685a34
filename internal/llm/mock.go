package llm

import (
	"context"
	"sync"
)

// MockClient is a scriptable Client for tests.
type MockClient struct {
	mu        sync.Mutex
	name      string
	responses []mockResult
	calls     []CompletionRequest
}

type mockResult struct {
	resp *CompletionResponse
	err  error
}

// NewMockClient creates a mock backend with the given name.
func NewMockClient(name string) *MockClient {
	return &MockClient{name: name}
}

// QueueResponse appends a canned response. Responses are consumed in order;
// the last one repeats once the queue is exhausted.
func (m *MockClient) QueueResponse(resp *CompletionResponse) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResult{resp: resp})
	return m
}

// QueueError appends a canned error.
func (m *MockClient) QueueError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, mockResult{err: err})
	return m
}

// Complete returns the next queued response.
func (m *MockClient) Complete(_ context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if len(m.responses) == 0 {
		return &CompletionResponse{Content: "ok", Model: m.name}, nil
	}

	next := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return next.resp, next.err
}

// Name returns the mock backend name.
func (m *MockClient) Name() string {
	return m.name
}

// Calls returns the requests received so far.
func (m *MockClient) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}
