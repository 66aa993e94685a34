package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/ai2b/zena/internal/logging"
	"github.com/ai2b/zena/internal/metrics"
)

// FailoverClient tries a primary client first, then falls back through the
// list on retryable errors. The usual arrangement is the mini model on the
// main API key backed by the same model on the reserve key.
type FailoverClient struct {
	primary   Client
	fallbacks []Client
	log       *logging.Logger
}

// NewFailoverClient creates a client that tries primary first, then the
// fallbacks in order on retryable errors (429, 5xx, overload).
func NewFailoverClient(primary Client, fallbacks []Client, log *logging.Logger) *FailoverClient {
	return &FailoverClient{
		primary:   primary,
		fallbacks: fallbacks,
		log:       log.Sub("failover"),
	}
}

// Name returns the primary backend name.
func (f *FailoverClient) Name() string {
	return f.primary.Name()
}

// Complete tries the primary backend, falling back on retryable errors.
func (f *FailoverClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	clients := append([]Client{f.primary}, f.fallbacks...)

	var lastErr error
	for i, client := range clients {
		resp, err := client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			// Non-retryable error: don't try more backends
			return nil, err
		}

		if i < len(clients)-1 {
			metrics.LLMRequests.WithLabelValues(client.Name(), "failover").Inc()
			f.log.Warn().
				Str("backend", client.Name()).
				Err(err).
				Msg("retryable error, trying next backend")
		}
	}

	return nil, lastErr
}

// isRetryable checks if the error suggests trying another backend.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Code {
		case 401, 403, 429, 500, 502, 503, 529:
			return true
		}
	}

	msg := err.Error()
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "capacity") ||
		strings.Contains(msg, "timeout")
}
