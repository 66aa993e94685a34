// Package history exports finished dialog turns to an external collector.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/ai2b/zena/internal/logging"
)

// Turn is one exported dialog turn.
type Turn struct {
	ChannelID    string    `json:"channel_id"`
	ChatID       string    `json:"chat_id"`
	Persona      string    `json:"persona"`
	UserMessage  string    `json:"user_message"`
	Reply        string    `json:"reply"`
	DialogState  string    `json:"dialog_state"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	At           time.Time `json:"at"`
}

// Exporter posts turns to a collector URL with retries. A nil Exporter or
// an empty URL disables export.
type Exporter struct {
	url        string
	token      string
	maxRetries int
	client     *http.Client
	log        *logging.Logger
	sleep      func(time.Duration) // replaced in tests
}

// New creates an exporter. Returns nil when url is empty, which callers
// treat as export disabled.
func New(url, token string, maxRetries, timeoutSeconds int, log *logging.Logger) *Exporter {
	if url == "" {
		return nil
	}
	return &Exporter{
		url:        url,
		token:      token,
		maxRetries: maxRetries,
		client:     &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		log:        log.Sub("history"),
		sleep:      time.Sleep,
	}
}

// Export posts one turn, retrying transient failures with exponential
// backoff and jitter. A 4xx response is permanent and fails immediately.
func (e *Exporter) Export(ctx context.Context, turn Turn) error {
	if e == nil {
		return nil
	}

	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshaling turn: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			backoff += time.Duration(rand.Int63n(int64(backoff / 2)))
			e.log.Debug().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying history export")

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			e.sleep(backoff)
		}

		lastErr = e.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
		if permanent, ok := lastErr.(*exportError); ok && permanent.permanent {
			return lastErr
		}
	}

	e.log.Error().Err(lastErr).Str("channel_id", turn.ChannelID).Msg("history export failed")
	return fmt.Errorf("exporting turn after %d attempts: %w", e.maxRetries+1, lastErr)
}

type exportError struct {
	status    int
	permanent bool
}

func (e *exportError) Error() string {
	return fmt.Sprintf("collector returned status %d", e.status)
}

func (e *Exporter) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", e.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return &exportError{status: resp.StatusCode, permanent: true}
	default:
		return &exportError{status: resp.StatusCode}
	}
}
