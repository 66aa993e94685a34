package llm

import (
	"net/http"
	"time"

	"github.com/ai2b/zena/internal/config"
	"github.com/ai2b/zena/internal/logging"
)

// Set holds the model clients the graph nodes draw from: a mini model for
// routine turns (wrapped with reserve-key failover) and a large model for
// the heavier prompt-building steps.
type Set struct {
	Mini  Client
	Large Client

	// Temperature, when set, is applied to every completion request.
	Temperature *float64
}

// NewSet builds the model set from config. When a reserve API key is
// configured the mini client fails over to the same model on that key.
func NewSet(cfg config.LLMConfig, log *logging.Logger) *Set {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	mini := Client(NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.MiniModel, httpClient))
	if cfg.ReserveAPIKey != "" {
		reserve := NewOpenAIClient(cfg.BaseURL, cfg.ReserveAPIKey, cfg.MiniModel, httpClient)
		mini = NewFailoverClient(mini, []Client{reserve}, log)
	}

	return &Set{
		Mini:        mini,
		Large:       NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.LargeModel, httpClient),
		Temperature: cfg.Temperature,
	}
}
