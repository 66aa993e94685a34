// Package resources owns the process-wide dependencies shared by every
// graph: the database, Redis, the model set, the caches, and the exporters.
// Everything is created up front so a misconfigured backend fails the
// process at startup instead of mid-dialog.
package resources

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ai2b/zena/internal/cache"
	"github.com/ai2b/zena/internal/config"
	"github.com/ai2b/zena/internal/domain"
	"github.com/ai2b/zena/internal/graph"
	"github.com/ai2b/zena/internal/history"
	"github.com/ai2b/zena/internal/llm"
	"github.com/ai2b/zena/internal/logging"
	"github.com/ai2b/zena/internal/mcp"
	"github.com/ai2b/zena/internal/prompt"
	"github.com/ai2b/zena/internal/store"
)

// Resources is the assembled dependency set.
type Resources struct {
	DB      *store.DB
	Store   store.DialogStore
	Redis   *redis.Client
	Models  *llm.Set
	Masters *cache.MastersCache
	States  *cache.DialogStateStore
	Prompt  prompt.Source
	History *history.Exporter

	cfg config.Config
	log *logging.Logger

	mcpMu      sync.Mutex
	mcpClients map[string]*mcp.Client
}

// New builds every shared resource. On error, resources created so far are
// closed before returning.
func New(ctx context.Context, cfg config.Config, paths config.Paths, log *logging.Logger) (*Resources, error) {
	r := &Resources{cfg: cfg, log: log.Sub("resources"), mcpClients: make(map[string]*mcp.Client)}

	db, err := store.Open(paths.DBPath(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	r.DB = db
	r.Store = store.NewSQLiteDialogStore(db)

	redisURL := cache.ResolveRedisURL(cfg.Redis.URL, config.EnvBool(config.EnvIsDocker, false))
	rdb, err := cache.NewRedisClient(redisURL)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		// Redis is an accelerator here, not a source of truth. Both
		// caches fall back to in-process storage without it.
		r.log.Warn().Err(err).Str("url", redisURL).Msg("redis unreachable, caches run in memory")
		_ = rdb.Close()
		rdb = nil
	}
	r.Redis = rdb

	r.Models = llm.NewSet(cfg.LLM, log)

	r.Masters = cache.New(rdb, r.fetchMasters, cache.Options{
		RefreshEvery: time.Duration(cfg.Redis.MastersRefreshSeconds) * time.Second,
		ValueTTL:     time.Duration(cfg.Redis.MastersTTLSeconds) * time.Second,
		LockTTL:      time.Duration(cfg.Redis.LockTTLSeconds) * time.Second,
	}, log)

	r.States = cache.NewDialogStateStore(rdb, time.Duration(cfg.Redis.MastersTTLSeconds)*time.Second, log)

	r.Prompt = prompt.Static(prompt.DefaultTemplate)
	if cfg.Prompt.DocID != "" {
		reader, err := prompt.NewDocReader(ctx, cfg.Prompt.CredentialsFile, cfg.Prompt.DocID,
			time.Duration(cfg.Prompt.CacheTTLSeconds)*time.Second, log)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("prompt doc reader: %w", err)
		}
		r.Prompt = reader
	}

	r.History = history.New(cfg.History.URL, cfg.History.Token, cfg.History.MaxRetries,
		cfg.History.TimeoutSeconds, log)

	return r, nil
}

func (r *Resources) fetchMasters(ctx context.Context, channelID string) ([]store.Master, error) {
	return r.Store.Masters(ctx, channelID)
}

// Deps assembles the per-persona dependency set graph factories receive.
// MCP clients are created lazily and reused per persona.
func (r *Resources) Deps(persona domain.Persona) graph.Deps {
	r.mcpMu.Lock()
	defer r.mcpMu.Unlock()
	client, ok := r.mcpClients[persona.Name]
	if !ok {
		httpClient := &http.Client{Timeout: time.Duration(r.cfg.MCP.TimeoutSeconds) * time.Second}
		client = mcp.NewClient(r.cfg.MCP.Host, persona.MCPPort, httpClient, r.log)
		r.mcpClients[persona.Name] = client
	}
	return graph.Deps{
		Models:  r.Models,
		MCP:     client,
		Store:   r.Store,
		Masters: r.Masters,
		States:  r.States,
		Prompt:  r.Prompt,
		History: r.History,
		Log:     r.log,
		Persona: persona,
	}
}

// Persona looks up a configured persona by name.
func (r *Resources) Persona(name string) (domain.Persona, bool) {
	port, ok := r.cfg.Personas[name]
	if !ok {
		return domain.Persona{}, false
	}
	return domain.Persona{Name: name, MCPPort: port}, true
}

// Personas returns the configured personas sorted by name.
func (r *Resources) Personas() []domain.Persona {
	return domain.SortedPersonas(r.cfg.Personas)
}

// Close releases everything in reverse creation order, best effort.
func (r *Resources) Close() {
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			r.log.Warn().Err(err).Msg("closing redis")
		}
		r.Redis = nil
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			r.log.Warn().Err(err).Msg("closing database")
		}
		r.DB = nil
	}
}
