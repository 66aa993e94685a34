package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ai2b/zena/internal/config"
	"github.com/ai2b/zena/internal/gateway"
	"github.com/ai2b/zena/internal/logging"
	"github.com/ai2b/zena/internal/registry"
	"github.com/ai2b/zena/internal/resources"

	// Registers the dialog graph factories.
	_ "github.com/ai2b/zena/internal/agent"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			// The pre-run logger only knows the flag level; rebuild it
			// once the configured level and style are known.
			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			if cfg.Logging.Style == "json" {
				log = logging.NewJSON(nil, level)
			} else {
				log = logging.New(nil, level)
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			refs, err := config.ResolveGraphRefs(cfg.Graphs)
			if err != nil {
				return err
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// Block until SIGINT/SIGTERM
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := resources.New(ctx, cfg, paths, log)
			if err != nil {
				return err
			}
			defer res.Close()

			reg := registry.New(refs, res.Deps, registry.Options{
				TTL:         cfg.Cache.TTL(),
				ForceReload: cfg.Cache.ForceReload,
			}, log)

			log.Info().
				Strs("graphs", reg.Names()).
				Int("personas", len(cfg.Personas)).
				Msg("agent runtime initialized")

			srv := gateway.New(cfg, reg, res.Store, log)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override the gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override the bind mode (loopback, lan, custom)")

	return cmd
}
