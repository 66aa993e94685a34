package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ai2b/zena/internal/config"
	"github.com/ai2b/zena/internal/graph"

	_ "github.com/ai2b/zena/internal/agent"
)

func newGraphsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graphs",
		Short: "Inspect the graph mapping",
	}

	cmd.AddCommand(newGraphsListCmd())
	cmd.AddCommand(newGraphsCheckCmd())
	return cmd
}

func newGraphsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List serving names and their factories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(cfg.Graphs))
			for name := range cfg.Graphs {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("%s -> %s\n", name, cfg.Graphs[name])
			}
			return nil
		},
	}
}

func newGraphsCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the graph mapping against the registered factories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			issues := config.ValidateGraphs(cfg.Graphs)
			for _, issue := range issues {
				fmt.Printf("INVALID %s: %s\n", issue.Path, issue.Message)
			}

			refs, err := config.ResolveGraphRefs(cfg.Graphs)
			if err != nil {
				return err
			}

			bad := len(issues)
			names := make([]string, 0, len(refs))
			for name := range refs {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				ref := refs[name]
				if _, err := graph.LookupFactory(ref.Func); err != nil {
					fmt.Printf("UNRESOLVED %s: %v\n", name, err)
					bad++
					continue
				}
				fmt.Printf("OK %s -> %s\n", name, ref)
			}

			if bad > 0 {
				return fmt.Errorf("%d graph mapping issue(s)", bad)
			}
			return nil
		},
	}
}
