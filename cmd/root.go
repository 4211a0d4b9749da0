package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/cli"
	"github.com/thenoetrevino/kanban/internal/cli/board"
	"github.com/thenoetrevino/kanban/internal/cli/list"
	"github.com/thenoetrevino/kanban/internal/cli/styles"
	"github.com/thenoetrevino/kanban/internal/cli/task"
	"github.com/thenoetrevino/kanban/internal/cli/watch"
)

// NewRootCmd builds the command tree around env
func NewRootCmd(env *cli.Env) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "kanban",
		Short: "Kanban - collaborative boards with live updates",
		Long: `Kanban is a collaborative kanban board. Run "kanban serve" to host boards,
then manage them from the command line or open one in the interactive viewer
with "kanban board open". Every change is broadcast to everyone viewing the
board.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			env.Bind(cmd)
			if cfg, err := env.Config(); err == nil {
				styles.Init(cfg.ColorScheme)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&env.ConfigPath, "config", "", "Config file (default $XDG_CONFIG_HOME/kanban/config.yaml)")
	env.AddOutputFlags(rootCmd)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &cli.ExitError{Code: cli.ExitUsage, Err: err}
	})

	rootCmd.AddCommand(ServeCmd(env))
	rootCmd.AddCommand(TokenCmd(env))
	rootCmd.AddCommand(board.BoardCmd(env))
	rootCmd.AddCommand(list.ListCmd(env))
	rootCmd.AddCommand(task.TaskCmd(env))
	rootCmd.AddCommand(watch.WatchCmd(env))

	return rootCmd
}

// Execute runs the CLI
func Execute(ctx context.Context) error {
	return NewRootCmd(&cli.Env{}).ExecuteContext(ctx)
}
