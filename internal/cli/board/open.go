package board

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
	"github.com/thenoetrevino/kanban/internal/config"
	"github.com/thenoetrevino/kanban/internal/launcher"
)

// OpenCmd returns the board open subcommand, which starts the interactive
// viewer
func OpenCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open <board-id>",
		Short: "Open a board in the interactive viewer",
		Long: `Open a board in the interactive viewer.

Moves made with the keyboard show immediately and are confirmed by the
server; changes made by other members arrive live.
`,
		Args: cobra.ExactArgs(1),
	}

	cmd.RunE = env.Action(func(cmd *cobra.Command, _ *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		id, err := cli.ParseID(f, "board", args[0])
		if err != nil {
			return err
		}
		cfg, err := env.Config()
		if err != nil {
			return f.Fail(err)
		}
		// the viewer owns the terminal, so logs go to a file
		if cfg.Logging.File == "" {
			cfg.Logging.File = filepath.Join(config.DataDir(), "kanban.log")
		}
		if err := launcher.Launch(cmd.Context(), cfg, id, env.Logger()); err != nil {
			return f.Fail(err)
		}
		return nil
	})
	return cmd
}
