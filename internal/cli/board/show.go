package board

import (
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
)

// ShowCmd returns the board show subcommand
func ShowCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <board-id>",
		Short: "Show a board with its lists and tasks",
		Long: `Show a board with its lists and tasks.

With --json the full snapshot is printed, including the event sequence
number it reflects.
`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().Bool("info", false, "Show only the board's details")

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		id, err := cli.ParseID(f, "board", args[0])
		if err != nil {
			return err
		}
		snap, err := client.GetBoard(cmd.Context(), id)
		if err != nil {
			return f.Fail(err)
		}
		if info, _ := cmd.Flags().GetBool("info"); info {
			return f.Success(snap.Board)
		}
		if f.Quiet {
			return f.Success(snap.Board)
		}
		return f.Success(snap)
	})
	return cmd
}
