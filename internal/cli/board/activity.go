package board

import (
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
)

// ActivityCmd returns the board activity subcommand
func ActivityCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity <board-id>",
		Short: "Show the board's recent activity, newest first",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Int("limit", 20, "Maximum number of entries")

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		id, err := cli.ParseID(f, "board", args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := client.Activity(cmd.Context(), id, limit)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(entries)
	})
	return cmd
}
