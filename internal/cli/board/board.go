package board

import (
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/cli"
)

// BoardCmd returns the board parent command
func BoardCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Manage boards",
	}

	cmd.AddCommand(ListCmd(env))
	cmd.AddCommand(CreateCmd(env))
	cmd.AddCommand(ShowCmd(env))
	cmd.AddCommand(DeleteCmd(env))
	cmd.AddCommand(MembersCmd(env))
	cmd.AddCommand(ActivityCmd(env))
	cmd.AddCommand(OpenCmd(env))

	return cmd
}
