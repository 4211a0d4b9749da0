package task

import (
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/cli"
)

// TaskCmd returns the task parent command
func TaskCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}

	cmd.AddCommand(CreateCmd(env))
	cmd.AddCommand(ShowCmd(env))
	cmd.AddCommand(MoveCmd(env))
	cmd.AddCommand(AssignCmd(env))
	cmd.AddCommand(DeleteCmd(env))
	cmd.AddCommand(SearchCmd(env))

	return cmd
}
