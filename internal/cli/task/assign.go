package task

import (
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
)

// AssignCmd returns the task assign subcommand
func AssignCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign <task-id> <user-id>",
		Short: "Assign a board member to a task",
		Args:  cobra.ExactArgs(2),
	}
	cmd.Flags().Bool("remove", false, "Unassign instead")

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		taskID, err := cli.ParseID(f, "task", args[0])
		if err != nil {
			return err
		}
		action := "assign"
		if remove, _ := cmd.Flags().GetBool("remove"); remove {
			action = "unassign"
		}
		task, err := client.AssignTask(cmd.Context(), taskID, args[1], action)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(task)
	})
	return cmd
}
