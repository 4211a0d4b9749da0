package task

import (
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
)

// MoveCmd returns the task move subcommand
func MoveCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <task-id>",
		Short: "Move a task within its list or to another list",
		Long: `Move a task to a position within its list or to another list on the
same board. Positions are zero-based; a position past the end places the
task last. Every other member viewing the board sees the move live.

Examples:
  # Move task 12 to the top of its list
  kanban task move 12 --position 0

  # Move task 12 into list 4, second from the top
  kanban task move 12 --to 4 --position 1
`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().Int("to", 0, "Destination list ID (defaults to the task's list)")
	cmd.Flags().Int("position", 0, "Zero-based position in the destination list")

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		taskID, err := cli.ParseID(f, "task", args[0])
		if err != nil {
			return err
		}
		dest, _ := cmd.Flags().GetInt("to")
		position, _ := cmd.Flags().GetInt("position")
		if position < 0 {
			return f.Usage("--position must be 0 or greater")
		}

		current, err := client.GetTask(cmd.Context(), taskID)
		if err != nil {
			return f.Fail(err)
		}
		if dest == 0 {
			dest = current.ListID
		}

		moved, err := client.MoveTask(cmd.Context(), apiclient.MoveTask{
			TaskID:            taskID,
			SourceListID:      current.ListID,
			DestinationListID: dest,
			NewPosition:       position,
		})
		if err != nil {
			return f.Fail(err)
		}
		if f.Quiet {
			return f.Success(moved.Task)
		}
		return f.Success(moved)
	})
	return cmd
}
