package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
)

// ShowCmd returns the task show subcommand
func ShowCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		id, err := cli.ParseID(f, "task", args[0])
		if err != nil {
			return err
		}
		task, err := client.GetTask(cmd.Context(), id)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(task)
	})
	return cmd
}

// DeleteCmd returns the task delete subcommand
func DeleteCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		id, err := cli.ParseID(f, "task", args[0])
		if err != nil {
			return err
		}
		if err := client.DeleteTask(cmd.Context(), id); err != nil {
			return f.Fail(err)
		}
		return f.Message(fmt.Sprintf("Task %d deleted", id), map[string]any{"task_id": id})
	})
	return cmd
}

// SearchCmd returns the task search subcommand
func SearchCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find tasks on a board by title or description",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().Int("board", 0, "Board ID (required)")
	_ = cmd.MarkFlagRequired("board")

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		boardID, _ := cmd.Flags().GetInt("board")
		tasks, err := client.SearchTasks(cmd.Context(), boardID, args[0])
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(tasks)
	})
	return cmd
}
