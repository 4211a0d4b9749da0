package list

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
	"github.com/thenoetrevino/kanban/internal/models"
)

// ListCmd returns the list parent command
func ListCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Manage the lists (columns) of a board",
	}

	cmd.AddCommand(CreateCmd(env))
	cmd.AddCommand(MoveCmd(env))
	cmd.AddCommand(ReorderCmd(env))
	cmd.AddCommand(DeleteCmd(env))

	return cmd
}

// CreateCmd returns the list create subcommand
func CreateCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Append a list to a board",
		Long: `Append a list to a board.

Examples:
  kanban list create --board 1 --title "In review"
`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().Int("board", 0, "Board ID (required)")
	cmd.Flags().String("title", "", "List title (required)")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("title")

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, _ []string) error {
		boardID, _ := cmd.Flags().GetInt("board")
		title, _ := cmd.Flags().GetString("title")

		l, err := client.CreateList(cmd.Context(), boardID, title)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(l)
	})
	return cmd
}

// MoveCmd returns the list move subcommand
func MoveCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <list-id> <index>",
		Short: "Move a list to a new index on its board",
		Long: `Move a list to a new index on its board. Indexes past the end place
the list last.

Examples:
  kanban list move 7 0
`,
		Args: cobra.ExactArgs(2),
	}

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		listID, err := cli.ParseID(f, "list", args[0])
		if err != nil {
			return err
		}
		index, err := cli.ParseIndex(f, args[1])
		if err != nil {
			return err
		}
		lists, err := client.MoveList(cmd.Context(), listID, index)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(lists)
	})
	return cmd
}

// ReorderCmd returns the list reorder subcommand
func ReorderCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reorder <list-id>...",
		Short: "Set the order of a board's lists",
		Long: `Set the order of a board's lists. Lists left out keep their relative
order after the named ones.

Examples:
  kanban list reorder --board 1 9 7 8
`,
		Args: cobra.MinimumNArgs(1),
	}
	cmd.Flags().Int("board", 0, "Board ID (required)")
	_ = cmd.MarkFlagRequired("board")

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		boardID, _ := cmd.Flags().GetInt("board")

		order := make([]models.ListPosition, len(args))
		for i, arg := range args {
			id, err := cli.ParseID(f, "list", arg)
			if err != nil {
				return err
			}
			order[i] = models.ListPosition{ListID: id, Position: i}
		}

		lists, err := client.ReorderLists(cmd.Context(), boardID, order)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(lists)
	})
	return cmd
}

// DeleteCmd returns the list delete subcommand
func DeleteCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <list-id>",
		Short: "Delete a list and its tasks",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		listID, err := cli.ParseID(f, "list", args[0])
		if err != nil {
			return err
		}
		if err := client.DeleteList(cmd.Context(), listID); err != nil {
			return f.Fail(err)
		}
		return f.Message(fmt.Sprintf("List %d deleted", listID), map[string]any{"list_id": listID})
	})
	return cmd
}
