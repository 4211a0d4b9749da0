package board

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
)

// CreateCmd returns the board create subcommand
func CreateCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a board you own",
		Long: `Create a board. You become its owner and first member.

Examples:
  kanban board create --title "Roadmap"
  BOARD_ID=$(kanban board create --title "Roadmap" --quiet)
`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().String("title", "", "Board title (required)")
	cmd.Flags().String("description", "", "Board description")
	_ = cmd.MarkFlagRequired("title")

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, _ []string) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")

		b, err := client.CreateBoard(cmd.Context(), title, description)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(b)
	})
	return cmd
}

// DeleteCmd returns the board delete subcommand
func DeleteCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <board-id>",
		Short: "Delete a board and everything on it (owner only)",
		Args:  cobra.ExactArgs(1),
	}

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		id, err := cli.ParseID(f, "board", args[0])
		if err != nil {
			return err
		}
		if err := client.DeleteBoard(cmd.Context(), id); err != nil {
			return f.Fail(err)
		}
		return f.Message(fmt.Sprintf("Board %d deleted", id), map[string]any{"board_id": id})
	})
	return cmd
}
