package board

import (
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
)

// ListCmd returns the board list subcommand
func ListCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the boards you are a member of",
		Long: `List the boards you are a member of.

Examples:
  kanban board list
  kanban board list --search roadmap
  kanban board list --quiet | xargs -n1 kanban board show
`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().String("search", "", "Only boards whose title contains this text")

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, _ []string) error {
		search, _ := cmd.Flags().GetString("search")
		boards, err := client.ListBoards(cmd.Context(), search)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(boards)
	})
	return cmd
}
