package board

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
	"github.com/thenoetrevino/kanban/internal/models"
)

// MembersCmd returns the board members parent command
func MembersCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage who can see and edit a board",
	}
	cmd.AddCommand(memberCmd(env, "add", "Add a member (any member may add)", (*apiclient.Client).AddMember))
	cmd.AddCommand(memberCmd(env, "remove", "Remove a member (owner only)", (*apiclient.Client).RemoveMember))
	return cmd
}

type memberFunc func(c *apiclient.Client, ctx context.Context, boardID int, userID string) (*models.Board, error)

func memberCmd(env *cli.Env, verb, short string, call memberFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   verb + " <board-id> <user-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
	}

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		id, err := cli.ParseID(f, "board", args[0])
		if err != nil {
			return err
		}
		b, err := call(client, cmd.Context(), id, args[1])
		if err != nil {
			return f.Fail(err)
		}
		if f.JSON || f.Quiet {
			return f.Success(b)
		}
		return f.Message(fmt.Sprintf("Members of %q: %v", b.Title, b.Members), nil)
	})
	return cmd
}
