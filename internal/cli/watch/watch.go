package watch

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
	"github.com/thenoetrevino/kanban/internal/cli/styles"
	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
)

// WatchCmd returns the watch command, which streams a board's events
func WatchCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <board-id>",
		Short: "Stream a board's live events",
		Long: `Stream a board's live events until interrupted.

With --json each event is printed as one JSON object per line, suitable for
piping into jq.
`,
		Args: cobra.ExactArgs(1),
	}

	cmd.RunE = env.Action(func(cmd *cobra.Command, _ *apiclient.Client, f *cli.OutputFormatter, args []string) error {
		boardID, err := cli.ParseID(f, "board", args[0])
		if err != nil {
			return err
		}
		cfg, err := env.Config()
		if err != nil {
			return f.Fail(err)
		}

		client, err := events.NewClient(cfg.Client.ServerURL, cfg.Client.Token, events.WithLogger(env.Logger()))
		if err != nil {
			return f.Fail(err)
		}
		defer client.Close()

		ctx := cmd.Context()
		if err := client.Connect(ctx); err != nil {
			return f.Fail(err)
		}
		if err := client.Join(boardID); err != nil {
			return f.Fail(err)
		}
		feed, err := client.Listen(ctx)
		if err != nil {
			return f.Fail(err)
		}

		for ev := range feed {
			if err := printEvent(f, ev); err != nil {
				return err
			}
		}
		return nil
	})
	return cmd
}

func printEvent(f *cli.OutputFormatter, ev events.Event) error {
	if f.JSON {
		data, err := sonic.Marshal(ev)
		if err != nil {
			return err
		}
		_, err = f.Out.Write(append(data, '\n'))
		return err
	}
	if f.Quiet {
		_, err := fmt.Fprintln(f.Out, ev.Type)
		return err
	}
	return printHuman(f.Out, ev)
}

func printHuman(w io.Writer, ev events.Event) error {
	prefix := styles.SubtitleStyle.Render(fmt.Sprintf("%s #%d", ev.Timestamp.Local().Format("15:04:05"), ev.Seq))
	actor := ""
	if ev.ActorID != "" {
		actor = " by " + styles.LabelStyle.Render(ev.ActorID)
	}
	_, err := fmt.Fprintf(w, "%s %s%s %s\n", prefix, ev.Type, actor, Summary(ev))
	return err
}

// Summary describes an event's payload in a few words
func Summary(ev events.Event) string {
	switch ev.Type {
	case events.TaskCreated, events.TaskUpdated:
		var t models.Task
		if ev.Decode(&t) == nil {
			return fmt.Sprintf("%q in list %d", t.Title, t.ListID)
		}
	case events.TaskMoved:
		var p events.TaskMovedPayload
		if ev.Decode(&p) == nil && p.Task != nil {
			return fmt.Sprintf("%q from list %d to list %d at %d", p.Task.Title, p.SourceListID, p.DestinationListID, p.NewIndex)
		}
	case events.TaskDeleted:
		var p events.TaskDeletedPayload
		if ev.Decode(&p) == nil {
			return fmt.Sprintf("task %d from list %d", p.TaskID, p.ListID)
		}
	case events.ListCreated, events.ListUpdated:
		var l models.List
		if ev.Decode(&l) == nil {
			return fmt.Sprintf("%q", l.Title)
		}
	case events.ListDeleted:
		var p events.ListDeletedPayload
		if ev.Decode(&p) == nil {
			return fmt.Sprintf("list %d", p.ListID)
		}
	case events.ListsReordered:
		var p events.ListsReorderedPayload
		if ev.Decode(&p) == nil {
			return fmt.Sprintf("order %v", p.Order)
		}
	case events.BoardUpdated:
		var b models.Board
		if ev.Decode(&b) == nil {
			return fmt.Sprintf("%q", b.Title)
		}
	case events.MemberAdded, events.MemberRemoved:
		var p events.MemberPayload
		if ev.Decode(&p) == nil {
			return p.UserID
		}
	case events.EventResync:
		return "reconnected, some events may have been missed"
	}
	return ""
}
