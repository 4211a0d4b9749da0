package task

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/kanban/internal/apiclient"
	"github.com/thenoetrevino/kanban/internal/cli"
	"github.com/thenoetrevino/kanban/internal/models"
)

// CreateCmd returns the task create subcommand
func CreateCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Append a task to a list",
		Long: `Append a task to a list.

Examples:
  # Simple task
  kanban task create --list 3 --title "Fix login"

  # JSON output for scripts
  kanban task create --list 3 --title "Fix login" --json

  # Everything at once, description from stdin
  echo "Users see a blank page" | kanban task create \
    --list 3 \
    --title "Fix login" \
    --description - \
    --priority high \
    --due 2026-11-01 \
    --label bug:#FF0000 \
    --assignee bob
`,
		Args: cobra.NoArgs,
	}

	// Required flags
	cmd.Flags().Int("list", 0, "List ID (required)")
	cmd.Flags().String("title", "", "Task title (required)")
	_ = cmd.MarkFlagRequired("list")
	_ = cmd.MarkFlagRequired("title")

	// Optional flags
	cmd.Flags().String("description", "", "Task description, markdown (use - for stdin)")
	cmd.Flags().String("priority", "", "Priority: low, medium, high, urgent")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringArray("label", nil, "Label as text or text:#RRGGBB (repeatable)")
	cmd.Flags().StringArray("assignee", nil, "Member to assign (repeatable)")

	cmd.RunE = env.Action(func(cmd *cobra.Command, client *apiclient.Client, f *cli.OutputFormatter, _ []string) error {
		listID, _ := cmd.Flags().GetInt("list")
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		priority, _ := cmd.Flags().GetString("priority")
		due, _ := cmd.Flags().GetString("due")
		labels, _ := cmd.Flags().GetStringArray("label")
		assignees, _ := cmd.Flags().GetStringArray("assignee")

		if description == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				_ = f.Error("DATA_ERROR", fmt.Sprintf("failed to read description from stdin: %v", err))
				return &cli.ExitError{Code: cli.ExitDataErr, Err: err, Reported: true}
			}
			description = strings.TrimSpace(string(data))
		}

		nt := apiclient.NewTask{
			Title:       title,
			Description: description,
			Priority:    models.Priority(strings.ToLower(priority)),
			Assignees:   assignees,
		}
		if due != "" {
			d, err := time.Parse("2006-01-02", due)
			if err != nil {
				return f.Usage(fmt.Sprintf("invalid due date %q (use YYYY-MM-DD)", due))
			}
			nt.DueDate = &d
		}
		for _, raw := range labels {
			text, color, _ := strings.Cut(raw, ":")
			if color != "" {
				if err := cli.ValidateColorHex(color); err != nil {
					return f.Usage(err.Error())
				}
			}
			nt.Labels = append(nt.Labels, models.Label{Text: text, Color: color})
		}

		task, err := client.CreateTask(cmd.Context(), listID, nt)
		if err != nil {
			return f.Fail(err)
		}
		return f.Success(task)
	})
	return cmd
}
