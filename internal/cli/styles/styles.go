package styles

import (
	"fmt"
	"sort"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/thenoetrevino/kanban/internal/config"
	"github.com/thenoetrevino/kanban/internal/config/colors"
	"github.com/thenoetrevino/kanban/internal/events"
	"github.com/thenoetrevino/kanban/internal/models"
)

var (
	// Card styles
	CardStyle lipgloss.Style
	CardWidth = 80

	// Board columns
	ColumnStyle lipgloss.Style
	ColumnWidth = 26

	// Text styles
	TitleStyle    lipgloss.Style
	SubtitleStyle lipgloss.Style
	LabelStyle    lipgloss.Style // For field labels like "Owner:", "Priority:"
	ValueStyle    lipgloss.Style // For field values
	SectionStyle  lipgloss.Style // For section headers like "Description", "Members"

	// Status styles
	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
)

func init() {
	Init(*colors.Default())
}

// Init initializes all CLI styles with the given color scheme
func Init(colors config.ColorScheme) {
	CardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colors.Accent)).
		Padding(1, 2).
		Width(CardWidth)

	ColumnStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colors.ListBorder)).
		Padding(0, 1).
		Width(ColumnWidth)

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colors.Title))

	SubtitleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colors.Subtle))

	LabelStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colors.Accent))

	ValueStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colors.Normal))

	SectionStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(colors.Accent)).
		Bold(true).
		MarginTop(1)

	SuccessStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colors.InfoFg)).
		Background(lipgloss.Color(colors.InfoBg)).
		Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colors.ErrorFg)).
		Background(lipgloss.Color(colors.ErrorBg)).
		Padding(0, 1)

	WarningStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colors.WarningFg)).
		Background(lipgloss.Color(colors.WarningBg)).
		Padding(0, 1)
}

// Render formats a command result for humans
func Render(data any) string {
	switch v := data.(type) {
	case *models.Board:
		return RenderBoard(v)
	case []*models.Board:
		return renderLines(len(v), "No boards.", func(i int) string {
			b := v[i]
			return fmt.Sprintf("%s  %s %s", SubtitleStyle.Render(fmt.Sprintf("#%-4d", b.ID)),
				TitleStyle.Render(b.Title), SubtitleStyle.Render(fmt.Sprintf("(%d members)", len(b.Members))))
		})
	case *models.BoardSnapshot:
		return RenderSnapshot(v)
	case *models.List:
		return fmt.Sprintf("%s %s %s", SubtitleStyle.Render(fmt.Sprintf("#%d", v.ID)),
			TitleStyle.Render(v.Title), SubtitleStyle.Render(fmt.Sprintf("position %d", v.Position)))
	case []*models.List:
		return renderLines(len(v), "No lists.", func(i int) string {
			return fmt.Sprintf("%d. %s %s", v[i].Position, TitleStyle.Render(v[i].Title),
				SubtitleStyle.Render(fmt.Sprintf("#%d", v[i].ID)))
		})
	case *models.Task:
		return RenderTask(v)
	case []*models.Task:
		return renderLines(len(v), "No tasks.", func(i int) string {
			t := v[i]
			return fmt.Sprintf("%s  %s %s", SubtitleStyle.Render(fmt.Sprintf("#%-4d", t.ID)),
				ValueStyle.Render(t.Title), SubtitleStyle.Render(fmt.Sprintf("(list %d)", t.ListID)))
		})
	case []*models.Activity:
		return renderLines(len(v), "No activity.", func(i int) string {
			a := v[i]
			line := fmt.Sprintf("%s  %s %s %s %q",
				SubtitleStyle.Render(a.CreatedAt.Local().Format("2006-01-02 15:04")),
				LabelStyle.Render(a.ActorID), a.Action, a.EntityType, a.EntityTitle)
			if a.Details != "" {
				line += " " + SubtitleStyle.Render(a.Details)
			}
			return line
		})
	case *events.TaskMovedPayload:
		if v.Task == nil {
			return fmt.Sprintf("Task moved to list %d at position %d", v.DestinationListID, v.NewIndex)
		}
		return fmt.Sprintf("Task %d moved to list %d at position %d", v.Task.ID, v.DestinationListID, v.NewIndex)
	}
	return fmt.Sprintf("%+v", data)
}

func renderLines(n int, empty string, line func(int) string) string {
	if n == 0 {
		return SubtitleStyle.Render(empty)
	}
	lines := make([]string, n)
	for i := range lines {
		lines[i] = line(i)
	}
	return strings.Join(lines, "\n")
}

// RenderBoard renders a board's metadata as a card
func RenderBoard(b *models.Board) string {
	var s strings.Builder
	s.WriteString(TitleStyle.Render(b.Title))
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("  #%d", b.ID)))
	s.WriteString("\n\n")
	s.WriteString(field("Owner", b.OwnerID))
	s.WriteString(field("Members", strings.Join(b.Members, ", ")))
	s.WriteString(field("Background", ColoredText(b.Background, b.Background)))
	if b.Description != "" {
		s.WriteString(SectionStyle.Render("Description"))
		s.WriteString("\n")
		s.WriteString(RenderMarkdown(b.Description, CardWidth-6))
	}
	return RenderCard(strings.TrimRight(s.String(), "\n"))
}

// RenderSnapshot draws the board's lists side by side
func RenderSnapshot(snap *models.BoardSnapshot) string {
	byList := map[int][]*models.Task{}
	for _, t := range snap.Tasks {
		byList[t.ListID] = append(byList[t.ListID], t)
	}
	lists := append([]*models.List(nil), snap.Lists...)
	sort.SliceStable(lists, func(i, j int) bool { return lists[i].Position < lists[j].Position })

	header := TitleStyle.Render(snap.Board.Title) +
		SubtitleStyle.Render(fmt.Sprintf("  #%d  seq %d", snap.Board.ID, snap.Seq))
	if len(lists) == 0 {
		return header + "\n" + SubtitleStyle.Render("This board has no lists yet.")
	}

	cols := make([]string, len(lists))
	for i, l := range lists {
		tasks := byList[l.ID]
		sort.SliceStable(tasks, func(a, b int) bool { return tasks[a].Position < tasks[b].Position })

		lines := []string{LabelStyle.Render(fmt.Sprintf("%s (%d)", l.Title, len(tasks)))}
		for _, t := range tasks {
			lines = append(lines, wordwrap.String(fmt.Sprintf("#%d %s", t.ID, t.Title), ColumnWidth-2))
		}
		cols[i] = ColumnStyle.Render(strings.Join(lines, "\n"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
}

// RenderTask renders a task as a card
func RenderTask(t *models.Task) string {
	var s strings.Builder
	s.WriteString(TitleStyle.Render(t.Title))
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("  #%d", t.ID)))
	s.WriteString("\n\n")
	s.WriteString(field("List", fmt.Sprintf("%d (position %d)", t.ListID, t.Position)))
	s.WriteString(field("Priority", string(t.Priority)))
	if len(t.Assignees) > 0 {
		s.WriteString(field("Assignees", strings.Join(t.Assignees, ", ")))
	}
	if t.DueDate != nil {
		s.WriteString(field("Due", t.DueDate.Format("2006-01-02")))
	}
	if len(t.Labels) > 0 {
		chips := make([]string, len(t.Labels))
		for i, l := range t.Labels {
			chips[i] = RenderLabelChip(l)
		}
		s.WriteString(field("Labels", strings.Join(chips, " ")))
	}
	s.WriteString(SectionStyle.Render("Description"))
	s.WriteString("\n")
	if t.Description == "" {
		s.WriteString(SubtitleStyle.Italic(true).Render("No description"))
	} else {
		s.WriteString(RenderMarkdown(t.Description, CardWidth-6))
	}
	return RenderCard(s.String())
}

func field(label, value string) string {
	return LabelStyle.Render(label+":") + " " + ValueStyle.Render(value) + "\n"
}

// RenderMarkdown renders markdown for the terminal, falling back to the
// plain text if rendering fails
func RenderMarkdown(text string, width int) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}

// ═══════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ═══════════════════════════════════════════════════════════════════

// ColoredText renders text with a hex color
func ColoredText(text, hexColor string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(hexColor)).
		Render(text)
}

// RenderLabelChip renders a label as "[text]" with the label's color
func RenderLabelChip(label models.Label) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(label.Color)).
		Bold(true).
		Render("[" + label.Text + "]")
}

// RenderCard wraps content in a styled card border
func RenderCard(content string) string {
	return CardStyle.Render(content)
}
