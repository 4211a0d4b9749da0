package tui

import (
	"fmt"
	"strings"
	"sync"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"github.com/thenoetrevino/kanban/internal/models"
)

// View implements tea.Model
func (m Model) View() tea.View {
	var view tea.View
	view.AltScreen = true
	view.Content = m.render()
	return view
}

func (m Model) render() string {
	if m.state == nil || m.state.Board == nil {
		return "Loading..."
	}

	var body string
	switch m.mode {
	case detailMode:
		body = m.renderDetail()
	case helpMode:
		body = m.styles.Detail.Render(m.help.FullHelpView(m.keys.FullHelp()))
	default:
		body = m.renderBoard()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatus(),
	)
}

func (m Model) renderHeader() string {
	b := m.state.Board
	conn := m.styles.Subtle.Render("offline")
	if m.live {
		conn = m.styles.Info.Render("live")
	}
	meta := m.styles.Subtle.Render(fmt.Sprintf("#%d  seq %d  %d members", b.ID, m.state.Seq, len(b.Members)))
	return lipgloss.JoinHorizontal(lipgloss.Center, m.styles.Header.Render(b.Title), meta, " ", conn)
}

func (m Model) renderBoard() string {
	if len(m.state.Lists) == 0 {
		return m.styles.Subtle.Render("This board has no lists yet.")
	}

	cols := make([]string, 0, len(m.state.Lists))
	for i, l := range m.state.Lists {
		cols = append(cols, m.renderList(i, l))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderList(i int, l *models.List) string {
	tasks := m.state.Tasks[l.ID]

	var b strings.Builder
	b.WriteString(m.styles.ListTitle.Render(fmt.Sprintf("%s (%d)", l.Title, len(tasks))))
	for j, t := range tasks {
		style := m.styles.Card
		switch {
		case m.pending[t.ID]:
			style = m.styles.CardPending
		case i == m.selList && j == m.selTask:
			style = m.styles.CardSelected
		}
		b.WriteString("\n")
		b.WriteString(style.Render(cardText(t)))
	}

	if i == m.selList {
		return m.styles.ListSelected.Render(b.String())
	}
	return m.styles.List.Render(b.String())
}

func cardText(t *models.Task) string {
	text := wordwrap.String(t.Title, cardWidth-2)
	var meta []string
	if t.Priority != "" && t.Priority != models.PriorityMedium {
		meta = append(meta, string(t.Priority))
	}
	if len(t.Assignees) > 0 {
		meta = append(meta, "@"+strings.Join(t.Assignees, " @"))
	}
	if t.DueDate != nil {
		meta = append(meta, "due "+t.DueDate.Format("Jan 2"))
	}
	if len(meta) > 0 {
		text += "\n" + strings.Join(meta, "  ")
	}
	return text
}

func (m Model) renderDetail() string {
	t, ok := m.state.Task(m.selectedTaskID())
	if !ok {
		return m.styles.Subtle.Render("Task not found.")
	}

	width := 60
	if m.width > 0 && m.width-8 < width {
		width = max(m.width-8, 20)
	}

	lines := []string{
		m.styles.ListTitle.Render(t.Title),
		m.styles.Subtle.Render(fmt.Sprintf("#%d  priority %s", t.ID, t.Priority)),
	}
	if len(t.Assignees) > 0 {
		lines = append(lines, "Assignees: "+strings.Join(t.Assignees, ", "))
	}
	if len(t.Labels) > 0 {
		labels := make([]string, len(t.Labels))
		for i, l := range t.Labels {
			labels[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(l.Color)).Render(l.Text)
		}
		lines = append(lines, "Labels: "+strings.Join(labels, " "))
	}
	if t.DueDate != nil {
		lines = append(lines, "Due: "+t.DueDate.Format("2006-01-02"))
	}
	lines = append(lines, "", renderDescription(t.Description, width))
	return m.styles.Detail.Width(width + 4).Render(strings.Join(lines, "\n"))
}

func (m Model) renderStatus() string {
	switch {
	case m.err != nil:
		return m.styles.Error.Render(m.err.Error())
	case m.notice != "":
		return m.styles.Info.Render(m.notice)
	}
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

var rendererCache sync.Map // map[int]*glamour.TermRenderer

func getRenderer(width int) (*glamour.TermRenderer, error) {
	if cached, ok := rendererCache.Load(width); ok {
		return cached.(*glamour.TermRenderer), nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	rendererCache.Store(width, renderer)
	return renderer, nil
}

// renderDescription renders markdown, falling back to the raw text
func renderDescription(desc string, width int) string {
	if desc == "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true).Render("No description")
	}
	if r, err := getRenderer(width); err == nil {
		if out, err := r.Render(desc); err == nil {
			return strings.TrimSpace(out)
		}
	}
	return desc
}
