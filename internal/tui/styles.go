package tui

import (
	"charm.land/lipgloss/v2"

	"github.com/thenoetrevino/kanban/internal/config"
)

const (
	listWidth = 28
	cardWidth = listWidth - 4
)

// styles are built once from the color scheme
type styles struct {
	List         lipgloss.Style
	ListSelected lipgloss.Style
	ListTitle    lipgloss.Style
	Card         lipgloss.Style
	CardSelected lipgloss.Style
	CardPending  lipgloss.Style
	Header       lipgloss.Style
	Subtle       lipgloss.Style
	Detail       lipgloss.Style
	Info         lipgloss.Style
	Error        lipgloss.Style
}

func newStyles(c config.ColorScheme) styles {
	list := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(c.ListBorder)).
		Padding(0, 1).
		Width(listWidth)

	card := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(c.TaskBorder)).
		Foreground(lipgloss.Color(c.Normal)).
		Width(cardWidth)

	return styles{
		List:         list,
		ListSelected: list.BorderForeground(lipgloss.Color(c.Accent)),
		ListTitle:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.Title)),
		Card:         card,
		CardSelected: card.BorderForeground(lipgloss.Color(c.SelectedBorder)),
		CardPending:  card.BorderForeground(lipgloss.Color(c.PendingBorder)).Italic(true),
		Header:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(c.Accent)).Padding(0, 1),
		Subtle:       lipgloss.NewStyle().Foreground(lipgloss.Color(c.Subtle)),
		Detail: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(c.Accent)).
			Padding(1, 2),
		Info: lipgloss.NewStyle().
			Foreground(lipgloss.Color(c.InfoFg)).
			Background(lipgloss.Color(c.InfoBg)).
			Padding(0, 1),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(c.ErrorFg)).
			Background(lipgloss.Color(c.ErrorBg)).
			Padding(0, 1),
	}
}
