package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/kalambet/chatdesk/internal/session"
)

type styles struct {
	dark bool

	Title     lipgloss.Style
	Tab       lipgloss.Style
	ActiveTab lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Selected  lipgloss.Style
	Muted     lipgloss.Style
	Border    lipgloss.Style
	Notice    map[session.NoticeLevel]lipgloss.Style
}

func newStyles(dark bool) styles {
	fg, muted, accent := lipgloss.Color("235"), lipgloss.Color("244"), lipgloss.Color("25")
	if dark {
		fg, muted, accent = lipgloss.Color("252"), lipgloss.Color("241"), lipgloss.Color("39")
	}
	return styles{
		dark:      dark,
		Title:     lipgloss.NewStyle().Bold(true).Foreground(accent),
		Tab:       lipgloss.NewStyle().Padding(0, 1).Foreground(muted),
		ActiveTab: lipgloss.NewStyle().Padding(0, 1).Bold(true).Underline(true).Foreground(fg),
		User:      lipgloss.NewStyle().Bold(true).Foreground(accent),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170")),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		Muted:     lipgloss.NewStyle().Foreground(muted),
		Border:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(muted),
		Notice: map[session.NoticeLevel]lipgloss.Style{
			session.NoticeInfo:    lipgloss.NewStyle().Foreground(muted),
			session.NoticeSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("35")),
			session.NoticeRefusal: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			session.NoticeFailure: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		},
	}
}
