package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/NhaLeTruc/todo-sync/internal/model"
	"github.com/NhaLeTruc/todo-sync/internal/notify"
	"github.com/NhaLeTruc/todo-sync/internal/realtime"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("229")).
				Background(lipgloss.Color("57"))

	completedStyle = lipgloss.NewStyle().
			Strikethrough(true).
			Foreground(lipgloss.Color("245"))

	overdueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	pendingStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("241"))

	priorityColors = map[model.Priority]lipgloss.Color{
		model.PriorityHigh:   lipgloss.Color("196"),
		model.PriorityMedium: lipgloss.Color("214"),
		model.PriorityLow:    lipgloss.Color("42"),
	}

	stateColors = map[realtime.State]lipgloss.Color{
		realtime.Connected:    lipgloss.Color("42"),
		realtime.Connecting:   lipgloss.Color("214"),
		realtime.Disconnected: lipgloss.Color("196"),
	}

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	inputStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	toastInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	toastErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

func priorityBadge(p model.Priority) string {
	c, ok := priorityColors[p]
	if !ok {
		c = lipgloss.Color("252")
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c).Render("[" + string(p) + "]")
}

func stateBadge(s realtime.State) string {
	return lipgloss.NewStyle().Foreground(stateColors[s]).Render("● " + s.String())
}

func toastStyle(l notify.Level) lipgloss.Style {
	if l == notify.LevelError {
		return toastErrorStyle
	}
	return toastInfoStyle
}
