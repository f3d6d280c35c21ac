package view

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

// Session is the tenant and operator every console action runs as.
type Session struct {
	TenantID uuid.UUID
	ActorID  uuid.UUID
}

// CommonModel is embedded by all views.
type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

var (
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)
