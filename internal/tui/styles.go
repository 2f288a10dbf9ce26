package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1).
			Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#5A56E0"))

	connectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	connectingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))
	disconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))

	userStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")).Bold(true)
	agentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C678DD")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7F848E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E06C75"))
	folderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF"))
	freshStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3E4451")).
			Padding(0, 1)
)
