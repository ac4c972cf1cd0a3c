// Package style provides shared lipgloss styles for command output.
package style

import "github.com/charmbracelet/lipgloss"

var (
	Bold    = lipgloss.NewStyle().Bold(true)
	Dim     = lipgloss.NewStyle().Faint(true)
	Error   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	Accent  = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)
