package chat

import "github.com/charmbracelet/lipgloss"

// Palette matches the dark page the renderer produces.
var (
	colorAuthor = lipgloss.Color("#a6cbe7")
	colorLink   = lipgloss.Color("#4f9eed")
	colorMuted  = lipgloss.Color("#818384")
	colorBorder = lipgloss.Color("#343536")
	colorError  = lipgloss.Color("#e53935")
)

// Styles holds the chat view styles.
type Styles struct {
	Header    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Input     lipgloss.Style
}

// DefaultStyles returns the chat styles.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorLink).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(colorBorder).
			Padding(0, 1),
		User:      lipgloss.NewStyle().Bold(true).Foreground(colorLink),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(colorAuthor),
		Muted:     lipgloss.NewStyle().Foreground(colorMuted),
		Error:     lipgloss.NewStyle().Foreground(colorError),
		Input: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1),
	}
}
