package terminal

import "github.com/charmbracelet/lipgloss"

// Palette shared by the boxed summaries.
var (
	ColorSuccess = lipgloss.Color("42")
	ColorError   = lipgloss.Color("196")
	ColorMuted   = lipgloss.Color("240")
)

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorMuted).
	Padding(0, 1)

// Box frames lines in a rounded border. The border color follows failed.
func Box(failed bool, lines ...string) string {
	style := boxStyle
	if failed {
		style = style.BorderForeground(ColorError)
	} else if Enabled() {
		style = style.BorderForeground(ColorSuccess)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
