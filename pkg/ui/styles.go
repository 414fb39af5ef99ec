package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	pulseStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pulseBusyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	modelLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	modelActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).Underline(true)
	modelIdleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	disabledStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Faint(true)

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)

	agentBubbleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Padding(0, 1)

	thinkingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Italic(true)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("238"))

	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)
