package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	accent    = lipgloss.Color("#7C3AED")
	green     = lipgloss.Color("#10B981")
	muted     = lipgloss.Color("#6B7280")
	amber     = lipgloss.Color("#F59E0B")
	redColor  = lipgloss.Color("#EF4444")
	white     = lipgloss.Color("#FFFFFF")
	barBg     = lipgloss.Color("#1F2937")
	blueColor = lipgloss.Color("#60A5FA")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)

	paneFocusedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(accent).
				Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(accent).
			Foreground(white).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(green).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(muted)

	newMarkStyle = lipgloss.NewStyle().
			Foreground(amber).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(barBg).
			Foreground(white).
			Padding(0, 1)

	statusErrStyle = lipgloss.NewStyle().
			Foreground(redColor).
			Bold(true)

	statusOkStyle = lipgloss.NewStyle().
			Foreground(green).
			Bold(true)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(accent).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(muted)

	formLabelStyle = lipgloss.NewStyle().
			Foreground(green).
			Bold(true)

	formFieldStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)

	formFocusedStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(green).
				Padding(0, 1)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accent)

	journalHeadStyle = lipgloss.NewStyle().
				Foreground(blueColor).
				Bold(true)

	selectMarkStyle = lipgloss.NewStyle().
			Foreground(amber)
)
