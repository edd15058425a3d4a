package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	// Status colors
	Success = lipgloss.Color("#95E1A3") // Green
	Danger  = lipgloss.Color("#FF6B6B") // Red
	Warning = lipgloss.Color("#FFE66D") // Yellow

	// UI colors
	Primary   = lipgloss.Color("#4ECDC4")
	Secondary = lipgloss.Color("#6C757D")
	Surface   = lipgloss.Color("#16213e")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
	Highlight = lipgloss.Color("#4ECDC4")
)

// Styles
var (
	// Header
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	// Sidebar
	SidebarStyle = lipgloss.NewStyle().
			Width(20).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(Border).
			Padding(1, 1)

	NavItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	NavItemSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	// Main pane
	ContentStyle = lipgloss.NewStyle().
			Padding(1, 2)

	// Post list item
	PostItemStyle = lipgloss.NewStyle().
			Padding(0, 1)

	PostItemSelectedStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(Surface).
				Bold(true)

	// Dashboard cards
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 2).
			MarginRight(1)

	CardValueStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	BarStyle       = lipgloss.NewStyle().Foreground(Highlight)

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(Border)

	ErrorStyle   = lipgloss.NewStyle().Foreground(Danger)
	SuccessStyle = lipgloss.NewStyle().Foreground(Success)

	// Input modal
	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(1, 2)

	DangerModalStyle = ModalStyle.
				BorderForeground(Danger)

	// Help text
	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	LabelStyle = lipgloss.NewStyle().Foreground(Secondary)
)
