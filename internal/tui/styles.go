package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleLabel     = bold(ColorText)
	StyleHighlight = bold(ColorSecondary)
	StyleError     = bold(ColorError)
	StyleSuccess   = plain(ColorSuccess)
	StyleWarning   = plain(ColorWarning)
	StyleMuted     = plain(ColorMuted)
)

// The source text sits in a quiet panel, the translation in an accented one.
var (
	StyleSourceBox      = panel(ColorSubtle)
	StyleTranslationBox = panel(ColorPrimary)
)

func plain(c lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

func bold(c lipgloss.TerminalColor) lipgloss.Style {
	return plain(c).Bold(true)
}

func panel(border lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

const logoASCII = `
                       _                           
 ___ _ __   ___  __ _| | _____      ____ _ _ __  
/ __| '_ \ / _ \/ _' | |/ / __\ \ /\ / / _' | '_ \ 
\__ \ |_) |  __/ (_| |   <\__ \\ V  V / (_| | |_) |
|___/ .__/ \___|\__,_|_|\_\___/ \_/\_/ \__,_| .__/ 
    |_|                                     |_|    `

func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
