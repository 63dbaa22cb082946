package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/wirechat-poll/internal/core"
)

const defaultTheme = "light"

// Theme is the palette the chat renders with.
type Theme struct {
	Name    string
	Self    lipgloss.Style
	Sender  lipgloss.Style
	Text    lipgloss.Style
	Meta    lipgloss.Style
	Pending lipgloss.Style
	Failed  lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Status  lipgloss.Style
	Prompt  lipgloss.Style
}

var themes = map[string]Theme{
	"light": {
		Name:    "light",
		Self:    lipgloss.NewStyle().Foreground(lipgloss.Color("25")).Bold(true),
		Sender:  lipgloss.NewStyle().Foreground(lipgloss.Color("90")).Bold(true),
		Text:    lipgloss.NewStyle().Foreground(lipgloss.Color("235")),
		Meta:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		Pending: lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Italic(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("28")).Italic(true),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true),
		Status:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("25")),
	},
	"dark": {
		Name:    "dark",
		Self:    lipgloss.NewStyle().Foreground(lipgloss.Color("75")).Bold(true),
		Sender:  lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true),
		Text:    lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Meta:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		Pending: lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true),
		Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("248")).Italic(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Italic(true),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
		Status:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
	},
}

// themeByName falls back to the default palette for unknown names.
func themeByName(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[defaultTheme]
}

// other returns the palette a bare /theme toggles to.
func (t Theme) other() Theme {
	if t.Name == "dark" {
		return themes["light"]
	}
	return themes["dark"]
}

func (t Theme) notice(level core.NoticeLevel) lipgloss.Style {
	switch level {
	case core.NoticeSuccess:
		return t.Success
	case core.NoticeError:
		return t.Error
	default:
		return t.Info
	}
}
