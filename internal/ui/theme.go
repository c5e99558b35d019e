package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Theme defines the colors used by the overlay.
type Theme struct {
	Accent     color.Color // group headers and the input prompt
	Text       color.Color // result titles
	Muted      color.Color // meta, descriptions and help
	SelectedFG color.Color // active row foreground
	SelectedBG color.Color // active row background
	Status     color.Color // activation status line
	Error      color.Color // error status line
}

// DefaultTheme returns the built-in dark palette.
func DefaultTheme() Theme {
	return Theme{
		Accent:     lipgloss.Color("81"),  // cyan
		Text:       lipgloss.Color("252"), // light gray
		Muted:      lipgloss.Color("245"), // muted gray
		SelectedFG: lipgloss.Color("255"),
		SelectedBG: lipgloss.Color("24"), // deep teal
		Status:     lipgloss.Color("114"),
		Error:      lipgloss.Color("203"),
	}
}

// styles are the lipgloss styles derived from a Theme.
type styles struct {
	prompt   lipgloss.Style
	header   lipgloss.Style
	item     lipgloss.Style
	meta     lipgloss.Style
	viewAll  lipgloss.Style
	selected lipgloss.Style
	empty    lipgloss.Style
	help     lipgloss.Style
	status   lipgloss.Style
	errorMsg lipgloss.Style
}

func newStyles(t Theme, noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			prompt:   plain,
			header:   plain,
			item:     plain,
			meta:     plain,
			viewAll:  plain,
			selected: plain,
			empty:    plain,
			help:     plain,
			status:   plain,
			errorMsg: plain,
		}
	}
	return styles{
		prompt:   lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		header:   lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		item:     lipgloss.NewStyle().Foreground(t.Text),
		meta:     lipgloss.NewStyle().Foreground(t.Muted),
		viewAll:  lipgloss.NewStyle().Foreground(t.Accent).Italic(true),
		selected: lipgloss.NewStyle().Foreground(t.SelectedFG).Background(t.SelectedBG).Bold(true),
		empty:    lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		help:     lipgloss.NewStyle().Foreground(t.Muted),
		status:   lipgloss.NewStyle().Foreground(t.Status),
		errorMsg: lipgloss.NewStyle().Foreground(t.Error),
	}
}
