package ui

import (
	"os"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"
)

// RunConfig configures an interactive session.
type RunConfig struct {
	Options
	StartKeys []string
}

// Run starts the overlay program and returns the href the user activated,
// or "" when they quit without activating anything. Width/height of 0 will
// auto-detect the terminal size. Extra ProgramOptions (e.g., custom IO) are
// passed to tea.NewProgram.
func Run(cfg RunConfig, opts ...tea.ProgramOption) (string, error) {
	forced := cfg.Width > 0 || cfg.Height > 0
	if cfg.Width <= 0 || cfg.Height <= 0 {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			if cfg.Width <= 0 {
				cfg.Width = w
			}
			if cfg.Height <= 0 {
				cfg.Height = h
			}
		}
	}

	m := NewModel(cfg.Options)
	if forced {
		opts = append(opts, tea.WithWindowSize(m.width, m.height))
	}
	if cfg.Context != nil {
		opts = append(opts, tea.WithContext(cfg.Context))
	}

	ApplyStartupKeys(m, cfg.StartKeys)
	if m.activated != "" && m.exitOnActivate {
		return m.activated, nil
	}

	prog := tea.NewProgram(m, opts...)
	final, err := prog.Run()
	if fm, ok := final.(*Model); ok && fm != nil {
		return fm.activated, err
	}
	return m.activated, err
}
