package ui

import "strings"

// SnapshotConfig configures a render without a terminal.
type SnapshotConfig struct {
	Options
	StartKeys []string
}

// RenderSnapshot builds a model, replays the startup keys and renders it.
func RenderSnapshot(cfg SnapshotConfig) string {
	m := NewModel(cfg.Options)
	ApplyStartupKeys(m, cfg.StartKeys)
	return m.Snapshot(cfg.Width, cfg.Height)
}

// Snapshot renders the current view at the given size. A positive height pads
// the output with blank lines.
func (m *Model) Snapshot(width, height int) string {
	if width > 0 {
		m.width = width
		m.input.SetWidth(max(10, width-4))
	}
	return padSnapshotHeight(m.render(), height, m.width)
}

func padSnapshotHeight(view string, height, width int) string {
	if height <= 0 {
		return view
	}
	lines := strings.Split(strings.TrimRight(view, "\n"), "\n")
	if len(lines) >= height {
		return strings.Join(lines[:height], "\n")
	}
	padLine := " "
	if width > 1 {
		padLine = strings.Repeat(" ", width)
	}
	for len(lines) < height {
		lines = append(lines, padLine)
	}
	return strings.Join(lines, "\n")
}
