package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/oakwood-commons/archsearch/internal/flatten"
)

const (
	inputPrompt  = "⌕ "
	activeMarker = "› "
	rowIndent    = "  "
)

// render draws the header, the input line and, while the panel is open with
// a settled query, the result panel. It records the action index of every
// line for pointer hit testing.
func (m *Model) render() string {
	width := max(20, m.width)
	var (
		lines []string
		rows  []int
	)
	add := func(line string, action int) {
		lines = append(lines, line)
		rows = append(rows, action)
	}

	add(m.headerLine(width), -1)
	add(m.inputLine(), -1)

	if m.panelVisible() {
		for _, line := range m.panelLines(width) {
			add(line.text, line.action)
		}
	}

	m.rows = rows
	out := strings.Join(lines, "\n")
	if m.noColor {
		out = ansi.Strip(out)
	}
	return out
}

func (m *Model) panelVisible() bool {
	return m.state.IsOpen && m.state.SettledQuery != ""
}

func (m *Model) headerLine(width int) string {
	if m.status != "" {
		style := m.styles.status
		if m.statusErr {
			style = m.styles.errorMsg
		}
		return style.Render(truncate(m.status, width))
	}
	m.help.SetWidth(width)
	return m.help.ShortHelpView(m.keys.ShortHelp())
}

func (m *Model) inputLine() string {
	line := m.styles.prompt.Render(inputPrompt) + m.input.View()
	if m.state.IsLoading {
		line += " " + m.spinner.View()
	}
	return line
}

type panelLine struct {
	text   string
	action int
}

func (m *Model) panelLines(width int) []panelLine {
	s := m.state
	if s.IsLoading && len(s.Groups) == 0 {
		return []panelLine{{text: m.styles.empty.Render(rowIndent + "Searching…"), action: -1}}
	}
	if s.Empty() {
		msg := fmt.Sprintf("No results for “%s”", s.SettledQuery)
		return []panelLine{{text: m.styles.empty.Render(rowIndent + truncate(msg, width-len(rowIndent))), action: -1}}
	}

	var out []panelLine
	for gi, g := range s.Groups {
		if gi > 0 {
			out = append(out, panelLine{action: -1})
		}
		out = append(out, panelLine{text: m.styles.header.Render(g.Icon + " " + g.Label), action: -1})
		for ii, item := range g.Items {
			i, ok := s.Index.Position(g.Category, ii)
			if !ok {
				continue
			}
			out = append(out, panelLine{text: m.itemRow(i, item.Title, item.Meta, item.Description, width), action: i})
		}
		if i, ok := s.Index.Position(g.Category, flatten.ViewAll); ok {
			out = append(out, panelLine{text: m.viewAllRow(i, s.Actions[i].Label, width), action: i})
		}
	}
	return out
}

func (m *Model) itemRow(i int, title, meta, description string, width int) string {
	prefix := rowIndent
	if i == m.state.ActiveIndex {
		prefix = activeMarker
	}
	avail := width - runewidth.StringWidth(prefix)
	title = truncate(title, avail)
	text := title
	rest := avail - runewidth.StringWidth(title)
	var tail string
	for _, part := range []string{meta, description} {
		if part == "" || rest <= 4 {
			continue
		}
		seg := truncate(" · "+part, rest)
		tail += seg
		rest -= runewidth.StringWidth(seg)
	}
	if i == m.state.ActiveIndex {
		return m.styles.selected.Render(prefix + text + tail)
	}
	return prefix + m.styles.item.Render(text) + m.styles.meta.Render(tail)
}

func (m *Model) viewAllRow(i int, label string, width int) string {
	prefix := rowIndent
	if i == m.state.ActiveIndex {
		prefix = activeMarker
	}
	text := truncate(label+" →", width-runewidth.StringWidth(prefix))
	if i == m.state.ActiveIndex {
		return m.styles.selected.Render(prefix + text)
	}
	return prefix + m.styles.viewAll.Render(text)
}

// actionAt returns the action index rendered on line y, or -1.
func (m *Model) actionAt(y int) int {
	m.render()
	if y < 0 || y >= len(m.rows) {
		return -1
	}
	return m.rows[y]
}

// inRegion reports whether line y belongs to the overlay (header, input and
// visible panel lines).
func (m *Model) inRegion(y int) bool {
	m.render()
	return y >= 0 && y < len(m.rows)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
