package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	runewidth "github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/oakwood-commons/archsearch/internal/ui"
	"github.com/oakwood-commons/archsearch/pkg/settings"
)

const (
	defaultFallbackTermWidth = 120
	minLabelWidth            = 12
)

type snapshotSize struct {
	Width  int
	Height int
}

// resolveSnapshotSize fills unset dimensions from the terminal, then from
// an 80x24 default.
func resolveSnapshotSize(flagWidth, flagHeight int) snapshotSize {
	width, height := flagWidth, flagHeight
	if width <= 0 || height <= 0 {
		w, h := detectTerminalSize()
		if width <= 0 && w > 0 {
			width = w
		}
		if height <= 0 && h > 0 {
			height = h
		}
	}
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	return snapshotSize{Width: width, Height: height}
}

func detectTerminalSize() (int, int) {
	fds := []uintptr{os.Stdout.Fd(), os.Stderr.Fd(), os.Stdin.Fd()}
	for _, fd := range fds {
		if w, h, err := term.GetSize(int(fd)); err == nil && (w > 0 || h > 0) {
			return w, h
		}
	}
	if col := os.Getenv("COLUMNS"); col != "" {
		if w, err := strconv.Atoi(col); err == nil && w > 0 {
			return w, 0
		}
	}
	return 0, 0
}

// isTerminal reports whether w is a terminal. Color is dropped for pipes.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type tableStyles struct {
	border lipgloss.Style
	header lipgloss.Style
	muted  lipgloss.Style
	status lipgloss.Style
}

func newTableStyles(noColor bool) tableStyles {
	if noColor {
		plain := lipgloss.NewStyle()
		return tableStyles{border: plain, header: plain, muted: plain, status: plain}
	}
	th := ui.DefaultTheme()
	return tableStyles{
		border: lipgloss.NewStyle().Foreground(th.Muted),
		header: lipgloss.NewStyle().Foreground(th.Accent).Bold(true),
		muted:  lipgloss.NewStyle().Foreground(th.Muted),
		status: lipgloss.NewStyle().Foreground(th.Status),
	}
}

// tableLine is one row inside the border: either a group header or an
// action with its flat index.
type tableLine struct {
	header string
	index  string
	label  string
	href   string
}

// renderReportTable draws the report inside a rounded border titled with the
// binary name. Labels are truncated so the table fits widthHint columns.
func renderReportTable(rep queryReport, noColor bool, widthHint int) string {
	termWidth := widthHint
	if termWidth <= 0 {
		if w, _ := detectTerminalSize(); w > 0 {
			termWidth = w
		} else {
			termWidth = defaultFallbackTermWidth
		}
	}
	st := newTableStyles(noColor)

	var lines []tableLine
	for _, g := range rep.Groups {
		lines = append(lines, tableLine{header: strings.TrimSpace(g.Icon + " " + g.Label)})
		for _, it := range g.Items {
			label := it.Label
			if it.Meta != "" {
				label += " · " + it.Meta
			}
			lines = append(lines, tableLine{index: strconv.Itoa(it.Index), label: label, href: it.Href})
		}
		if g.ViewAll != nil {
			lines = append(lines, tableLine{index: strconv.Itoa(g.ViewAll.Index), label: g.ViewAll.Label + " →", href: g.ViewAll.Href})
		}
	}
	if len(rep.Groups) == 0 && rep.Query != "" {
		lines = append(lines, tableLine{header: fmt.Sprintf("No results for “%s”", rep.Query)})
		if rep.Catalog != "" {
			lines = append(lines, tableLine{label: "Search the catalog →", href: rep.Catalog})
		}
	}
	for i, o := range rep.Outcomes {
		if i == 0 {
			lines = append(lines, tableLine{header: "Outcomes"})
		}
		detail := fmt.Sprintf("%s: %s remote=%d fallback=%d visible=%d", o.Category, o.Source, o.Remote, o.Fallback, o.Visible)
		if o.Failed {
			detail += " failed"
		}
		lines = append(lines, tableLine{label: detail, href: o.Duration})
	}

	indexW, labelW, hrefW := 0, 0, 0
	natural := 0
	for _, l := range lines {
		indexW = max(indexW, runewidth.StringWidth(l.index))
		labelW = max(labelW, runewidth.StringWidth(l.label))
		hrefW = max(hrefW, runewidth.StringWidth(l.href))
		natural = max(natural, runewidth.StringWidth(l.header)+2)
	}
	// " idx  label  href " plus the side borders
	rowWidth := func(lw int) int { return 1 + indexW + 2 + lw + 2 + hrefW + 1 }
	natural = max(natural, rowWidth(labelW))

	tableWidth := min(natural+2, termWidth)
	title := settings.CliBinaryName
	tableWidth = max(tableWidth, runewidth.StringWidth(title)+6)
	inner := tableWidth - 2
	if rowWidth(labelW) > inner {
		labelW = max(minLabelWidth, labelW-(rowWidth(labelW)-inner))
	}

	var b strings.Builder
	avail := tableWidth - 4
	left := (avail - runewidth.StringWidth(title)) / 2
	right := avail - runewidth.StringWidth(title) - left
	b.WriteString(st.border.Render(fmt.Sprintf("╭%s %s %s╮", strings.Repeat("─", left), title, strings.Repeat("─", right))))
	b.WriteString("\n")

	bar := st.border.Render("│")
	for _, l := range lines {
		var row string
		if l.header != "" {
			row = " " + runewidth.Truncate(l.header, inner-2, "…")
			row = runewidth.FillRight(row, inner)
			row = st.header.Render(row)
		} else {
			row = " " + runewidth.FillLeft(l.index, indexW) + "  " +
				runewidth.FillRight(runewidth.Truncate(l.label, labelW, "…"), labelW) + "  " +
				st.muted.Render(runewidth.FillRight(l.href, hrefW)) + " "
			if w := lipgloss.Width(row); w < inner {
				row += strings.Repeat(" ", inner-w)
			}
		}
		b.WriteString(bar + row + bar + "\n")
	}

	leftText := fmt.Sprintf(" %s ", rep.Query)
	rightText := fmt.Sprintf(" %d actions ", rep.Actions)
	dashes := max(0, tableWidth-runewidth.StringWidth(leftText)-runewidth.StringWidth(rightText)-2)
	b.WriteString(st.border.Render("╰") + st.muted.Render(leftText) +
		st.border.Render(strings.Repeat("─", dashes)) + st.status.Render(rightText) + st.border.Render("╯"))
	b.WriteString("\n")
	return b.String()
}
