package ui

import (
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/oakwood-commons/archsearch/internal/overlay"
)

// ApplyStartupKeys simulates startup keypresses (Vim-like tokens and literal
// text) and mutates m in place. Input is settled after every segment that
// edited it, so scripted sessions see results without waiting on a timer.
func ApplyStartupKeys(m *Model, keys []string) {
	if len(keys) == 0 || m == nil {
		return
	}
	for _, raw := range keys {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		// Leading backslash forces literal text (e.g., "\\<Down>").
		if strings.HasPrefix(token, `\`) {
			for _, r := range strings.TrimPrefix(token, `\`) {
				m.press(tea.KeyPressMsg{Code: r, Text: string(r)})
			}
			m.settleNow()
			continue
		}
		for _, segment := range parseTokenSegments(token) {
			if segment.isVimKey {
				if msgs, ok := keyMsgsFromToken(segment.text); ok {
					for _, msg := range msgs {
						m.press(msg)
					}
				}
			} else {
				for _, r := range segment.text {
					m.press(tea.KeyPressMsg{Code: r, Text: string(r)})
				}
			}
			m.settleNow()
		}
	}
}

// press feeds one key to the model, dropping the scheduled commands.
func (m *Model) press(msg tea.KeyPressMsg) {
	_, _ = m.Update(msg)
}

// settleNow settles edited input and runs the resulting fetch inline.
func (m *Model) settleNow() {
	if !m.dirty {
		return
	}
	tag := m.debounce.Touch()
	m.Update(settleMsg{tag: tag})
	if !m.state.IsLoading {
		return
	}
	eff := overlay.Effect{Kind: overlay.Fetch, Generation: m.state.Generation, Query: m.state.SettledQuery}
	if msg, ok := m.fetch(eff)().(batchMsg); ok {
		m.Update(msg)
	}
}

// tokenSegment represents a parsed segment of a token (either a vim-style key or literal text)
type tokenSegment struct {
	text     string
	isVimKey bool
}

// parseTokenSegments splits a token into segments of vim-style keys and literal text.
// Example: "greve<Down>" -> [segment{text: "greve", isVimKey: false}, segment{text: "<Down>", isVimKey: true}]
func parseTokenSegments(token string) []tokenSegment {
	var segments []tokenSegment
	remaining := token

	for len(remaining) > 0 {
		// Look for vim-style key pattern: <...>
		startIdx := strings.Index(remaining, "<")
		if startIdx == -1 {
			// No more vim-style keys, rest is literal text
			if len(remaining) > 0 {
				segments = append(segments, tokenSegment{text: remaining, isVimKey: false})
			}
			break
		}

		// Add any literal text before the vim-style key
		if startIdx > 0 {
			segments = append(segments, tokenSegment{text: remaining[:startIdx], isVimKey: false})
		}

		// Find the closing >
		endIdx := strings.Index(remaining[startIdx:], ">")
		if endIdx == -1 {
			// No closing >, treat rest as literal text
			segments = append(segments, tokenSegment{text: remaining[startIdx:], isVimKey: false})
			break
		}

		// Extract the vim-style key (including < and >)
		vimKey := remaining[startIdx : startIdx+endIdx+1]
		segments = append(segments, tokenSegment{text: vimKey, isVimKey: true})

		// Continue with the rest of the token
		remaining = remaining[startIdx+endIdx+1:]
	}

	return segments
}

// keyMsgsFromToken parses a Vim-like token into key messages.
// Examples: "<Esc>", "<CR>", "<Down>", "<Space>", "<BS>", "<C-n>", "<C-[>".
// Only <...> forms are treated as keys; everything else is literal text.
func keyMsgsFromToken(token string) ([]tea.KeyPressMsg, bool) {
	if token == "" {
		return nil, false
	}
	if strings.HasPrefix(token, "<") && strings.HasSuffix(token, ">") {
		inner := strings.TrimSuffix(strings.TrimPrefix(token, "<"), ">")
		lower := strings.ToLower(inner)
		switch lower {
		case "esc", "c-[", "escape":
			return []tea.KeyPressMsg{{Code: tea.KeyEscape}}, true
		case "cr", "enter", "return":
			return []tea.KeyPressMsg{{Code: tea.KeyEnter}}, true
		case "space":
			return []tea.KeyPressMsg{{Code: ' ', Text: " "}}, true
		case "bs", "backspace":
			return []tea.KeyPressMsg{{Code: tea.KeyBackspace}}, true
		case "left":
			return []tea.KeyPressMsg{{Code: tea.KeyLeft}}, true
		case "right":
			return []tea.KeyPressMsg{{Code: tea.KeyRight}}, true
		case "up":
			return []tea.KeyPressMsg{{Code: tea.KeyUp}}, true
		case "down":
			return []tea.KeyPressMsg{{Code: tea.KeyDown}}, true
		case "c-c":
			return []tea.KeyPressMsg{{Code: 'c', Mod: tea.ModCtrl}}, true
		case "c-n":
			return []tea.KeyPressMsg{{Code: 'n', Mod: tea.ModCtrl}}, true
		case "c-p":
			return []tea.KeyPressMsg{{Code: 'p', Mod: tea.ModCtrl}}, true
		case "c-y":
			return []tea.KeyPressMsg{{Code: 'y', Mod: tea.ModCtrl}}, true
		case "c-u":
			return []tea.KeyPressMsg{{Code: 'u', Mod: tea.ModCtrl}}, true
		}
		return nil, false
	}
	return nil, false
}
