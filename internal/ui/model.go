// Package ui is the terminal search overlay: a query input with a grouped,
// keyboard and pointer navigable result panel.
package ui

import (
	"context"
	"net/url"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/go-logr/logr"

	"github.com/oakwood-commons/archsearch/internal/federation"
	"github.com/oakwood-commons/archsearch/internal/overlay"
)

// Searcher answers a settled query.
type Searcher interface {
	Search(ctx context.Context, query string) federation.Batch
}

// Options configures a Model.
type Options struct {
	Searcher       Searcher
	Debounce       time.Duration
	CatalogRoute   string
	BaseURL        string
	ExitOnActivate bool
	OpenExternal   bool
	NoColor        bool
	Theme          *Theme
	Width          int
	Height         int
	Context        context.Context
	Logger         logr.Logger
}

// settleMsg fires when the debounce interval of input change tag elapses.
type settleMsg struct{ tag int }

// batchMsg carries a finished federated search.
type batchMsg struct {
	generation uint64
	batch      federation.Batch
}

// platformMsg reports the outcome of an open or copy request.
type platformMsg struct {
	verb   string
	target string
	err    error
}

// Model is the bubbletea model of the overlay.
type Model struct {
	state    overlay.State
	debounce overlay.Debouncer
	interval time.Duration

	searcher Searcher
	ctx      context.Context
	lgr      logr.Logger

	input   textinput.Model
	spinner spinner.Model
	keys    keyMap
	help    help.Model
	styles  styles
	noColor bool

	baseURL        string
	exitOnActivate bool
	openExternal   bool

	width  int
	height int

	// rows maps rendered line numbers to action indexes (-1 for non-action
	// lines). It is rebuilt by every render.
	rows []int

	// dirty is set while an input edit has not settled yet.
	dirty bool

	activated string
	status    string
	statusErr bool
}

// NewModel returns a Model with an empty session.
func NewModel(opts Options) *Model {
	if opts.Debounce <= 0 {
		opts.Debounce = overlay.DefaultDebounce
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	if opts.Width <= 0 {
		opts.Width = 80
	}
	if opts.Height <= 0 {
		opts.Height = 24
	}
	theme := DefaultTheme()
	if opts.Theme != nil {
		theme = *opts.Theme
	}

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "Search the archive"
	ti.CharLimit = 200
	ti.SetWidth(opts.Width - 4)
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	state := overlay.New()
	if opts.CatalogRoute != "" {
		state.CatalogRoute = opts.CatalogRoute
	}

	return &Model{
		state:          state,
		interval:       opts.Debounce,
		searcher:       opts.Searcher,
		ctx:            opts.Context,
		lgr:            opts.Logger,
		input:          ti,
		spinner:        sp,
		keys:           defaultKeyMap(),
		help:           help.New(),
		styles:         newStyles(theme, opts.NoColor),
		noColor:        opts.NoColor,
		baseURL:        opts.BaseURL,
		exitOnActivate: opts.ExitOnActivate,
		openExternal:   opts.OpenExternal,
		width:          opts.Width,
		height:         opts.Height,
	}
}

// State returns the current overlay session.
func (m *Model) State() overlay.State { return m.state }

// Activated returns the resolved href of the last activation.
func (m *Model) Activated() string { return m.activated }

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(max(10, m.width-4))
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.PasteMsg:
		return m.updateInput(msg)

	case tea.MouseMotionMsg:
		if i := m.actionAt(msg.Mouse().Y); i >= 0 {
			m.state, _ = m.state.Hover(i)
		}
		return m, nil

	case tea.MouseClickMsg:
		return m.handleClick(msg.Mouse())

	case settleMsg:
		if !m.debounce.Fire(msg.tag) {
			return m, nil
		}
		m.dirty = false
		var eff overlay.Effect
		m.state, eff = m.state.Settle()
		if eff.Kind != overlay.Fetch {
			return m, nil
		}
		return m, tea.Batch(m.fetch(eff), m.spinner.Tick)

	case batchMsg:
		next, ok := m.state.Complete(msg.generation, msg.batch.Groups)
		if !ok {
			m.lgr.V(2).Info("discarded stale batch", "generation", msg.generation, "current", m.state.Generation, "query", msg.batch.Query)
			return m, nil
		}
		m.state = next
		m.lgr.V(1).Info("batch committed", "generation", msg.generation, "query", msg.batch.Query, "groups", len(next.Groups), "actions", len(next.Actions))
		return m, nil

	case spinner.TickMsg:
		if !m.state.IsLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case platformMsg:
		if msg.err != nil {
			m.setStatus(msg.verb+" failed: "+msg.err.Error(), true)
			m.lgr.Error(msg.err, "platform action failed", "verb", msg.verb, "target", msg.target)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.state, _ = m.state.Up()
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.state, _ = m.state.Down()
		return m, nil
	case key.Matches(msg, m.keys.Enter):
		var eff overlay.Effect
		m.state, eff = m.state.Enter()
		return m, m.activate(eff)
	case key.Matches(msg, m.keys.Close):
		if !m.state.IsOpen {
			return m, tea.Quit
		}
		m.state, _ = m.state.Escape()
		return m, nil
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyActive()
	}
	return m.updateInput(msg)
}

// updateInput hands msg to the text input and schedules a settle when the
// value changed.
func (m *Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() == before {
		return m, cmd
	}
	m.state, _ = m.state.Keystroke(m.input.Value())
	m.dirty = true
	m.status = ""
	tag := m.debounce.Touch()
	settle := tea.Tick(m.interval, func(time.Time) tea.Msg { return settleMsg{tag: tag} })
	return m, tea.Batch(cmd, settle)
}

func (m *Model) handleClick(mouse tea.Mouse) (tea.Model, tea.Cmd) {
	if mouse.Button != tea.MouseLeft {
		return m, nil
	}
	if i := m.actionAt(mouse.Y); i >= 0 {
		var eff overlay.Effect
		m.state, _ = m.state.Hover(i)
		m.state, eff = m.state.Enter()
		return m, m.activate(eff)
	}
	if !m.inRegion(mouse.Y) {
		m.state, _ = m.state.PointerOutside()
	}
	return m, nil
}

func (m *Model) fetch(eff overlay.Effect) tea.Cmd {
	searcher, ctx := m.searcher, m.ctx
	if searcher == nil {
		return func() tea.Msg {
			return batchMsg{generation: eff.Generation, batch: federation.Batch{Query: eff.Query}}
		}
	}
	return func() tea.Msg {
		return batchMsg{generation: eff.Generation, batch: searcher.Search(ctx, eff.Query)}
	}
}

// activate performs a navigation effect: external links are opened, site
// routes are resolved against the base URL.
func (m *Model) activate(eff overlay.Effect) tea.Cmd {
	if eff.Kind != overlay.Navigate || eff.Href == "" {
		return nil
	}
	m.input.Reset()
	m.debounce.Cancel()
	m.dirty = false
	// the cleared input settles at once so no earlier results survive
	m.state, _ = m.state.Settle()

	target := m.resolve(eff.Href)
	m.activated = target
	m.lgr.Info("activated", "href", eff.Href, "target", target)

	var cmds []tea.Cmd
	if isExternal(eff.Href) && m.openExternal {
		cmds = append(cmds, func() tea.Msg {
			return platformMsg{verb: "open", target: target, err: OpenURL(target)}
		})
	}
	if m.exitOnActivate {
		cmds = append(cmds, tea.Quit)
		return tea.Sequence(cmds...)
	}
	m.setStatus("→ "+target, false)
	return tea.Batch(cmds...)
}

func (m *Model) copyActive() tea.Cmd {
	a, ok := m.state.Active()
	if !ok {
		return nil
	}
	target := m.resolve(a.Href)
	m.setStatus("copied "+target, false)
	return func() tea.Msg {
		return platformMsg{verb: "copy", target: target, err: CopyToClipboard(target)}
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) resolve(href string) string {
	if isExternal(href) || m.baseURL == "" {
		return href
	}
	return strings.TrimRight(m.baseURL, "/") + "/" + strings.TrimLeft(href, "/")
}

func isExternal(href string) bool {
	u, err := url.Parse(href)
	return err == nil && u.IsAbs()
}

func (m *Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	v.MouseMode = tea.MouseModeAllMotion
	return v
}
