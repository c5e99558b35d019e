// Package overlay holds the search overlay session as an explicit state
// value. Every event is a method that returns the next state together with
// the side effect the caller must perform.
package overlay

import (
	"fmt"
	"strings"

	"github.com/oakwood-commons/archsearch/internal/archive"
	"github.com/oakwood-commons/archsearch/internal/flatten"
)

// EffectKind enumerates the side effects a transition can request.
type EffectKind int

const (
	// None requires no action.
	None EffectKind = iota
	// Fetch asks for a federated search of Query tagged with Generation.
	Fetch
	// Navigate asks the host to open Href.
	Navigate
)

func (k EffectKind) String() string {
	switch k {
	case Fetch:
		return "fetch"
	case Navigate:
		return "navigate"
	default:
		return "none"
	}
}

// Effect is the side effect produced by a transition.
type Effect struct {
	Kind       EffectKind
	Generation uint64
	Query      string
	Href       string

	// Action is the activated entry. It is nil for the catalog fallback.
	Action *flatten.Action
}

// DefaultCatalogRoute receives the query when there is nothing to activate.
const DefaultCatalogRoute = "/catalog"

// State is one overlay session. The zero value is not ready for use; call New.
type State struct {
	RawQuery     string
	SettledQuery string
	Groups       []archive.Group
	Actions      []flatten.Action
	Index        flatten.Index
	ActiveIndex  int
	IsOpen       bool
	IsLoading    bool

	// Generation increases on every settle. Only a completion carrying the
	// current generation may commit.
	Generation   uint64
	CatalogRoute string
}

// New returns an empty, closed session.
func New() State {
	return State{ActiveIndex: -1, CatalogRoute: DefaultCatalogRoute}
}

// Keystroke records the raw input and opens the panel.
func (s State) Keystroke(raw string) (State, Effect) {
	s.RawQuery = raw
	s.IsOpen = true
	return s, Effect{}
}

// Settle promotes the trimmed raw query to the settled query. The previous
// results are discarded either way; a non-empty query requests a fetch.
func (s State) Settle() (State, Effect) {
	s.Generation++
	s.SettledQuery = strings.TrimSpace(s.RawQuery)
	s = s.clearResults()
	if s.SettledQuery == "" {
		s.IsLoading = false
		return s, Effect{}
	}
	s.IsLoading = true
	return s, Effect{Kind: Fetch, Generation: s.Generation, Query: s.SettledQuery}
}

// Complete commits the groups of a finished fetch when generation is still
// current. It reports whether the batch was committed.
func (s State) Complete(generation uint64, groups []archive.Group) (State, bool) {
	if generation != s.Generation || s.SettledQuery == "" {
		return s, false
	}
	s.Groups = groups
	s.Actions, s.Index = flatten.Build(groups)
	s.ActiveIndex = -1
	s.IsLoading = false
	return s, true
}

// Down moves the selection one action down and opens the panel.
func (s State) Down() (State, Effect) {
	s.IsOpen = true
	s.ActiveIndex = min(s.ActiveIndex+1, len(s.Actions)-1)
	return s, Effect{}
}

// Up moves the selection one action up, down to no selection.
func (s State) Up() (State, Effect) {
	s.ActiveIndex = max(s.ActiveIndex-1, -1)
	return s, Effect{}
}

// Enter activates the selected action, the first action when nothing is
// selected, or the catalog route with the settled query when there are no
// actions. Activation closes the panel and clears the raw query.
func (s State) Enter() (State, Effect) {
	eff := Effect{Kind: Navigate}
	switch {
	case s.ActiveIndex >= 0 && s.ActiveIndex < len(s.Actions):
		a := s.Actions[s.ActiveIndex]
		eff.Href, eff.Action = a.Href, &a
	case len(s.Actions) > 0:
		a := s.Actions[0]
		eff.Href, eff.Action = a.Href, &a
	default:
		eff.Href = archive.CatalogHref(s.CatalogRoute, s.SettledQuery)
	}
	s.IsOpen = false
	s.RawQuery = ""
	return s, eff
}

// Escape closes the panel and drops the selection. The raw query stays.
func (s State) Escape() (State, Effect) {
	s.IsOpen = false
	s.ActiveIndex = -1
	return s, Effect{}
}

// PointerOutside closes the panel after a pointer event outside the overlay.
func (s State) PointerOutside() (State, Effect) {
	s.IsOpen = false
	return s, Effect{}
}

// Hover selects action i. Out of range indexes are ignored.
func (s State) Hover(i int) (State, Effect) {
	if i >= 0 && i < len(s.Actions) {
		s.ActiveIndex = i
	}
	return s, Effect{}
}

// Active returns the selected action.
func (s State) Active() (flatten.Action, bool) {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Actions) {
		return flatten.Action{}, false
	}
	return s.Actions[s.ActiveIndex], true
}

// Empty reports whether a settled query produced no groups.
func (s State) Empty() bool {
	return s.SettledQuery != "" && !s.IsLoading && len(s.Groups) == 0
}

// Invariant checks the consistency rules every transition must keep.
func (s State) Invariant() error {
	if s.ActiveIndex < -1 || s.ActiveIndex > len(s.Actions)-1 {
		return fmt.Errorf("active index %d outside [-1, %d]", s.ActiveIndex, len(s.Actions)-1)
	}
	if s.Index.Len() != len(s.Actions) {
		return fmt.Errorf("index holds %d slots for %d actions", s.Index.Len(), len(s.Actions))
	}
	want := 0
	for _, g := range s.Groups {
		if n := len(g.Items); n < 1 || n > archive.MaxGroupItems {
			return fmt.Errorf("group %s holds %d items", g.Category, n)
		}
		want += len(g.Items)
		if g.ListHref != "" {
			want++
		}
	}
	if want != len(s.Actions) {
		return fmt.Errorf("groups describe %d actions, have %d", want, len(s.Actions))
	}
	if s.SettledQuery == "" && len(s.Groups) > 0 {
		return fmt.Errorf("groups present for an empty settled query")
	}
	return nil
}

func (s State) clearResults() State {
	s.Groups = nil
	s.Actions = nil
	s.Index = flatten.Index{}
	s.ActiveIndex = -1
	return s
}
