// Package flatten turns per-category result lists into ordered groups and
// derives the single flat action list used for keyboard and pointer
// traversal, together with an explicit map from flat index to group slot.
package flatten

import (
	"github.com/oakwood-commons/archsearch/internal/archive"
	"github.com/oakwood-commons/archsearch/internal/limiter"
)

// Kind distinguishes concrete results from "view all" sentinels.
type Kind string

const (
	KindItem    Kind = "item"
	KindViewAll Kind = "view-all"
)

// ViewAll is the Slot.Item value of a group's "view all" sentinel.
const ViewAll = -1

// Action is one activatable entry of the flattened list.
type Action struct {
	ID       string           `json:"id" yaml:"id"`
	Href     string           `json:"href" yaml:"href"`
	Label    string           `json:"label" yaml:"label"`
	Kind     Kind             `json:"kind" yaml:"kind"`
	Category archive.Category `json:"category" yaml:"category"`
}

// Slot locates a flat index inside the grouped structure.
type Slot struct {
	Category archive.Category
	Group    int // position of the group in the group list
	Item     int // item position, or ViewAll
}

// IsViewAll reports whether the slot is a group's sentinel.
func (s Slot) IsViewAll() bool { return s.Item == ViewAll }

// Index maps flat positions to slots and back. The zero value is empty.
type Index struct {
	slots []Slot
	base  map[archive.Category]int
}

// Len returns the number of flat positions.
func (x Index) Len() int { return len(x.slots) }

// At returns the slot at flat position i.
func (x Index) At(i int) (Slot, bool) {
	if i < 0 || i >= len(x.slots) {
		return Slot{}, false
	}
	return x.slots[i], true
}

// Base returns the flat index of the first action of category c.
func (x Index) Base(c archive.Category) (int, bool) {
	b, ok := x.base[c]
	return b, ok
}

// Position returns the flat index of item (or ViewAll) within category c.
func (x Index) Position(c archive.Category, item int) (int, bool) {
	base, ok := x.base[c]
	if !ok {
		return 0, false
	}
	for i := base; i < len(x.slots) && x.slots[i].Category == c; i++ {
		if x.slots[i].Item == item {
			return i, true
		}
	}
	return 0, false
}

// Groups assembles the visible groups in category order. Categories with no
// items are dropped and every group is capped at MaxGroupItems.
func Groups(visible map[archive.Category][]archive.Result, descriptors archive.Descriptors) []archive.Group {
	capCfg := limiter.Config{Limit: archive.MaxGroupItems}
	var groups []archive.Group
	for _, c := range archive.Categories() {
		items := limiter.Apply(capCfg, visible[c])
		if len(items) == 0 {
			continue
		}
		desc := descriptors.Lookup(c)
		groups = append(groups, archive.Group{
			Category: c,
			Label:    desc.Label,
			Icon:     desc.Icon,
			ListHref: desc.ListHref,
			Items:    append([]archive.Result(nil), items...),
		})
	}
	return groups
}

// Build flattens groups into actions: each group's items in order, then one
// "view all" action when the group declares a list href. The index map is
// rebuilt from scratch on every call.
func Build(groups []archive.Group) ([]Action, Index) {
	var actions []Action
	idx := Index{base: make(map[archive.Category]int, len(groups))}

	for g, group := range groups {
		idx.base[group.Category] = len(actions)
		slug := group.Category.String()
		for i, item := range group.Items {
			actions = append(actions, Action{
				ID:       slug + ":" + item.ID,
				Href:     item.Href,
				Label:    item.Title,
				Kind:     KindItem,
				Category: group.Category,
			})
			idx.slots = append(idx.slots, Slot{Category: group.Category, Group: g, Item: i})
		}
		if group.ListHref != "" {
			actions = append(actions, Action{
				ID:       slug + ":view-all",
				Href:     group.ListHref,
				Label:    "View all " + group.Label,
				Kind:     KindViewAll,
				Category: group.Category,
			})
			idx.slots = append(idx.slots, Slot{Category: group.Category, Group: g, Item: ViewAll})
		}
	}
	return actions, idx
}
