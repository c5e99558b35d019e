package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/archsearch/internal/archive"
	"github.com/oakwood-commons/archsearch/internal/federation"
	"github.com/oakwood-commons/archsearch/internal/flatten"
)

// queryReport is the printable form of one settled query.
type queryReport struct {
	Query    string          `json:"query" yaml:"query" toml:"query"`
	Actions  int             `json:"actions" yaml:"actions" toml:"actions"`
	Catalog  string          `json:"catalog,omitempty" yaml:"catalog,omitempty" toml:"catalog,omitempty"`
	Groups   []groupReport   `json:"groups" yaml:"groups" toml:"groups"`
	Outcomes []outcomeReport `json:"outcomes,omitempty" yaml:"outcomes,omitempty" toml:"outcomes,omitempty"`
}

type groupReport struct {
	Category string         `json:"category" yaml:"category" toml:"category"`
	Label    string         `json:"label" yaml:"label" toml:"label"`
	Icon     string         `json:"icon" yaml:"icon" toml:"icon"`
	Items    []actionReport `json:"items" yaml:"items" toml:"items"`
	ViewAll  *actionReport  `json:"viewAll,omitempty" yaml:"viewAll,omitempty" toml:"view_all,omitempty"`
}

type actionReport struct {
	Index       int    `json:"index" yaml:"index" toml:"index"`
	ID          string `json:"id" yaml:"id" toml:"id"`
	Label       string `json:"label" yaml:"label" toml:"label"`
	Meta        string `json:"meta,omitempty" yaml:"meta,omitempty" toml:"meta,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Href        string `json:"href" yaml:"href" toml:"href"`
}

type outcomeReport struct {
	Category string `json:"category" yaml:"category" toml:"category"`
	Source   string `json:"source" yaml:"source" toml:"source"`
	Failed   bool   `json:"failed" yaml:"failed" toml:"failed"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty" toml:"error,omitempty"`
	Remote   int    `json:"remote" yaml:"remote" toml:"remote"`
	Fallback int    `json:"fallback" yaml:"fallback" toml:"fallback"`
	Visible  int    `json:"visible" yaml:"visible" toml:"visible"`
	Duration string `json:"duration" yaml:"duration" toml:"duration"`
}

// buildReport flattens the batch groups and attaches each action to its
// group in flat order. catalogRoute is reported when nothing matched.
func buildReport(batch federation.Batch, catalogRoute string, explain bool) queryReport {
	actions, idx := flatten.Build(batch.Groups)
	rep := queryReport{
		Query:   batch.Query,
		Actions: len(actions),
		Groups:  make([]groupReport, len(batch.Groups)),
	}
	for i, g := range batch.Groups {
		rep.Groups[i] = groupReport{Category: g.Category.String(), Label: g.Label, Icon: g.Icon}
	}

	for i, a := range actions {
		slot, ok := idx.At(i)
		if !ok {
			continue
		}
		ar := actionReport{Index: i, ID: a.ID, Label: a.Label, Href: a.Href}
		group := &rep.Groups[slot.Group]
		if slot.IsViewAll() {
			group.ViewAll = &ar
			continue
		}
		item := batch.Groups[slot.Group].Items[slot.Item]
		ar.Meta = item.Meta
		ar.Description = item.Description
		group.Items = append(group.Items, ar)
	}

	if len(actions) == 0 && batch.Query != "" {
		rep.Catalog = archive.CatalogHref(catalogRoute, batch.Query)
	}
	if explain {
		for _, o := range batch.Outcomes {
			rep.Outcomes = append(rep.Outcomes, outcomeReport{
				Category: o.Category.String(),
				Source:   string(o.Source),
				Failed:   o.Failed,
				Error:    o.Err,
				Remote:   len(o.Remote),
				Fallback: len(o.Fallback),
				Visible:  len(o.Visible),
				Duration: o.Duration.String(),
			})
		}
	}
	return rep
}

// writeReport encodes rep in the requested format.
func writeReport(w io.Writer, rep queryReport, format string, noColor bool, width int) error {
	switch strings.ToLower(format) {
	case "", "table":
		_, err := io.WriteString(w, renderReportTable(rep, noColor, width))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case "toml":
		if err := toml.NewEncoder(w).Encode(rep); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("invalid output %q (use table|yaml|json|toml)", format)
	}
}
