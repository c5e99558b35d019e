package cmd

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/archsearch/internal/archive"
	"github.com/oakwood-commons/archsearch/pkg/logger"
	"github.com/oakwood-commons/archsearch/pkg/settings"
)

var (
	queryOutput  string
	queryLimit   int
	queryExplain bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text...>",
	Short: "Run one federated search and print the grouped results",
	Long: `query settles the given text once, exactly as the overlay would after the
debounce interval, and prints the groups in display order. Every action is
shown with its flat index, the position arrow keys move through.`,
	Example: "\n  archsearch query greve\n  archsearch query greve geral -o json\n  archsearch query --offline tecelãs --explain\n",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s := settingsFrom(ctx)
		lgr := *logger.FromContext(ctx)

		if cmd.Flags().Changed("limit") {
			if queryLimit < 1 || queryLimit > archive.MaxGroupItems {
				return fmt.Errorf("--limit must be between 1 and %d, got %d", archive.MaxGroupItems, queryLimit)
			}
			s.Search.Limit = queryLimit
		}

		reg := prometheus.NewRegistry()
		searcher, err := newSearcher(s, reg, lgr)
		if err != nil {
			return err
		}
		stop, err := serveMetrics(s.Metrics.Addr, reg, lgr)
		if err != nil {
			return err
		}
		defer stop()

		batch := searcher.Search(ctx, strings.Join(args, " "))
		rep := buildReport(batch, s.Site.CatalogRoute, queryExplain)
		out := cmd.OutOrStdout()
		noColor := settings.RunFrom(ctx).NoColor || !isTerminal(out)
		return writeReport(out, rep, queryOutput, noColor, 0)
	},
}

func init() { //nolint:gochecknoinits
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "table", "output format: table|yaml|json|toml")
	queryCmd.Flags().IntVar(&queryLimit, "limit", archive.MaxGroupItems, "maximum items per category")
	queryCmd.Flags().BoolVar(&queryExplain, "explain", false, "include how each category was resolved")
}
