package cmd

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/archsearch/internal/archive"
	"github.com/oakwood-commons/archsearch/internal/config"
	"github.com/oakwood-commons/archsearch/internal/devserver"
	"github.com/oakwood-commons/archsearch/pkg/logger"
)

var (
	serveAddr    string
	serveFail    []string
	serveEmpty   []string
	serveLatency time.Duration
	serveJitter  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the collections API from bundled fixtures",
	Long: `serve answers the collection list endpoints from fixtures so the overlay
can be exercised without the real site. Faults can be injected per category
to watch the fallback dataset take over, and latency with jitter makes
responses arrive out of order.`,
	Example: "\n  archsearch serve\n  archsearch serve --fail photos --empty references\n  archsearch serve --latency 200ms --jitter 600ms\n",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		s := settingsFrom(ctx)
		lgr := *logger.FromContext(ctx)
		config.LogServe(lgr, s)

		fail, err := archive.ParseCategories(s.Serve.Fail)
		if err != nil {
			return err
		}
		empty, err := archive.ParseCategories(s.Serve.Empty)
		if err != nil {
			return err
		}

		// absolute endpoint URLs point elsewhere and keep the default route
		routes := map[string]string{}
		for slug, path := range s.Collections.Endpoints {
			if strings.HasPrefix(path, "/") {
				routes[slug] = path
			}
		}

		srv, err := devserver.New(devserver.Config{
			Addr:      s.Serve.Addr,
			Latency:   s.Serve.Latency,
			Jitter:    s.Serve.Jitter,
			Fail:      fail,
			Empty:     empty,
			Endpoints: routes,
			Registry:  prometheus.NewRegistry(),
			Logger:    lgr,
		})
		if err != nil {
			return err
		}
		return srv.Start(ctx)
	},
}

func init() { //nolint:gochecknoinits
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8787", "listen address")
	serveCmd.Flags().StringSliceVar(&serveFail, "fail", nil, "answer 503 for these categories")
	serveCmd.Flags().StringSliceVar(&serveEmpty, "empty", nil, "answer with no data for these categories")
	serveCmd.Flags().DurationVar(&serveLatency, "latency", 0, "delay every response")
	serveCmd.Flags().DurationVar(&serveJitter, "jitter", 0, "add up to this much random delay")
}
