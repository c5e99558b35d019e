package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/oakwood-commons/archsearch/internal/config"
	"github.com/oakwood-commons/archsearch/internal/ui"
	"github.com/oakwood-commons/archsearch/pkg/logger"
	"github.com/oakwood-commons/archsearch/pkg/settings"
)

var (
	configFile     string
	debug          bool
	logFile        string
	noColor        bool
	offline        bool
	collectionsURL string
	debounce       time.Duration
	metricsAddr    string
	fallbackEmpty  bool
	timeout        time.Duration

	renderSnapshot bool
	startKeys      []string
	snapshotWidth  int
	snapshotHeight int
)

type settingsKey struct{}

func withSettings(ctx context.Context, s *config.Settings) context.Context {
	return context.WithValue(ctx, settingsKey{}, s)
}

// settingsFrom returns the settings loaded by the pre-run hook, or the
// defaults when a command runs without it.
func settingsFrom(ctx context.Context) *config.Settings {
	if s, ok := ctx.Value(settingsKey{}).(*config.Settings); ok && s != nil {
		return s
	}
	s, err := config.LoadSettings()
	if err != nil {
		return &config.Settings{}
	}
	return s
}

var rootCmd = &cobra.Command{
	Use:   settings.CliBinaryName,
	Short: "Search the archive collections as you type",
	Long: `archsearch opens a search overlay over the archive collections.

Typing settles into one federated query across documents, photo archives,
periodicals, testimonials, references and personal archives. Categories whose
collection fails, or answers with nothing, are filled from the bundled
dataset. Enter follows the highlighted result and prints its address.`,
	Example: "\n  archsearch\n  archsearch --offline --press 'greve<Down><CR>'\n  archsearch --snapshot --no-color --width 80 --height 20 --press greve\n  archsearch query greve geral -o yaml --explain\n  archsearch serve --fail photos --latency 300ms --jitter 400ms\n",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		run := runParams(cmd, s)

		lgr := logger.Get(run.MinLogLevel, sinkOptions(run)...)
		lgr = logger.WithValues(lgr, logger.RootCommandKey, settings.CliBinaryName, logger.SubCommandKey, cmd.Name())

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = logger.WithLogger(ctx, lgr)
		ctx = settings.IntoContext(ctx, run)
		ctx = withSettings(ctx, s)
		cmd.SetContext(ctx)

		config.Log(*lgr, s)
		return nil
	},
	RunE: runOverlay,
}

// loadSettings merges defaults, config file, .env, environment and the flags
// of cmd, then validates the result.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	s, err := config.LoadSettingsWithFlags(cmd.Flags(), config.ResolveConfigPath(configFile))
	if err != nil {
		return nil, err
	}
	if err := config.ValidateSettings(s); err != nil {
		return nil, err
	}
	return s, nil
}

// runParams derives the per-run settings. The overlay owns the terminal
// unless it only renders a snapshot.
func runParams(cmd *cobra.Command, s *config.Settings) *settings.Run {
	run := settings.NewCliParams()
	if s.Log.Debug {
		run.MinLogLevel = -1
	}
	run.LogFile = s.Log.File
	run.NoColor = s.UI.NoColor
	switch {
	case cmd.Name() == "serve":
		run.Mode = settings.ModeServe
	case cmd.HasParent() || renderSnapshot:
		run.Mode = settings.ModeQuery
	}
	return run
}

// sinkOptions keeps log lines off the screen while the overlay is running.
func sinkOptions(run *settings.Run) []logger.Option {
	if run.LogFile != "" {
		return []logger.Option{logger.ToFile(run.LogFile)}
	}
	if run.Interactive() {
		return []logger.Option{logger.Discarding()}
	}
	return nil
}

func runOverlay(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s := settingsFrom(ctx)
	lgr := *logger.FromContext(ctx)
	run := settings.RunFrom(ctx)

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

	opts := ui.Options{
		Searcher:       searcher,
		Debounce:       s.Search.Debounce,
		CatalogRoute:   s.Site.CatalogRoute,
		BaseURL:        s.Site.BaseURL,
		ExitOnActivate: s.UI.ExitOnActivate,
		OpenExternal:   s.UI.OpenExternal,
		NoColor:        run.NoColor,
		Width:          snapshotWidth,
		Height:         snapshotHeight,
		Context:        ctx,
		Logger:         lgr,
	}

	if !run.Interactive() {
		size := resolveSnapshotSize(snapshotWidth, snapshotHeight)
		opts.Width, opts.Height = size.Width, size.Height
		// bubbletea is never started here, so nothing can open a browser.
		opts.OpenExternal = false
		view := ui.RenderSnapshot(ui.SnapshotConfig{Options: opts, StartKeys: startKeys})
		fmt.Fprintln(cmd.OutOrStdout(), view)
		return nil
	}

	href, err := ui.Run(ui.RunConfig{Options: opts, StartKeys: startKeys})
	if err != nil {
		return fmt.Errorf("run overlay: %w", err)
	}
	if href != "" {
		fmt.Fprintln(cmd.OutOrStdout(), href)
	}
	return nil
}

func init() { //nolint:gochecknoinits
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config-file", "", "path to a YAML config file (default $XDG_CONFIG_HOME/archsearch/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "log at debug level")
	pf.StringVar(&logFile, "log-file", "", "append log entries to this file")
	pf.BoolVar(&noColor, "no-color", false, "disable color output")
	pf.BoolVar(&offline, "offline", false, "skip the remote collections and search the bundled dataset only")
	pf.StringVar(&collectionsURL, "collections-url", "", "base URL of the remote collections")
	pf.DurationVar(&debounce, "debounce", 0, "quiet interval before a query settles (default 240ms)")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	pf.BoolVar(&fallbackEmpty, "fallback-on-empty", true, "use the bundled dataset when a collection answers with no results")
	pf.DurationVar(&timeout, "timeout", 0, "per-collection request timeout (default none)")

	rootCmd.Flags().StringArrayVar(&startKeys, "press", nil, "Simulate keys on startup. Use <Key> for special keys (e.g. <Down>, <CR>, <Esc>). Literal text types normally. Example: --press \"greve<Down><CR>\"")
	rootCmd.Flags().BoolVar(&renderSnapshot, "snapshot", false, "render a single overlay snapshot and exit; honors --width/--height")
	rootCmd.Flags().IntVar(&snapshotWidth, "width", 0, "overlay width in columns")
	rootCmd.Flags().IntVar(&snapshotHeight, "height", 0, "overlay height in rows")

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
