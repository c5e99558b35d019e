package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/archsearch/internal/archive"
	"github.com/oakwood-commons/archsearch/internal/devserver"
	"github.com/oakwood-commons/archsearch/pkg/settings"
)

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	// Isolate from user config by pointing XDG_CONFIG_HOME to a temp dir.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func startCollections(t *testing.T, cfg devserver.Config) string {
	t.Helper()
	cfg.Logger = logr.Discard()
	srv, err := devserver.New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestQueryTableOffline(t *testing.T) {
	out, err := runCLI(t, "query", "greve", "--offline", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "archsearch")
	assert.Contains(t, out, "▤ Documents")
	assert.Contains(t, out, "View all Documents →")
	assert.Contains(t, out, "/documents/manifesto-greve-geral-1917")
	assert.Contains(t, out, " greve ")
	assert.NotContains(t, out, "\x1b[")
}

func TestQueryJSONKeepsCategoryOrderAndFlatIndexes(t *testing.T) {
	out, err := runCLI(t, "query", "greve", "--offline", "-o", "json")
	require.NoError(t, err)

	var rep queryReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "greve", rep.Query)
	require.NotEmpty(t, rep.Groups)
	assert.Equal(t, "documents", rep.Groups[0].Category)

	order := map[string]int{}
	for i, c := range archive.Categories() {
		order[c.String()] = i
	}
	next := 0
	for i, g := range rep.Groups {
		if i > 0 {
			assert.Less(t, order[rep.Groups[i-1].Category], order[g.Category])
		}
		require.NotEmpty(t, g.Items)
		assert.LessOrEqual(t, len(g.Items), archive.MaxGroupItems)
		for _, it := range g.Items {
			assert.Equal(t, next, it.Index)
			next++
		}
		require.NotNil(t, g.ViewAll)
		assert.Equal(t, next, g.ViewAll.Index)
		assert.Equal(t, g.Category+":view-all", g.ViewAll.ID)
		next++
	}
	assert.Equal(t, rep.Actions, next)
	assert.Empty(t, rep.Outcomes)
}

func TestQueryLimitCapsGroups(t *testing.T) {
	out, err := runCLI(t, "query", "greve", "--offline", "--limit", "1", "-o", "json")
	require.NoError(t, err)

	var rep queryReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	for _, g := range rep.Groups {
		assert.Len(t, g.Items, 1, g.Category)
	}

	_, err = runCLI(t, "query", "greve", "--offline", "--limit", "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--limit")
}

func TestQueryNoResultsReportsCatalog(t *testing.T) {
	out, err := runCLI(t, "query", "zzzz", "--offline", "-o", "json")
	require.NoError(t, err)

	var rep queryReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Empty(t, rep.Groups)
	assert.Equal(t, 0, rep.Actions)
	assert.Equal(t, "/catalog?q=zzzz", rep.Catalog)

	out, err = runCLI(t, "query", "zzzz", "--offline", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "No results for “zzzz”")
}

func TestQueryExplainAgainstCollections(t *testing.T) {
	url := startCollections(t, devserver.Config{Fail: []archive.Category{archive.Photos}})
	out, err := runCLI(t, "query", "greve", "--collections-url", url, "--explain", "-o", "yaml")
	require.NoError(t, err)

	var rep queryReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Outcomes, len(archive.Categories()))

	byCategory := map[string]outcomeReport{}
	for _, o := range rep.Outcomes {
		byCategory[o.Category] = o
	}
	assert.Equal(t, "remote", byCategory["documents"].Source)
	assert.Equal(t, 3, byCategory["documents"].Remote)
	assert.True(t, byCategory["photos"].Failed)
	assert.Equal(t, "fallback", byCategory["photos"].Source)
	assert.Equal(t, "fallback", byCategory["personal-archives"].Source)

	require.NotEmpty(t, rep.Groups)
	assert.Equal(t, "/documents/boletim-greve-geral-1917", rep.Groups[0].Items[0].Href)
}

func TestQueryStrictPolicyKeepsEmptyRemote(t *testing.T) {
	url := startCollections(t, devserver.Config{Empty: []archive.Category{archive.Documents}})
	out, err := runCLI(t, "query", "greve", "--collections-url", url, "--fallback-on-empty=false", "--explain", "-o", "json")
	require.NoError(t, err)

	var rep queryReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	for _, g := range rep.Groups {
		assert.NotEqual(t, "documents", g.Category)
	}
	for _, o := range rep.Outcomes {
		if o.Category == "documents" {
			assert.Equal(t, "none", o.Source)
			assert.False(t, o.Failed)
		}
	}
}

func TestQueryTOML(t *testing.T) {
	out, err := runCLI(t, "query", "greve", "--offline", "-o", "toml")
	require.NoError(t, err)

	var rep queryReport
	require.NoError(t, toml.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "greve", rep.Query)
	assert.NotEmpty(t, rep.Groups)
}

func TestQueryRejectsUnknownOutput(t *testing.T) {
	_, err := runCLI(t, "query", "greve", "--offline", "-o", "csv")
	require.Error(t, err)
}

func TestConfigOutputs(t *testing.T) {
	out, err := runCLI(t, "config", "--debounce", "500ms")
	require.NoError(t, err)
	assert.Contains(t, out, "debounce: 500ms")
	assert.Contains(t, out, "catalog_route: /catalog")

	t.Setenv("ARCHSEARCH_SEARCH_LIMIT", "3")
	out, err = runCLI(t, "config", "-o", "json")
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	search, ok := decoded["search"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 3, search["limit"])
}

func TestInvalidSettingsFailBeforeRunning(t *testing.T) {
	_, err := runCLI(t, "query", "greve", "--collections-url", "ftp://nowhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collections.base_url")
}

func TestVersionIgnoresConfig(t *testing.T) {
	out, err := runCLI(t, "version", "--config-file", "/does/not/exist.yaml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "archsearch "), out)
}

func TestSnapshotFlag(t *testing.T) {
	out, err := runCLI(t, "--snapshot", "--offline", "--no-color", "--width", "70", "--height", "16", "--press", "greve<Down>")
	require.NoError(t, err)

	assert.Contains(t, out, "⌕ greve")
	assert.Contains(t, out, "▤ Documents")
	assert.Contains(t, out, "›")
	assert.NotContains(t, out, "\x1b[")
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 16)
}

func TestRunParams(t *testing.T) {
	s := settingsFrom(context.Background())

	resetFlags(rootCmd)
	run := runParams(rootCmd, s)
	assert.True(t, run.Interactive())
	assert.Len(t, sinkOptions(run), 1)

	assert.Equal(t, "serve", string(runParams(serveCmd, s).Mode))
	assert.Equal(t, "query", string(runParams(queryCmd, s).Mode))
	assert.Empty(t, sinkOptions(runParams(queryCmd, s)))
}

func TestPreRunStoresRunParams(t *testing.T) {
	_, err := runCLI(t, "config", "--no-color", "--debug")
	require.NoError(t, err)

	run, ok := settings.FromContext(configCmd.Context())
	require.True(t, ok)
	assert.Equal(t, settings.ModeQuery, run.Mode)
	assert.True(t, run.NoColor)
	assert.Equal(t, int8(-1), run.MinLogLevel)
}
