// Package config loads archsearch settings from defaults, an optional config
// file, a .env file, the environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/oakwood-commons/archsearch/internal/archive"
)

// EnvPrefix prefixes every environment variable read by LoadSettings.
const EnvPrefix = "ARCHSEARCH"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid settings")

// SearchSettings controls debouncing and merging.
type SearchSettings struct {
	Debounce        time.Duration `mapstructure:"debounce" yaml:"debounce" json:"debounce" toml:"debounce"`
	Limit           int           `mapstructure:"limit" yaml:"limit" json:"limit" toml:"limit"`
	FallbackOnEmpty bool          `mapstructure:"fallback_on_empty" yaml:"fallback_on_empty" json:"fallback_on_empty" toml:"fallback_on_empty"`
}

// SiteSettings describes the site the overlay navigates within.
type SiteSettings struct {
	BaseURL      string `mapstructure:"base_url" yaml:"base_url" json:"base_url" toml:"base_url"`
	CatalogRoute string `mapstructure:"catalog_route" yaml:"catalog_route" json:"catalog_route" toml:"catalog_route"`
}

// BreakerSettings configures the optional per-collection circuit breaker.
type BreakerSettings struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled" toml:"enabled"`
	Failures uint32        `mapstructure:"failures" yaml:"failures" json:"failures" toml:"failures"`
	Cooldown time.Duration `mapstructure:"cooldown" yaml:"cooldown" json:"cooldown" toml:"cooldown"`
}

// CollectionsSettings configures the remote collection clients.
type CollectionsSettings struct {
	BaseURL   string            `mapstructure:"base_url" yaml:"base_url" json:"base_url" toml:"base_url"`
	Endpoints map[string]string `mapstructure:"endpoints" yaml:"endpoints" json:"endpoints" toml:"endpoints"`
	Timeout   time.Duration     `mapstructure:"timeout" yaml:"timeout" json:"timeout" toml:"timeout"`
	Offline   bool              `mapstructure:"offline" yaml:"offline" json:"offline" toml:"offline"`
	Breaker   BreakerSettings   `mapstructure:"breaker" yaml:"breaker" json:"breaker" toml:"breaker"`
}

// FallbackSettings points at an optional directory of dataset overrides.
type FallbackSettings struct {
	Dir string `mapstructure:"dir" yaml:"dir" json:"dir" toml:"dir"`
}

// UISettings configures the terminal overlay.
type UISettings struct {
	ExitOnActivate bool `mapstructure:"exit_on_activate" yaml:"exit_on_activate" json:"exit_on_activate" toml:"exit_on_activate"`
	NoColor        bool `mapstructure:"no_color" yaml:"no_color" json:"no_color" toml:"no_color"`
	OpenExternal   bool `mapstructure:"open_external" yaml:"open_external" json:"open_external" toml:"open_external"`
}

// LogSettings configures the log sink.
type LogSettings struct {
	File  string `mapstructure:"file" yaml:"file" json:"file" toml:"file"`
	Debug bool   `mapstructure:"debug" yaml:"debug" json:"debug" toml:"debug"`
}

// MetricsSettings configures the prometheus endpoint.
type MetricsSettings struct {
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr" toml:"addr"`
}

// ServeSettings configures the development collections server.
type ServeSettings struct {
	Addr    string        `mapstructure:"addr" yaml:"addr" json:"addr" toml:"addr"`
	Latency time.Duration `mapstructure:"latency" yaml:"latency" json:"latency" toml:"latency"`
	Jitter  time.Duration `mapstructure:"jitter" yaml:"jitter" json:"jitter" toml:"jitter"`
	Fail    []string      `mapstructure:"fail" yaml:"fail" json:"fail" toml:"fail"`
	Empty   []string      `mapstructure:"empty" yaml:"empty" json:"empty" toml:"empty"`
}

// Settings is the full application configuration.
type Settings struct {
	Search      SearchSettings      `mapstructure:"search" yaml:"search" json:"search" toml:"search"`
	Site        SiteSettings        `mapstructure:"site" yaml:"site" json:"site" toml:"site"`
	Collections CollectionsSettings `mapstructure:"collections" yaml:"collections" json:"collections" toml:"collections"`
	Fallback    FallbackSettings    `mapstructure:"fallback" yaml:"fallback" json:"fallback" toml:"fallback"`
	UI          UISettings          `mapstructure:"ui" yaml:"ui" json:"ui" toml:"ui"`
	Log         LogSettings         `mapstructure:"log" yaml:"log" json:"log" toml:"log"`
	Metrics     MetricsSettings     `mapstructure:"metrics" yaml:"metrics" json:"metrics" toml:"metrics"`
	Serve       ServeSettings       `mapstructure:"serve" yaml:"serve" json:"serve" toml:"serve"`
}

// DefaultEndpoints returns the collection paths, keyed by category slug.
func DefaultEndpoints() map[string]string {
	return map[string]string{
		archive.Documents.String():    "/api/documents",
		archive.Photos.String():       "/api/photo-albums",
		archive.Periodicals.String():  "/api/periodicals",
		archive.Testimonials.String(): "/api/testimonials",
		archive.References.String():   "/api/references",
	}
}

// flagBindings maps settings keys to the flag names that override them.
var flagBindings = map[string]string{
	"search.debounce":          "debounce",
	"search.fallback_on_empty": "fallback-on-empty",
	"collections.base_url":     "collections-url",
	"collections.offline":      "offline",
	"collections.timeout":      "timeout",
	"ui.no_color":              "no-color",
	"log.file":                 "log-file",
	"log.debug":                "debug",
	"metrics.addr":             "metrics-addr",
	"serve.addr":               "addr",
	"serve.latency":            "latency",
	"serve.jitter":             "jitter",
	"serve.fail":               "fail",
	"serve.empty":              "empty",
}

// LoadSettings loads settings from environment variables, an optional .env
// file and defaults.
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil, "")
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > config file > defaults.
// Flags that are absent from the set are ignored.
func LoadSettingsWithFlags(flags *pflag.FlagSet, configFile string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key := range flagBindings {
		_ = v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
	for slug := range DefaultEndpoints() {
		key := "collections.endpoints." + slug
		_ = v.BindEnv(key, EnvPrefix+"_COLLECTIONS_ENDPOINTS_"+strings.ToUpper(strings.ReplaceAll(slug, "-", "_")))
	}

	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	// .env is layered on top of the config file and below the environment
	env := viper.New()
	env.SetConfigName(".env")
	env.SetConfigType("env")
	env.AddConfigPath(".")
	if err := env.ReadInConfig(); err == nil {
		applyDotEnv(v, env, flags)
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	if settings.Collections.Endpoints == nil {
		settings.Collections.Endpoints = map[string]string{}
	}
	for slug, path := range DefaultEndpoints() {
		if _, ok := settings.Collections.Endpoints[slug]; !ok {
			settings.Collections.Endpoints[slug] = path
		}
	}
	settings.Serve.Fail = splitList(settings.Serve.Fail)
	settings.Serve.Empty = splitList(settings.Serve.Empty)
	settings.Log.File = expandHomeDir(settings.Log.File)
	settings.Fallback.Dir = expandHomeDir(settings.Fallback.Dir)

	return &settings, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.debounce", 240*time.Millisecond)
	v.SetDefault("search.limit", archive.MaxGroupItems)
	v.SetDefault("search.fallback_on_empty", true)

	v.SetDefault("site.base_url", "")
	v.SetDefault("site.catalog_route", "/catalog")

	v.SetDefault("collections.base_url", "http://localhost:8787")
	v.SetDefault("collections.timeout", time.Duration(0))
	v.SetDefault("collections.offline", false)
	v.SetDefault("collections.breaker.enabled", false)
	v.SetDefault("collections.breaker.failures", 5)
	v.SetDefault("collections.breaker.cooldown", 30*time.Second)

	v.SetDefault("fallback.dir", "")

	v.SetDefault("ui.exit_on_activate", true)
	v.SetDefault("ui.no_color", false)
	v.SetDefault("ui.open_external", true)

	v.SetDefault("log.file", "")
	v.SetDefault("log.debug", false)

	v.SetDefault("metrics.addr", "")

	v.SetDefault("serve.addr", ":8787")
	v.SetDefault("serve.latency", time.Duration(0))
	v.SetDefault("serve.jitter", time.Duration(0))
	v.SetDefault("serve.fail", []string{})
	v.SetDefault("serve.empty", []string{})
}

// applyDotEnv copies ARCHSEARCH_* keys from a parsed .env file into v
// unless the real environment or an explicitly set flag already provides them.
func applyDotEnv(v, env *viper.Viper, flags *pflag.FlagSet) {
	prefix := strings.ToLower(EnvPrefix) + "_"
	known := map[string]string{}
	for _, key := range v.AllKeys() {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}
	for _, raw := range env.AllKeys() {
		if !strings.HasPrefix(raw, prefix) {
			continue
		}
		if _, set := os.LookupEnv(strings.ToUpper(raw)); set {
			continue
		}
		key, ok := known[strings.TrimPrefix(raw, prefix)]
		if !ok || flagChanged(flags, key) {
			continue
		}
		v.Set(key, env.Get(raw))
	}
}

func flagChanged(flags *pflag.FlagSet, key string) bool {
	if flags == nil {
		return false
	}
	name, ok := flagBindings[key]
	if !ok {
		return false
	}
	f := flags.Lookup(name)
	return f != nil && f.Changed
}

// ValidateSettings checks value ranges and cross references.
func ValidateSettings(s *Settings) error {
	var errs []error
	if s.Search.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("search.debounce must be positive, got %s", s.Search.Debounce))
	}
	if s.Search.Limit < 1 || s.Search.Limit > archive.MaxGroupItems {
		errs = append(errs, fmt.Errorf("search.limit must be between 1 and %d, got %d", archive.MaxGroupItems, s.Search.Limit))
	}
	if s.Site.BaseURL != "" {
		if err := validateURL(s.Site.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("site.base_url: %w", err))
		}
	}
	if !s.Collections.Offline {
		if err := validateURL(s.Collections.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("collections.base_url: %w", err))
		}
	}
	for slug := range s.Collections.Endpoints {
		c, err := archive.ParseCategory(slug)
		if err != nil {
			errs = append(errs, fmt.Errorf("collections.endpoints: %w", err))
			continue
		}
		if !c.Remote() {
			errs = append(errs, fmt.Errorf("collections.endpoints: %s has no remote collection", c))
		}
	}
	if s.Collections.Timeout < 0 {
		errs = append(errs, fmt.Errorf("collections.timeout must not be negative"))
	}
	if s.Collections.Breaker.Enabled && s.Collections.Breaker.Failures == 0 {
		errs = append(errs, fmt.Errorf("collections.breaker.failures must be at least 1"))
	}
	if s.Serve.Latency < 0 || s.Serve.Jitter < 0 {
		errs = append(errs, fmt.Errorf("serve.latency and serve.jitter must not be negative"))
	}
	if _, err := archive.ParseCategories(s.Serve.Fail); err != nil {
		errs = append(errs, fmt.Errorf("serve.fail: %w", err))
	}
	if _, err := archive.ParseCategories(s.Serve.Empty); err != nil {
		errs = append(errs, fmt.Errorf("serve.empty: %w", err))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

// ResolveConfigPath returns explicit if set, otherwise the XDG path
// ($XDG_CONFIG_HOME/archsearch/config.yaml) or ~/.config/archsearch/config.yaml
// when that file exists.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return expandHomeDir(explicit)
	}
	xdg := os.Getenv("XDG_CONFIG_HOME")
	candidate := ""
	if xdg != "" {
		candidate = filepath.Join(xdg, "archsearch", "config.yaml")
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", "archsearch", "config.yaml")
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// splitList flattens comma-separated entries and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
